package outbox

import (
	"context"

	"github.com/smallbiznis/venuebook/internal/outbox/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("outbox",
	fx.Provide(NewQueue),
	fx.Provide(repository.Provide),
	fx.Provide(NewRelay),
	fx.Invoke(registerRelay),
)

func registerRelay(lc fx.Lifecycle, relay *Relay) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			relay.Start(ctx, 0)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			relay.Stop()
			return nil
		},
	})
}
