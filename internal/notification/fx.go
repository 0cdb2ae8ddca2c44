package notification

import (
	"context"

	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/repository"
	"github.com/smallbiznis/venuebook/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(d *service.Dispatcher) domain.Dispatcher { return d }),
	fx.Invoke(registerWorkers),
)

func registerWorkers(lc fx.Lifecycle, d *service.Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start(ctx, 0)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			d.Stop()
			return nil
		},
	})
}
