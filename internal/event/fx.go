package event

import (
	"github.com/smallbiznis/venuebook/internal/event/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("event",
	fx.Provide(repository.Provide),
)
