package manager

import (
	"github.com/smallbiznis/venuebook/internal/manager/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("manager",
	fx.Provide(repository.Provide),
)
