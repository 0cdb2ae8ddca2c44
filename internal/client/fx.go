package client

import (
	"github.com/smallbiznis/venuebook/internal/client/repository"
	"github.com/smallbiznis/venuebook/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
