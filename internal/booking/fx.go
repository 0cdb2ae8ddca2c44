package booking

import (
	"github.com/smallbiznis/venuebook/internal/booking/lifecycle"
	"github.com/smallbiznis/venuebook/internal/booking/repository"
	"github.com/smallbiznis/venuebook/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking",
	fx.Provide(repository.Provide),
	fx.Provide(repository.NewLoader),
	fx.Provide(service.New),
	lifecycle.Module,
)
