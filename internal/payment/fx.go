package payment

import (
	"github.com/smallbiznis/venuebook/internal/payment/liqpay"
	"github.com/smallbiznis/venuebook/internal/payment/repository"
	"github.com/smallbiznis/venuebook/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(liqpay.New),
	fx.Provide(service.New),
)
