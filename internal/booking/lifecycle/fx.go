package lifecycle

import (
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.lifecycle",
	fx.Provide(NewEngine),
	fx.Provide(func(e *Engine) domain.Transitioner { return e }),
)
