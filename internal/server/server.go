package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	obslogger "github.com/smallbiznis/venuebook/internal/observability/logger"
	obstracing "github.com/smallbiznis/venuebook/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"github.com/smallbiznis/venuebook/internal/payment/liqpay"
	"github.com/smallbiznis/venuebook/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	events      eventdomain.Repository
	bookingSvc  bookingdomain.Service
	paymentSvc  paymentdomain.Service
	transitions bookingdomain.Transitioner
	limiter     bookingLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Events      eventdomain.Repository
	BookingSvc  bookingdomain.Service
	PaymentSvc  paymentdomain.Service
	Transitions bookingdomain.Transitioner
	Limiter     *ratelimit.BookingLimiter `optional:"true"`
}

type bookingLimiter interface {
	Enabled() bool
	AllowBooking(ctx context.Context, clientIP string) (*ratelimit.Result, error)
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("http.server"),
		clock:       p.Clock,
		events:      p.Events,
		bookingSvc:  p.BookingSvc,
		paymentSvc:  p.PaymentSvc,
		transitions: p.Transitions,
		limiter:     p.Limiter,
	}

	s.registerHealthRoutes()
	s.registerPublicRoutes()
	s.registerManagerRoutes()
	s.engine.POST(liqpay.WebhookPath, s.HandleLiqPayWebhook)
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/healthz", s.Health)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/events", s.ListEvents)
	api.GET("/events/:slug", s.GetEventBySlug)

	api.POST("/bookings", s.BookingRateLimit(), s.CreateBooking)
	api.GET("/bookings/number/:number", s.GetBookingByNumber)
	api.POST("/bookings/number/:number/payments", s.InitiatePayment)
}

func (s *Server) registerManagerRoutes() {
	if s.cfg.ManagerAPIKey == "" {
		s.log.Warn("manager routes disabled: MANAGER_API_KEY is empty")
		return
	}
	manager := s.engine.Group("/api/v1/manager", s.ManagerAuth())

	manager.GET("/bookings", s.ListBookings)
	manager.GET("/bookings/:id", s.GetBooking)
	manager.GET("/bookings/:id/audit", s.ListBookingAudit)
	manager.POST("/bookings/:id/cancel", s.CancelBooking)
	manager.POST("/bookings/:id/no-show", s.MarkNoShow)
	manager.POST("/bookings/:id/refund", s.ProcessRefund)
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
