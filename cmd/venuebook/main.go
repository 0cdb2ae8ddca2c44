package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/audit"
	"github.com/smallbiznis/venuebook/internal/authorization"
	"github.com/smallbiznis/venuebook/internal/booking"
	"github.com/smallbiznis/venuebook/internal/client"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/smallbiznis/venuebook/internal/event"
	"github.com/smallbiznis/venuebook/internal/eventlock"
	"github.com/smallbiznis/venuebook/internal/manager"
	"github.com/smallbiznis/venuebook/internal/migration"
	"github.com/smallbiznis/venuebook/internal/notification"
	"github.com/smallbiznis/venuebook/internal/observability"
	"github.com/smallbiznis/venuebook/internal/outbox"
	"github.com/smallbiznis/venuebook/internal/payment"
	"github.com/smallbiznis/venuebook/internal/promo"
	"github.com/smallbiznis/venuebook/internal/providers"
	"github.com/smallbiznis/venuebook/internal/ratelimit"
	"github.com/smallbiznis/venuebook/internal/scheduler"
	"github.com/smallbiznis/venuebook/internal/seed"
	"github.com/smallbiznis/venuebook/internal/server"
	"github.com/smallbiznis/venuebook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(NewSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		eventlock.Module,
		authorization.Module,
		audit.Module,

		// Booking domain
		event.Module,
		client.Module,
		promo.Module,
		manager.Module,
		booking.Module,
		payment.Module,

		// Delivery
		providers.Module,
		notification.Module,
		outbox.Module,
		scheduler.Module,
		ratelimit.Module,
		server.Module,
		seed.Module,
	)
	app.Run()
}

func NewSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
