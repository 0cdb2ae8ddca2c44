package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	managerdomain "github.com/smallbiznis/venuebook/internal/manager/domain"
	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/template"
	obsmetrics "github.com/smallbiznis/venuebook/internal/observability/metrics"
	"github.com/smallbiznis/venuebook/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	sendTimeout      = 10 * time.Second
)

// channelOrder fixes the order rows are created in.
var channelOrder = []domain.Channel{domain.ChannelTelegram, domain.ChannelEmail}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	Clients    clientdomain.Repository
	Managers   managerdomain.Repository
	Transports []domain.Transport   `group:"notification_transports"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Dispatcher renders, stores and delivers notifications. Deliveries run on
// a small worker pool fed by Dispatch; anything the pool misses is picked
// up by ProcessDue.
type Dispatcher struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	policy   *config.PolicyHolder
	repo     domain.Repository
	clients  clientdomain.Repository
	managers managerdomain.Repository
	metrics  *obsmetrics.Metrics

	transports map[domain.Channel]domain.Transport

	queue    chan snowflake.ID
	inflight sync.Map
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func New(p Params) *Dispatcher {
	transports := make(map[domain.Channel]domain.Transport, len(p.Transports))
	for _, t := range p.Transports {
		if t == nil {
			continue
		}
		transports[t.Channel()] = t
	}
	return &Dispatcher{
		db:         p.DB,
		log:        p.Log.Named("notification.dispatcher"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Config,
		policy:     p.Policy,
		repo:       p.Repo,
		clients:    p.Clients,
		managers:   p.Managers,
		metrics:    p.Metrics,
		transports: transports,
		queue:      make(chan snowflake.ID, defaultQueueSize),
	}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(parent context.Context, workers int) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.log.Info("notification workers started",
		zap.Int("workers", workers),
		zap.Int("transports", len(d.transports)),
	)
}

// Stop cancels the workers and waits for in-progress deliveries.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			if err := d.ProcessNotification(ctx, id); err != nil {
				d.log.Warn("notification processing failed",
					zap.String("notification_id", id.String()),
					zap.Error(err),
				)
			}
		}
	}
}

func (d *Dispatcher) enqueue(id snowflake.ID) {
	select {
	case d.queue <- id:
	default:
		d.log.Debug("delivery queue full, left for due sweep", zap.String("notification_id", id.String()))
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, templateID string, recipientType domain.RecipientType, recipientID string, tctx domain.TemplateContext, opts ...domain.DispatchOption) ([]domain.Notification, error) {
	rendered, ok := template.Render(templateID, tctx)
	if !ok {
		d.log.Warn("unknown notification template", zap.String("template_id", templateID))
		return nil, nil
	}

	options := domain.DispatchOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	bookingID := options.BookingID
	if bookingID == nil && tctx.Booking != nil && tctx.Booking.ID != 0 {
		id := tctx.Booking.ID
		bookingID = &id
	}

	now := d.clock.Now()
	scheduledAt := now
	deferred := false
	if options.ScheduledAt != nil && options.ScheduledAt.After(now) {
		scheduledAt = *options.ScheduledAt
		deferred = true
	}

	created := make([]domain.Notification, 0, len(channelOrder))
	for _, channel := range channelOrder {
		payload := rendered.For(channel)
		if payload == nil {
			continue
		}
		if _, ok := d.transports[channel]; !ok {
			continue
		}
		n := domain.Notification{
			ID:            d.genID.Generate(),
			RecipientType: recipientType,
			RecipientID:   strings.TrimSpace(recipientID),
			BookingID:     bookingID,
			Channel:       channel,
			TemplateID:    templateID,
			Payload:       payload.ToMap(),
			Status:        domain.StatusQueued,
			ScheduledAt:   scheduledAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := d.repo.Insert(ctx, d.db, &n); err != nil {
			return created, fmt.Errorf("insert notification: %w", err)
		}
		created = append(created, n)
	}

	if len(created) == 0 {
		d.log.Debug("no transport for template channels", zap.String("template_id", templateID))
		return created, nil
	}
	if !deferred {
		for _, n := range created {
			d.enqueue(n.ID)
		}
	}
	return created, nil
}

func (d *Dispatcher) ProcessNotification(ctx context.Context, id snowflake.ID) (err error) {
	if _, busy := d.inflight.LoadOrStore(id, struct{}{}); busy {
		return nil
	}
	defer d.inflight.Delete(id)

	ctx, span := tracing.Start(ctx, "notification.process", attribute.String("notification.id", id.String()))
	defer func() { tracing.End(span, err) }()

	n, err := d.repo.FindByID(ctx, d.db, id)
	if err != nil {
		return err
	}
	if n == nil || n.Status.IsTerminal() {
		return nil
	}
	span.SetAttributes(
		attribute.String("notification.channel", string(n.Channel)),
		attribute.String("notification.template", n.TemplateID),
	)

	sendErr := d.deliver(ctx, n)
	now := d.clock.Now()
	if sendErr == nil {
		if _, err := d.repo.MarkSent(ctx, d.db, n.ID, now); err != nil {
			return err
		}
		d.recordAttempt(ctx, n.Channel, domain.StatusSent)
		return nil
	}
	return d.recordFailure(ctx, n, sendErr, now)
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) error {
	transport, ok := d.transports[n.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNoTransport, n.Channel)
	}
	destination, err := d.resolveDestination(ctx, n)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return transport.Send(sendCtx, destination, domain.PayloadFromMap(n.Payload))
}

func (d *Dispatcher) recordFailure(ctx context.Context, n *domain.Notification, sendErr error, now time.Time) error {
	policy := d.policy.Get()
	retryCount := n.RetryCount + 1
	log := d.log.With(
		zap.String("notification_id", n.ID.String()),
		zap.String("channel", string(n.Channel)),
		zap.String("template_id", n.TemplateID),
		zap.Int("retry_count", retryCount),
		zap.Error(sendErr),
	)

	if retryCount >= policy.MaxAttempts {
		if _, err := d.repo.MarkFailed(ctx, d.db, n.ID, retryCount, sendErr.Error(), now); err != nil {
			return err
		}
		d.recordAttempt(ctx, n.Channel, domain.StatusFailed)
		log.Error("notification permanently failed")
		return nil
	}

	next := now.Add(policy.RetryDelay(retryCount))
	if _, err := d.repo.MarkRetry(ctx, d.db, n.ID, retryCount, next, sendErr.Error(), now); err != nil {
		return err
	}
	d.recordAttempt(ctx, n.Channel, domain.StatusRetry)
	log.Warn("notification delivery failed, retry scheduled", zap.Time("scheduled_at", next))
	return nil
}

func (d *Dispatcher) recordAttempt(ctx context.Context, channel domain.Channel, status domain.Status) {
	d.metrics.RecordNotification(ctx, string(channel), string(status))
	obsmetrics.Scheduler().IncDeliveryAttempt(string(channel), string(status))
}

func (d *Dispatcher) ProcessDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := d.repo.ListDue(ctx, d.db, d.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	var errs []error
	processed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.ProcessNotification(ctx, id); err != nil {
			d.log.Warn("due notification failed", zap.String("notification_id", id.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

func (d *Dispatcher) resolveDestination(ctx context.Context, n *domain.Notification) (string, error) {
	switch n.RecipientType {
	case domain.RecipientClient:
		id, err := parseID(n.RecipientID)
		if err != nil {
			return "", fmt.Errorf("%w: client %q", domain.ErrNoDestination, n.RecipientID)
		}
		client, err := d.clients.FindByID(ctx, d.db, id)
		if err != nil {
			return "", err
		}
		if client != nil {
			if dest := pick(n.Channel, client.TelegramChatID, client.Email); dest != "" {
				return dest, nil
			}
		}
	case domain.RecipientManager:
		if id, err := parseID(n.RecipientID); err == nil {
			manager, err := d.managers.FindByID(ctx, d.db, id)
			if err != nil {
				return "", err
			}
			if manager != nil {
				if dest := pick(n.Channel, manager.TelegramChatID, manager.Email); dest != "" {
					return dest, nil
				}
			}
		}
		switch n.Channel {
		case domain.ChannelTelegram:
			if d.cfg.Telegram.DefaultChatID != "" {
				return d.cfg.Telegram.DefaultChatID, nil
			}
		case domain.ChannelEmail:
			if d.cfg.SMTP.DefaultEmail != "" {
				return d.cfg.SMTP.DefaultEmail, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s %s:%s", domain.ErrNoDestination, n.Channel, n.RecipientType, n.RecipientID)
}

func pick(channel domain.Channel, telegramChatID, email *string) string {
	var value *string
	switch channel {
	case domain.ChannelTelegram:
		value = telegramChatID
	case domain.ChannelEmail:
		value = email
	}
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func parseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(v), nil
}
