package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/template"
	obsmetrics "github.com/smallbiznis/venuebook/internal/observability/metrics"
	"github.com/smallbiznis/venuebook/internal/outbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// reminderTemplates maps policy lead times onto reminder templates.
var reminderTemplates = map[time.Duration]string{
	24 * time.Hour: template.Reminder24h,
	3 * time.Hour:  template.Reminder3h,
}

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        Config               `optional:"true"`
	Policy        *config.PolicyHolder `optional:"true"`
	Bookings      bookingdomain.Repository
	Loader        *bookingrepo.Loader
	Transitions   bookingdomain.Transitioner
	Dispatcher    notificationdomain.Dispatcher `optional:"true"`
	Notifications notificationdomain.Repository `optional:"true"`
	Relay         *outbox.Relay                 `optional:"true"`
}

type pendingRelayer interface {
	RelayPending(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Scheduler runs the periodic booking sweeps. Each job is independent and
// a failing row never stops the rest of its batch.
type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	policy        *config.PolicyHolder
	bookings      bookingdomain.Repository
	loader        *bookingrepo.Loader
	transitions   bookingdomain.Transitioner
	dispatcher    notificationdomain.Dispatcher
	notifications notificationdomain.Repository
	relay         pendingRelayer

	wg sync.WaitGroup
}

type job struct {
	name      string
	interval  time.Duration
	batchSize int
	run       func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Bookings == nil || p.Loader == nil || p.Transitions == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		policy:        p.Policy,
		bookings:      p.Bookings,
		loader:        p.Loader,
		transitions:   p.Transitions,
		dispatcher:    p.Dispatcher,
		notifications: p.Notifications,
	}
	if p.Relay != nil {
		s.relay = p.Relay
	}
	return s, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobHoldExpiry, s.cfg.HoldExpiryInterval, s.cfg.SweepBatchSize, s.HoldExpiryJob},
		{JobEventCompletion, s.cfg.EventCompletionInterval, s.cfg.SweepBatchSize, s.EventCompletionJob},
		{JobDueNotifications, s.cfg.NotificationInterval, s.cfg.NotificationBatchSize, s.DueNotificationsJob},
		{JobOutboxRelay, s.cfg.OutboxInterval, s.cfg.SweepBatchSize, s.OutboxRelayJob},
		{JobEventReminders, s.cfg.ReminderInterval, 0, s.EventRemindersJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// a run cut short by its deadline resumes on the next tick
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job once, in order.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.batchSize, s.cfg.JobTimeout, j.run))
	}
	return err
}

// Start launches one ticker loop per enabled job. The loops stop when ctx
// is cancelled; Wait blocks until they have returned.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			s.log.Info("scheduler job disabled", zap.String("job", j.name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	nextRun := time.Now().Add(j.interval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if runLag := time.Since(nextRun); runLag > 0 {
			schedMetrics.ObserveRunLoopLag(j.name, runLag)
		}
		if err := s.runJob(ctx, j.name, j.batchSize, s.cfg.JobTimeout, j.run); err != nil {
			s.log.Warn("scheduler job failed", zap.String("job", j.name), zap.Error(err))
		}
		nextRun = time.Now().Add(j.interval)
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// HoldExpiryJob moves HOLD bookings whose hold has lapsed to CANCELLED.
func (s *Scheduler) HoldExpiryJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobHoldExpiry, s.cfg.SweepBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	ids, err := s.bookings.ListExpiredHolds(ctx, s.db, s.clock.Now(), s.cfg.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("list expired holds: %w", err)
	}
	return s.transitionAll(ctx, run, JobHoldExpiry, ids, bookingdomain.ActionHoldExpired)
}

// EventCompletionJob completes CONFIRMED and PAID bookings whose event has ended.
func (s *Scheduler) EventCompletionJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobEventCompletion, s.cfg.SweepBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	ids, err := s.bookings.ListFinishedEventBookings(ctx, s.db, s.clock.Now(), s.cfg.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("list finished event bookings: %w", err)
	}
	return s.transitionAll(ctx, run, JobEventCompletion, ids, bookingdomain.ActionEventCompleted)
}

func (s *Scheduler) transitionAll(ctx context.Context, run *jobRun, job string, ids []snowflake.ID, action bookingdomain.Action) error {
	var jobErr error
	processed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}
		_, err := s.transitions.Transition(ctx, id, action, bookingdomain.TransitionContext{
			Actor:   bookingdomain.ActorSystem,
			ActorID: bookingdomain.DefaultActorID,
		})
		switch {
		case err == nil:
			processed++
		case errors.Is(err, bookingdomain.ErrInvalidTransition):
			// moved on since it was listed
			run.IncSkipped()
		default:
			s.logSchedulerError(ctx, run, "scheduler.booking.transition_failed", job, id, err,
				zap.String("action", string(action)),
				zap.String("code", bookingdomain.Code(err)),
			)
			jobErr = errors.Join(jobErr, fmt.Errorf("booking %s: %w", id, err))
		}
	}
	run.AddProcessed(processed)
	obsmetrics.Scheduler().AddBatchProcessed(job, "booking", processed)
	return jobErr
}

// DueNotificationsJob retries queued notifications whose time has come.
func (s *Scheduler) DueNotificationsJob(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}
	ctx, run, owner := s.ensureJobRun(ctx, JobDueNotifications, s.cfg.NotificationBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	processed, err := s.dispatcher.ProcessDue(ctx, s.cfg.NotificationBatchSize)
	run.AddProcessed(processed)
	obsmetrics.Scheduler().AddBatchProcessed(JobDueNotifications, "notification", processed)
	return err
}

// OutboxRelayJob re-drives effect rows the in-process handoff never consumed.
func (s *Scheduler) OutboxRelayJob(ctx context.Context) error {
	if s.relay == nil {
		return nil
	}
	ctx, run, owner := s.ensureJobRun(ctx, JobOutboxRelay, s.cfg.SweepBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	relayed, err := s.relay.RelayPending(ctx, s.cfg.OutboxGrace, s.cfg.SweepBatchSize)
	run.AddProcessed(relayed)
	obsmetrics.Scheduler().AddBatchProcessed(JobOutboxRelay, "outbox_effect", relayed)
	return err
}

// EventRemindersJob sends each active booking one reminder per lead time.
// A booking inside a shorter lead window only gets the shorter reminder.
func (s *Scheduler) EventRemindersJob(ctx context.Context) error {
	if s.dispatcher == nil || s.notifications == nil {
		return nil
	}
	ctx, run, owner := s.ensureJobRun(ctx, JobEventReminders, 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	leads := s.reminderLeads()
	now := s.clock.Now()
	var jobErr error
	processed := 0
	for i, lead := range leads {
		templateID := reminderTemplates[lead]
		from := now
		if i+1 < len(leads) {
			from = now.Add(leads[i+1])
		}

		bookings, err := s.bookings.ListUpcoming(ctx, s.db, from, now.Add(lead))
		if err != nil {
			jobErr = errors.Join(jobErr, fmt.Errorf("list upcoming %s: %w", templateID, err))
			continue
		}
		for _, booking := range bookings {
			if err := ctx.Err(); err != nil {
				return errors.Join(jobErr, err)
			}
			sent, err := s.remind(ctx, booking, templateID)
			if err != nil {
				s.logSchedulerError(ctx, run, "scheduler.reminder.failed", JobEventReminders, booking.ID, err,
					zap.String("template_id", templateID),
				)
				jobErr = errors.Join(jobErr, fmt.Errorf("booking %s: %w", booking.ID, err))
				continue
			}
			if sent {
				processed++
			} else {
				run.IncSkipped()
			}
		}
	}
	run.AddProcessed(processed)
	obsmetrics.Scheduler().AddBatchProcessed(JobEventReminders, "notification", processed)
	return jobErr
}

func (s *Scheduler) remind(ctx context.Context, booking *bookingdomain.Booking, templateID string) (bool, error) {
	exists, err := s.notifications.ExistsForBooking(ctx, s.db, booking.ID, templateID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.loader.Attach(ctx, s.db, booking); err != nil {
		return false, err
	}
	_, err = s.dispatcher.Dispatch(ctx,
		templateID,
		notificationdomain.RecipientClient,
		booking.ClientID.String(),
		notificationdomain.TemplateContext{Booking: booking, Event: booking.Event},
		notificationdomain.WithBookingID(booking.ID),
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// reminderLeads returns the policy lead times that have a template,
// longest first.
func (s *Scheduler) reminderLeads() []time.Duration {
	configured := config.DefaultBookingPolicy().ReminderLeadTimes
	if s.policy != nil {
		configured = s.policy.Get().ReminderLeadTimes
	}
	leads := make([]time.Duration, 0, len(configured))
	seen := make(map[time.Duration]bool, len(configured))
	for _, lead := range configured {
		if _, ok := reminderTemplates[lead]; !ok {
			s.log.Warn("no reminder template for lead time", zap.Duration("lead", lead))
			continue
		}
		if seen[lead] {
			continue
		}
		seen[lead] = true
		leads = append(leads, lead)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i] > leads[j] })
	return leads
}
