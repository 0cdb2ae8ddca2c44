package scheduler

import (
	"time"

	"github.com/smallbiznis/venuebook/internal/config"
)

const (
	JobHoldExpiry       = "hold_expiry"
	JobEventCompletion  = "event_completion"
	JobDueNotifications = "due_notifications"
	JobOutboxRelay      = "outbox_relay"
	JobEventReminders   = "event_reminders"
)

// Config controls sweeper intervals and batch sizes.
type Config struct {
	Enabled     bool
	EnabledJobs []string

	HoldExpiryInterval      time.Duration
	EventCompletionInterval time.Duration
	NotificationInterval    time.Duration
	OutboxInterval          time.Duration
	ReminderInterval        time.Duration

	NotificationBatchSize int
	SweepBatchSize        int
	OutboxGrace           time.Duration
	JobTimeout            time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		HoldExpiryInterval:      time.Minute,
		EventCompletionInterval: 30 * time.Minute,
		NotificationInterval:    30 * time.Second,
		OutboxInterval:          time.Minute,
		ReminderInterval:        5 * time.Minute,
		NotificationBatchSize:   50,
		SweepBatchSize:          100,
		OutboxGrace:             time.Minute,
		JobTimeout:              30 * time.Second,
	}
}

// ProvideConfig maps the process configuration onto sweeper settings.
func ProvideConfig(cfg config.Config) Config {
	sc := cfg.Scheduler
	return Config{
		Enabled:                 sc.Enabled,
		EnabledJobs:             sc.EnabledJobs,
		HoldExpiryInterval:      sc.HoldExpiryInterval,
		EventCompletionInterval: sc.EventCompletionInterval,
		NotificationInterval:    sc.NotificationInterval,
		OutboxInterval:          sc.OutboxInterval,
		ReminderInterval:        sc.ReminderInterval,
		NotificationBatchSize:   sc.NotificationBatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.HoldExpiryInterval <= 0 {
		c.HoldExpiryInterval = defaults.HoldExpiryInterval
	}
	if c.EventCompletionInterval <= 0 {
		c.EventCompletionInterval = defaults.EventCompletionInterval
	}
	if c.NotificationInterval <= 0 {
		c.NotificationInterval = defaults.NotificationInterval
	}
	if c.OutboxInterval <= 0 {
		c.OutboxInterval = defaults.OutboxInterval
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = defaults.ReminderInterval
	}
	if c.NotificationBatchSize <= 0 {
		c.NotificationBatchSize = defaults.NotificationBatchSize
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = defaults.SweepBatchSize
	}
	if c.OutboxGrace <= 0 {
		c.OutboxGrace = defaults.OutboxGrace
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
