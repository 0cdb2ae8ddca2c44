package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BookingPolicy carries the tunables of the booking lifecycle that operators
// change without a redeploy.
type BookingPolicy struct {
	HoldDurationMinutes   int             `mapstructure:"hold_duration_minutes"`
	RetryDelays           []time.Duration `mapstructure:"retry_delays"`
	MaxAttempts           int             `mapstructure:"max_attempts"`
	DefaultDepositPercent int             `mapstructure:"default_deposit_percent"`
	ReminderLeadTimes     []time.Duration `mapstructure:"reminder_lead_times"`
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		HoldDurationMinutes:   30,
		RetryDelays:           []time.Duration{30 * time.Second, 2 * time.Minute, 10 * time.Minute},
		MaxAttempts:           3,
		DefaultDepositPercent: 30,
		ReminderLeadTimes:     []time.Duration{24 * time.Hour, 3 * time.Hour},
	}
}

func (p BookingPolicy) HoldDuration() time.Duration {
	return time.Duration(p.HoldDurationMinutes) * time.Minute
}

// RetryDelay returns the backoff for the given retry count (1-based); the
// last configured delay is reused once the list is exhausted.
func (p BookingPolicy) RetryDelay(retryCount int) time.Duration {
	if len(p.RetryDelays) == 0 {
		return 0
	}
	idx := retryCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.RetryDelays) {
		idx = len(p.RetryDelays) - 1
	}
	return p.RetryDelays[idx]
}

type PolicyHolder struct {
	current atomic.Value // holds BookingPolicy
}

// NewStaticPolicyHolder returns a holder pinned to the given policy.
func NewStaticPolicyHolder(p BookingPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v := viper.New()
	v.SetConfigName("booking_policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/venuebook")
	v.AddConfigPath(".")

	// booking.hold_duration_minutes reads BOOKING_HOLD_DURATION_MINUTES
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBookingPolicy()
	v.SetDefault("booking.hold_duration_minutes", defaults.HoldDurationMinutes)
	v.SetDefault("booking.retry_delays", defaults.RetryDelays)
	v.SetDefault("booking.max_attempts", defaults.MaxAttempts)
	v.SetDefault("booking.default_deposit_percent", defaults.DefaultDepositPercent)
	v.SetDefault("booking.reminder_lead_times", defaults.ReminderLeadTimes)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := decodeBookingPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBookingPolicy(v)
		if err != nil {
			log.Warn("booking policy reload rejected", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("booking policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Unmarshal resolves env overrides per nested key; UnmarshalKey("booking")
// does not.
func decodeBookingPolicy(v *viper.Viper) (BookingPolicy, error) {
	var settings struct {
		Booking BookingPolicy `mapstructure:"booking"`
	}
	if err := v.Unmarshal(&settings); err != nil {
		return BookingPolicy{}, err
	}
	if err := validateBookingPolicy(settings.Booking); err != nil {
		return BookingPolicy{}, err
	}
	return settings.Booking, nil
}

func (h *PolicyHolder) Get() BookingPolicy {
	if h == nil {
		return DefaultBookingPolicy()
	}
	p, ok := h.current.Load().(BookingPolicy)
	if !ok {
		return DefaultBookingPolicy()
	}
	return p
}

func validateBookingPolicy(p BookingPolicy) error {
	if p.HoldDurationMinutes <= 0 {
		return errors.New("booking.hold_duration_minutes must be positive")
	}
	if len(p.RetryDelays) == 0 {
		return errors.New("booking.retry_delays cannot be empty")
	}
	for _, d := range p.RetryDelays {
		if d <= 0 {
			return errors.New("booking.retry_delays must be positive")
		}
	}
	if p.MaxAttempts <= 0 {
		return errors.New("booking.max_attempts must be positive")
	}
	if p.DefaultDepositPercent < 0 || p.DefaultDepositPercent > 100 {
		return errors.New("booking.default_deposit_percent must be within 0..100")
	}
	return nil
}
