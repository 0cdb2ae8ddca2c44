package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

const ObjectBooking = "booking"

const (
	RoleClient  = "role:client"
	RoleManager = "role:manager"
	RoleSystem  = "role:system"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize returns nil when actorType/actorID may perform action on object.
	Authorize(ctx context.Context, actorType, actorID, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an in-memory enforcer with the booking role policy.
func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actorType, actorID, object, action string) error {
	actorType = strings.ToLower(strings.TrimSpace(actorType))
	if actorType == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName := fmt.Sprintf("role:%s", actorType)
	subject := actorSubject(actorType, actorID)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func actorSubject(actorType, actorID string) string {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return actorType
	}
	return fmt.Sprintf("%s:%s", actorType, actorID)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleClient, ObjectBooking, "submit"},
		{RoleClient, ObjectBooking, "initiatePayment"},
		{RoleClient, ObjectBooking, "cancel"},

		{RoleManager, ObjectBooking, "submit"},
		{RoleManager, ObjectBooking, "initiatePayment"},
		{RoleManager, ObjectBooking, "cancel"},
		{RoleManager, ObjectBooking, "markNoShow"},
		{RoleManager, ObjectBooking, "processRefund"},

		{RoleSystem, ObjectBooking, "holdExpired"},
		{RoleSystem, ObjectBooking, "depositPaid"},
		{RoleSystem, ObjectBooking, "paymentFailed"},
		{RoleSystem, ObjectBooking, "fullPayment"},
		{RoleSystem, ObjectBooking, "eventCompleted"},
		{RoleSystem, ObjectBooking, "cancel"},
		{RoleSystem, ObjectBooking, "processRefund"},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
