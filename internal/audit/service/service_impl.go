package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/venuebook/internal/audit/domain"
	"github.com/smallbiznis/venuebook/internal/clock"
	obscontext "github.com/smallbiznis/venuebook/internal/observability/context"
	"github.com/smallbiznis/venuebook/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 500

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, db *gorm.DB, req auditdomain.RecordRequest) (auditdomain.AuditLog, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return auditdomain.AuditLog{}, auditdomain.ErrInvalidAction
	}
	entityType := strings.TrimSpace(req.EntityType)
	entityID := strings.TrimSpace(req.EntityID)
	if entityType == "" || entityID == "" {
		return auditdomain.AuditLog{}, auditdomain.ErrInvalidEntity
	}

	actorType, actorID := s.resolveActor(ctx, req.ActorType, req.ActorID)

	changes := datatypes.JSONMap{}
	for key, value := range req.Changes {
		if key == "" {
			continue
		}
		changes[key] = value
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changes,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  s.clock.Now(),
	}
	if requestID := requestIDFrom(ctx); requestID != "" {
		entry.RequestID = &requestID
	}

	if db == nil {
		db = s.db
	}
	if err := s.repo.Insert(ctx, db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return auditdomain.AuditLog{}, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLog, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return nil, auditdomain.ErrInvalidTimeRange
	}
	limit := req.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, s.db, auditdomain.ListFilter{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Action:     req.Action,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      limit,
	})
}

func (s *Service) resolveActor(ctx context.Context, actorType, actorID string) (string, string) {
	actorType = strings.TrimSpace(actorType)
	actorID = strings.TrimSpace(actorID)
	if actorType == "" {
		if ctxType, ctxID := obscontext.ActorFromContext(ctx); ctxType != "" {
			actorType = ctxType
			if actorID == "" {
				actorID = ctxID
			}
		}
	}
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}
	if actorID == "" {
		actorID = "system"
	}
	return actorType, actorID
}

func requestIDFrom(ctx context.Context) string {
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return correlation.ExtractCorrelationID(ctx)
}
