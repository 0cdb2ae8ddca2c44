package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/audit/masking"
	"github.com/smallbiznis/venuebook/internal/client/domain"
	"github.com/smallbiznis/venuebook/internal/client/phone"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) FindOrCreate(ctx context.Context, req domain.FindOrCreateRequest) (domain.Client, error) {
	canonical := phone.Normalize(req.Phone)
	if !phone.IsValid(canonical) {
		return domain.Client{}, domain.ErrInvalidPhone
	}

	existing, err := s.repo.FindByPhone(ctx, s.db, canonical)
	if err != nil {
		return domain.Client{}, err
	}
	if existing != nil {
		if s.mergeContact(existing, req) {
			existing.UpdatedAt = s.clock.Now()
			if err := s.repo.UpdateContact(ctx, s.db, existing); err != nil {
				return domain.Client{}, err
			}
		}
		return *existing, nil
	}

	now := s.clock.Now()
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.SourceWebsite
	}
	client := domain.Client{
		ID:             s.genID.Generate(),
		Phone:          canonical,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          optional(req.Email),
		TelegramChatID: optional(req.TelegramChatID),
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race with a concurrent booking for the same phone.
			winner, findErr := s.repo.FindByPhone(ctx, s.db, canonical)
			if findErr == nil && winner != nil {
				return *winner, nil
			}
		}
		return domain.Client{}, err
	}

	s.log.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("phone", masking.MaskPhone(canonical)),
	)
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Client, error) {
	client, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) mergeContact(client *domain.Client, req domain.FindOrCreateRequest) bool {
	changed := false
	if name := strings.TrimSpace(req.FullName); name != "" && name != client.FullName {
		client.FullName = name
		changed = true
	}
	if email := optional(req.Email); email != nil && (client.Email == nil || *client.Email != *email) {
		client.Email = email
		changed = true
	}
	if chat := optional(req.TelegramChatID); chat != nil && (client.TelegramChatID == nil || *client.TelegramChatID != *chat) {
		client.TelegramChatID = chat
		changed = true
	}
	return changed
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
