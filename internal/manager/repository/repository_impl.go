package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/manager/domain"
	"gorm.io/gorm"
)

const managerColumns = `id, full_name, email, telegram_chat_id, is_active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, manager *domain.Manager) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO managers (`+managerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		manager.ID,
		manager.FullName,
		manager.Email,
		manager.TelegramChatID,
		manager.IsActive,
		manager.CreatedAt.UTC(),
		manager.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Manager, error) {
	var manager domain.Manager
	err := db.WithContext(ctx).Raw(
		`SELECT `+managerColumns+` FROM managers WHERE id = ?`,
		id,
	).Scan(&manager).Error
	if err != nil {
		return nil, err
	}
	if manager.ID == 0 {
		return nil, nil
	}
	return &manager, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Manager, error) {
	var managers []*domain.Manager
	err := db.WithContext(ctx).Raw(
		`SELECT `+managerColumns+` FROM managers WHERE is_active = ? ORDER BY created_at ASC`,
		true,
	).Scan(&managers).Error
	if err != nil {
		return nil, err
	}
	return managers, nil
}
