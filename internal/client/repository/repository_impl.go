package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/client/domain"
	"gorm.io/gorm"
)

const clientColumns = `id, phone, full_name, email, telegram_chat_id, source, visits_count, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (`+clientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Phone,
		client.FullName,
		client.Email,
		client.TelegramChatID,
		client.Source,
		client.VisitsCount,
		client.CreatedAt.UTC(),
		client.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT `+clientColumns+` FROM clients WHERE phone = ?`,
		phone,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) UpdateContact(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET full_name = ?, email = ?, telegram_chat_id = ?, updated_at = ?
		 WHERE id = ?`,
		client.FullName,
		client.Email,
		client.TelegramChatID,
		client.UpdatedAt.UTC(),
		client.ID,
	).Error
}

func (r *repo) IncrementVisits(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients SET visits_count = visits_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(),
		id,
	).Error
}
