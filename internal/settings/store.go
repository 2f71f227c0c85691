package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Nagulan13/oboma/internal/db"
)

const jobVacancyKey = "jobVacancySettings"

// Path is the document path clients subscribe to.
const Path = "adminConfig/" + jobVacancyKey

type JobVacancySetting struct {
	JobVacancyOpen bool      `json:"jobVacancyOpen"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DefaultJobVacancy applies when the admin never saved the setting.
var DefaultJobVacancy = JobVacancySetting{JobVacancyOpen: true}

type Store interface {
	// Get returns ok=false when the setting was never saved.
	Get(ctx context.Context) (JobVacancySetting, bool, error)
	Put(ctx context.Context, s JobVacancySetting) error
}

type PostgresStore struct {
	pool db.DBPool
}

func NewPostgresStore(pool db.DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Get(ctx context.Context) (JobVacancySetting, bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM admin_config WHERE key=$1`, jobVacancyKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobVacancySetting{}, false, nil
		}
		return JobVacancySetting{}, false, fmt.Errorf("select %s: %w", jobVacancyKey, err)
	}

	var s JobVacancySetting
	if err := json.Unmarshal(raw, &s); err != nil {
		return JobVacancySetting{}, false, fmt.Errorf("decode %s: %w", jobVacancyKey, err)
	}
	return s, true, nil
}

func (p *PostgresStore) Put(ctx context.Context, s JobVacancySetting) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode %s: %w", jobVacancyKey, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO admin_config (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at
	`, jobVacancyKey, raw, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", jobVacancyKey, err)
	}
	return nil
}
