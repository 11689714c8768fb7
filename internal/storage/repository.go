package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/micro-ha/korea-connect/internal/model"
)

var ErrNotFound = errors.New("not found")

// Save upserts an instance. The id and created_at of an existing row are
// kept stable; everything else follows the payload.
func (r *Repository) Save(ctx context.Context, instance model.Instance) error {
	if err := instance.Validate(); err != nil {
		return err
	}
	creds, err := json.Marshal(instance.Credentials)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO instances (id, service, name, credentials_json, interval_sec, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service=excluded.service,
			name=excluded.name,
			credentials_json=excluded.credentials_json,
			interval_sec=excluded.interval_sec,
			updated_at=excluded.updated_at`,
		instance.ID, instance.Service, instance.Name, string(creds), instance.IntervalSec, now, now,
	)
	return err
}

// Get loads one instance by id.
func (r *Repository) Get(ctx context.Context, id string) (model.Instance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, service, name, credentials_json, interval_sec, created_at, updated_at
		FROM instances WHERE id = ?`, id)
	instance, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Instance{}, fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}
	return instance, err
}

// List loads every instance ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]model.Instance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, service, name, credentials_json, interval_sec, created_at, updated_at
		FROM instances ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, instance)
	}
	return result, rows.Err()
}

// Delete removes an instance. Missing rows report ErrNotFound so the
// API can answer 404 instead of silently succeeding.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (model.Instance, error) {
	var (
		instance             model.Instance
		credsJSON            string
		createdAt, updatedAt string
	)
	if err := row.Scan(&instance.ID, &instance.Service, &instance.Name, &credsJSON, &instance.IntervalSec, &createdAt, &updatedAt); err != nil {
		return model.Instance{}, err
	}
	if err := json.Unmarshal([]byte(credsJSON), &instance.Credentials); err != nil {
		return model.Instance{}, fmt.Errorf("decode credentials: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		instance.CreatedAt = ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		instance.UpdatedAt = ts.UTC()
	}
	return instance, nil
}
