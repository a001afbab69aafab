package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

type deviceCodesRepo struct {
	q querier
}

func (r *deviceCodesRepo) GetByUserCodeHash(ctx context.Context, hash string) (domain.DeviceCodeData, error) {
	return r.getWhere(ctx, "user_code_hash = ?", hash)
}

func (r *deviceCodesRepo) GetDeviceCodeByID(ctx context.Context, id string) (domain.DeviceCodeData, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *deviceCodesRepo) getWhere(ctx context.Context, cond string, arg any) (domain.DeviceCodeData, error) {
	var (
		d      domain.DeviceCodeData
		userID sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_code_hash, client_id, tenant_id, user_id, status,
		       expires_at, created_at, updated_at
		FROM device_codes WHERE `+cond, arg,
	).Scan(&d.ID, &d.UserCodeHash, &d.ClientID, &d.TenantID, &userID, &d.Status,
		&d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.DeviceCodeData{}, mapNotFound(err)
	}
	if userID.Valid {
		d.UserID = userID.String
	}
	return d, nil
}

func (r *deviceCodesRepo) CreateDeviceCode(ctx context.Context, d domain.DeviceCodeData) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO device_codes (
			id, user_code_hash, client_id, tenant_id, user_id, status,
			expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserCodeHash, d.ClientID, d.TenantID, nullEmpty(d.UserID),
		d.Status, d.ExpiresAt, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *deviceCodesRepo) UpdateDeviceCode(ctx context.Context, d domain.DeviceCodeData) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE device_codes
		SET user_id = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		nullEmpty(d.UserID), d.Status, time.Now().UTC(), d.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *deviceCodesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM device_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}

func nullEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
