package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

type termsRepo struct {
	q querier
}

func (r *termsRepo) AddAcceptance(ctx context.Context, rec domain.TermsAcceptance) error {
	if rec.AcceptedAt.IsZero() {
		rec.AcceptedAt = time.Now().UTC()
	}
	// Re-acceptance refreshes the timestamp.
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO terms_acceptances (user_id, tenant_id, accepted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET accepted_at = excluded.accepted_at`,
		rec.UserID, rec.TenantID, rec.AcceptedAt)
	return err
}

func (r *termsRepo) HasAcceptance(ctx context.Context, userID, tenantID string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM terms_acceptances WHERE user_id = ? AND tenant_id = ?`,
		userID, tenantID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type authEventsRepo struct {
	q querier
}

func (r *authEventsRepo) Append(ctx context.Context, ev domain.AuthEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO auth_events (id, tenant_id, user_id, session_token, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.TenantID, ev.UserID, ev.SessionToken, ev.Kind, ev.CreatedAt)
	return err
}

func (r *authEventsRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuthEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, session_token, kind, created_at
		FROM auth_events WHERE tenant_id = ?
		ORDER BY created_at DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *authEventsRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuthEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, session_token, kind, created_at
		FROM auth_events
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.AuthEvent, error) {
	defer rows.Close()
	var out []domain.AuthEvent
	for rows.Next() {
		var ev domain.AuthEvent
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.UserID, &ev.SessionToken, &ev.Kind, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
