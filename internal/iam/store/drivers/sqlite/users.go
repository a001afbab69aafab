package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, tenant_id, email, name, enabled, locked, mark_for_delete,
	email_verified, preferred_language, name_order, force_password_reset,
	password_hash, duress_password_hash, mfa_secret, recovery_email,
	recovery_email_verified, scopes, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u             domain.User
		duress, mfa   sql.NullString
		recoveryEmail sql.NullString
		scopes        string
	)
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Enabled, &u.Locked, &u.MarkForDelete,
		&u.EmailVerified, &u.PreferredLanguage, &u.NameOrder, &u.ForcePasswordReset,
		&u.PasswordHash, &duress, &mfa, &recoveryEmail,
		&u.RecoveryEmailVerified, &scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.DuressPasswordHash = strPtr(duress)
	u.MFASecret = strPtr(mfa)
	u.RecoveryEmail = strPtr(recoveryEmail)
	u.Scopes = strings.Fields(scopes)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, tenantID, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND email = ?`, tenantID, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (
			id, tenant_id, email, name, enabled, locked, mark_for_delete,
			email_verified, preferred_language, name_order, force_password_reset,
			password_hash, duress_password_hash, mfa_secret, recovery_email,
			recovery_email_verified, scopes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.TenantID, u.Email, u.Name, u.Enabled, u.Locked, u.MarkForDelete,
		u.EmailVerified, u.PreferredLanguage, u.NameOrder, u.ForcePasswordReset,
		u.PasswordHash, nullStr(u.DuressPasswordHash), nullStr(u.MFASecret),
		nullStr(u.RecoveryEmail), u.RecoveryEmailVerified,
		strings.Join(u.Scopes, " "), u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearForcePasswordReset(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET force_password_reset = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetEmailVerified(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) GetRecoveryEmail(ctx context.Context, userID string) (string, bool, error) {
	var (
		email    sql.NullString
		verified bool
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT recovery_email, recovery_email_verified FROM users WHERE id = ?`, userID,
	).Scan(&email, &verified)
	if err != nil {
		return "", false, mapNotFound(err)
	}
	if !email.Valid || email.String == "" {
		return "", false, store.ErrNotFound
	}
	return email.String, verified, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
