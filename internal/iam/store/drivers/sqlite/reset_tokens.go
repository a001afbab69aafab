package sqlite

import (
	"context"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
)

type resetTokensRepo struct {
	q querier
}

func (r *resetTokensRepo) SaveToken(ctx context.Context, userID, tokenHash string, kind store.TokenKind, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO single_use_tokens (token_hash, user_id, kind, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tokenHash, userID, string(kind), expiresAt, time.Now().UTC())
	return err
}

func (r *resetTokensRepo) GetUserByToken(ctx context.Context, tokenHash string, kind store.TokenKind) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = (
			SELECT user_id FROM single_use_tokens
			WHERE token_hash = ? AND kind = ? AND expires_at > ?
		)`,
		tokenHash, string(kind), time.Now().UTC())
	return scanUser(row)
}

func (r *resetTokensRepo) DeleteToken(ctx context.Context, tokenHash string, kind store.TokenKind) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM single_use_tokens WHERE token_hash = ? AND kind = ?`,
		tokenHash, string(kind))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *resetTokensRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM single_use_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
