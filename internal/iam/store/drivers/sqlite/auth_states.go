package sqlite

import (
	"context"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

type authStatesRepo struct {
	q querier
}

const stateColumns = `session_token, name, ord, status, expires_at, tenant_id, user_id,
	pre_auth_token, return_to_uri`

func (r *authStatesRepo) ListBySessionToken(ctx context.Context, sessionToken string) ([]domain.AuthenticationState, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+stateColumns+` FROM auth_states WHERE session_token = ? ORDER BY ord ASC`,
		sessionToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuthenticationState
	for rows.Next() {
		var st domain.AuthenticationState
		if err := rows.Scan(
			&st.SessionToken, &st.Name, &st.Order, &st.Status, &st.ExpiresAt,
			&st.TenantID, &st.UserID, &st.PreAuthToken, &st.ReturnToURI,
		); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *authStatesRepo) CreateStates(ctx context.Context, states []domain.AuthenticationState) error {
	for _, st := range states {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO auth_states (
				session_token, name, ord, status, expires_at, tenant_id, user_id,
				pre_auth_token, return_to_uri
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.SessionToken, st.Name, st.Order, st.Status, st.ExpiresAt,
			st.TenantID, st.UserID, st.PreAuthToken, st.ReturnToURI,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *authStatesRepo) DeleteState(ctx context.Context, st domain.AuthenticationState) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM auth_states WHERE session_token = ? AND ord = ?`,
		st.SessionToken, st.Order)
	return err
}

func (r *authStatesRepo) UpdateState(ctx context.Context, st domain.AuthenticationState) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auth_states
		SET name = ?, status = ?, expires_at = ?, tenant_id = ?, user_id = ?,
		    pre_auth_token = ?, return_to_uri = ?
		WHERE session_token = ? AND ord = ?`,
		st.Name, st.Status, st.ExpiresAt, st.TenantID, st.UserID,
		st.PreAuthToken, st.ReturnToURI,
		st.SessionToken, st.Order,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *authStatesRepo) DeleteBySessionToken(ctx context.Context, sessionToken string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM auth_states WHERE session_token = ?`, sessionToken)
	return err
}

func (r *authStatesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM auth_states WHERE expires_at < ?`, time.Now().UTC())
	return err
}
