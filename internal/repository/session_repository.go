package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrRotationConflict means the conditional update matched no row: the
	// presented hash is no longer current, or the session stopped being
	// usable between lookup and update.
	ErrRotationConflict = errors.New("session rotation conflict")
)

const sessionColumns = `
	id, user_id, refresh_token_hash, remember_token_hash, remember_expires_at,
	ip_address, user_agent, created_at, last_activity_at, expires_at, revoked_at
`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) (models.Session, error) {
	return insertSession(ctx, r.pool, session)
}

// FindByRefreshHash looks at the current hash first and then at the rotation
// history, so a superseded secret still resolves to its session.
func (r *SessionRepository) FindByRefreshHash(ctx context.Context, hash []byte) (models.SessionMatch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE refresh_token_hash = $1`, hash)
	session, err := scanSession(row)
	if err == nil {
		return models.SessionMatch{Session: session, MatchedHash: session.RefreshTokenHash}, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return models.SessionMatch{}, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.refresh_token_hash, s.remember_token_hash, s.remember_expires_at,
		       s.ip_address, s.user_agent, s.created_at, s.last_activity_at, s.expires_at, s.revoked_at
		FROM rotated_refresh_tokens rt
		JOIN user_sessions s ON s.id = rt.session_id
		WHERE rt.token_hash = $1
	`, hash)
	session, err = scanSession(row)
	if err != nil {
		return models.SessionMatch{}, err
	}
	return models.SessionMatch{Session: session, MatchedHash: hash, Superseded: true}, nil
}

func (r *SessionRepository) FindByRememberHash(ctx context.Context, hash []byte) (models.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE remember_token_hash = $1`, hash)
	return scanSession(row)
}

// Rotate swaps the refresh hash in a single conditional update keyed on the
// old hash. Of two concurrent callers presenting the same secret exactly one
// sees a row; the other gets ErrRotationConflict.
func (r *SessionRepository) Rotate(ctx context.Context, rot models.Rotation) (models.Session, error) {
	var updated models.Session
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE user_sessions
			SET refresh_token_hash = $3,
			    last_activity_at = $4,
			    expires_at = $5
			WHERE id = $1
			  AND refresh_token_hash = $2
			  AND revoked_at IS NULL
			  AND expires_at >= $4
			RETURNING `+sessionColumns,
			rot.SessionID, rot.OldHash, rot.NewHash, rot.Now, rot.ExpiresAt,
		)
		var err error
		updated, err = scanSession(row)
		if errors.Is(err, ErrSessionNotFound) {
			return ErrRotationConflict
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO rotated_refresh_tokens (token_hash, session_id, rotated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (token_hash) DO NOTHING
		`, rot.OldHash, rot.SessionID, rot.Now); err != nil {
			return fmt.Errorf("record rotated hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return updated, nil
}

// ReplaceRemembered consumes the remember hash of session oldID, revokes that
// session and inserts next, all in one transaction.
func (r *SessionRepository) ReplaceRemembered(ctx context.Context, oldID int64, oldHash []byte, next models.Session, now time.Time) (models.Session, error) {
	var created models.Session
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
			UPDATE user_sessions
			SET remember_token_hash = NULL,
			    remember_expires_at = NULL,
			    revoked_at = COALESCE(revoked_at, $3)
			WHERE id = $1
			  AND remember_token_hash = $2
			  AND revoked_at IS NULL
			  AND remember_expires_at >= $3
		`, oldID, oldHash, now)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrRotationConflict
		}

		created, err = insertSession(ctx, tx, next)
		return err
	})
	if err != nil {
		return models.Session{}, err
	}
	return created, nil
}

// Revoke marks the session revoked regardless of owner. Idempotent.
func (r *SessionRepository) Revoke(ctx context.Context, id int64, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL
	`, id, now)
	return err
}

// RevokeOwned revokes the listed sessions that belong to userID and are not
// already revoked. Ids owned by someone else are skipped silently.
func (r *SessionRepository) RevokeOwned(ctx context.Context, ids []int64, userID string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET revoked_at = $3
		WHERE id = ANY($1) AND user_id = $2 AND revoked_at IS NULL
	`, ids, userID, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ListByUser returns the user's sessions that can still be used by either
// secret, most recently active first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE user_id = $1
		  AND revoked_at IS NULL
		  AND (expires_at >= $2 OR remember_expires_at >= $2)
		ORDER BY last_activity_at DESC, id DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// PruneBefore deletes rows that were revoked, or fully expired, before cutoff.
func (r *SessionRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
		DELETE FROM user_sessions
		WHERE revoked_at < $1
		   OR (expires_at < $1 AND (remember_expires_at IS NULL OR remember_expires_at < $1))
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertSession(ctx context.Context, q queryRower, session models.Session) (models.Session, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO user_sessions (
			user_id, refresh_token_hash, remember_token_hash, remember_expires_at,
			ip_address, user_agent, created_at, last_activity_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7, $8
		)
		RETURNING `+sessionColumns,
		session.UserID,
		session.RefreshTokenHash,
		nullBytes(session.RememberTokenHash),
		session.RememberExpiresAt,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return scanSession(row)
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.RememberTokenHash,
		&session.RememberExpiresAt,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
