package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/tryon/internal/model"
)

// Sealer protects remote account tokens at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// CreateSession stores a session with its remote access token sealed.
func CreateSession(ctx context.Context, db *sql.DB, sealer Sealer, s *model.Session) error {
	access, err := sealer.Seal([]byte(s.AccessToken))
	if err != nil {
		return fmt.Errorf("sealing access token: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, access_token, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Email, access, s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession returns an unexpired session by ID, or nil if there is none.
func GetSession(ctx context.Context, db *sql.DB, sealer Sealer, id string) (*model.Session, error) {
	s := &model.Session{}
	var access []byte
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, email, access_token, expires_at, created_at
		 FROM sessions WHERE id = ? AND expires_at > ?`, id, time.Now().UTC(),
	).Scan(&s.ID, &s.UserID, &s.Email, &access, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	plain, err := sealer.Open(access)
	if err != nil {
		return nil, fmt.Errorf("unsealing access token: %w", err)
	}
	s.AccessToken = string(plain)
	return s, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now and returns
// their IDs.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? RETURNING id`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("purging sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning purged session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purging sessions: %w", err)
	}
	return ids, nil
}
