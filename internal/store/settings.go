package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Names of generated secrets kept in the settings table.
const (
	SecretJWT      = "jwt_secret"
	SecretSessions = "session_key"
)

// GetSecret returns the named 32-byte hex secret, generating and storing it
// on first use. Uses INSERT OR IGNORE + re-SELECT so concurrent first calls
// agree on one value.
func GetSecret(ctx context.Context, db *sql.DB, name string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", name, err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		name, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", name, err)
	}

	// Either our insert or the existing value.
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, name,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", name, err)
	}

	return secret, nil
}
