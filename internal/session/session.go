// Package session ties signed-in browsers and API clients to their remote
// account sessions and closets.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/auth"
	"github.com/erazemk/tryon/internal/closet"
	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/store"
)

// ErrUnauthenticated means a token is missing, invalid, revoked, or its
// session is gone.
var ErrUnauthenticated = errors.New("not authenticated")

// Manager starts, resolves, and ends sessions.
type Manager struct {
	DB      *sql.DB
	Secret  string
	Sealer  *auth.Sealer
	Account *account.Client
	Closets *closet.Registry
}

// Start records a remote session and returns the local token that refers to
// it.
func (m *Manager) Start(ctx context.Context, remote *account.Session) (string, *model.Session, error) {
	token, claims, err := auth.GenerateToken(m.Secret, remote.User)
	if err != nil {
		return "", nil, fmt.Errorf("starting session: %w", err)
	}

	s := &model.Session{
		ID:          claims.ID,
		UserID:      remote.User.ID,
		Email:       remote.User.Email,
		AccessToken: remote.AccessToken,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if err := store.CreateSession(ctx, m.DB, m.Sealer, s); err != nil {
		return "", nil, fmt.Errorf("starting session: %w", err)
	}

	// Opportunistically clean up expired sessions.
	if _, err := m.PurgeExpired(ctx, time.Now()); err != nil {
		slog.Warn("failed to purge expired sessions", "error", err)
	}

	slog.Info("session started", "user", s.Email, "session", s.ID)
	return token, s, nil
}

// Resolve returns the live session behind token.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := auth.ValidateToken(m.Secret, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	revoked, err := store.IsTokenRevoked(ctx, m.DB, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if revoked {
		m.Closets.Drop(claims.ID)
		return nil, ErrUnauthenticated
	}

	s, err := store.GetSession(ctx, m.DB, m.Sealer, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if s == nil {
		// Expired or purged; its closet goes with it.
		m.Closets.Drop(claims.ID)
		return nil, ErrUnauthenticated
	}
	return s, nil
}

// Closet returns the closet owned by s.
func (m *Manager) Closet(s *model.Session) *closet.Closet {
	return m.Closets.Get(s.ID)
}

// End signs s out of the account service, then revokes its token and forgets
// its closet. When the remote sign-out fails the session is left intact.
func (m *Manager) End(ctx context.Context, s *model.Session) error {
	err := m.Account.SignOut(ctx, s.AccessToken)
	if err != nil && !account.IsUnauthorized(err) {
		return fmt.Errorf("ending session: %w", err)
	}

	if err := store.RevokeToken(ctx, m.DB, s.ID, s.ExpiresAt); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	if err := store.DeleteSession(ctx, m.DB, s.ID); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	m.Closets.Drop(s.ID)

	slog.Info("session ended", "user", s.Email, "session", s.ID)
	return nil
}

// PurgeExpired removes stored sessions that expired before now, along with
// their closets, and returns how many were removed.
func (m *Manager) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := store.PurgeExpiredSessions(ctx, m.DB, now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.Closets.Drop(id)
	}
	return len(ids), nil
}
