package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// ErrNoSession indicates no usable session is stored.
var ErrNoSession = errors.New("session: no stored session")

// Session is the persisted backend login.
type Session struct {
	Token     string
	User      model.User
	UpdatedAt time.Time
}

// Repository defines the interface for session persistence.
type Repository interface {
	Save(ctx context.Context, token string, user model.User) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed session repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts the single session row.
func (r *SQLiteRepository) Save(ctx context.Context, token string, user model.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO session (id, token, user_json, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token,
		                               user_json = excluded.user_json,
		                               updated_at = excluded.updated_at`,
		token, string(userJSON), now,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load returns the stored session. A missing row or an expired token yields
// ErrNoSession; the caller falls back to a fresh login.
func (r *SQLiteRepository) Load(ctx context.Context) (*Session, error) {
	var s Session
	var userJSON, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_json, updated_at FROM session WHERE id = 1`,
	).Scan(&s.Token, &userJSON, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if tokenExpired(s.Token) {
		return nil, ErrNoSession
	}

	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &s, nil
}

// Clear removes the stored session.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// tokenExpired inspects the JWT expiry claim without verifying the
// signature. The backend is the token's authority; locally we only avoid
// presenting one that is certain to be rejected. Tokens that do not parse or
// carry no expiry are passed through and left for the backend to judge.
func tokenExpired(token string) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
