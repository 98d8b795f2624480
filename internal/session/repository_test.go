package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/database"
	"github.com/kestrelhq/kestrel-sync/internal/model"
	_ "github.com/kestrelhq/kestrel-sync/migrations" // register embedded schema
)

// testRepo opens a scratch database and brings it to the current schema via
// the real embedded migrations.
func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return NewRepository(db.DB)
}

// unsignedJWT builds a structurally valid JWT with the given expiry and an
// empty signature. Good enough for expiry inspection, which never verifies.
func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix(), "sub": "user-1"})
	if err != nil {
		t.Fatalf("marshalling claims: %v", err)
	}
	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString(payload))
}

func TestRepository_SaveAndLoad(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := model.User{ID: "u1", Name: "Panel", Email: "panel@example.com"}
	token := unsignedJWT(t, time.Now().Add(time.Hour))

	if err := repo.Save(ctx, token, user); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Token != token {
		t.Errorf("Token = %q, want saved token", s.Token)
	}
	if s.User != user {
		t.Errorf("User = %+v, want %+v", s.User, user)
	}
}

func TestRepository_SaveOverwrites(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	first := unsignedJWT(t, time.Now().Add(time.Hour))
	second := unsignedJWT(t, time.Now().Add(2*time.Hour))

	if err := repo.Save(ctx, first, model.User{ID: "u1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, second, model.User{ID: "u2"}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	s, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Token != second || s.User.ID != "u2" {
		t.Error("second Save() did not replace the stored session")
	}
}

func TestRepository_LoadEmpty(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() error = %v, want ErrNoSession", err)
	}
}

func TestRepository_LoadExpiredToken(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	expired := unsignedJWT(t, time.Now().Add(-time.Hour))

	if err := repo.Save(ctx, expired, model.User{ID: "u1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() error = %v for expired token, want ErrNoSession", err)
	}
}

func TestRepository_LoadOpaqueToken(t *testing.T) {
	// Non-JWT tokens carry no readable expiry; the backend decides.
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "opaque-token-value", model.User{ID: "u1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v, want opaque token accepted", err)
	}
	if s.Token != "opaque-token-value" {
		t.Errorf("Token = %q", s.Token)
	}
}

func TestRepository_Clear(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, unsignedJWT(t, time.Now().Add(time.Hour)), model.User{ID: "u1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() after Clear() error = %v, want ErrNoSession", err)
	}
}
