package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories/gormstore"
	"github.com/Gangireddy387/OnlineNotebook/internal/config"
)

func TestResetStalePresence(t *testing.T) {
	store, err := gormstore.OpenInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	alice := uuid.New()
	socket := "01HZZ"
	if err := store.UpsertOnlineStatus(ctx, &models.OnlineStatus{UserID: alice, Status: models.PresenceOnline, LastSeen: time.Now().UTC(), SocketID: &socket}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cfg := &config.Config{}
	cfg.Redis.Enabled = true
	if reset, err := ResetStalePresence(ctx, cfg, store, zerolog.Nop()); err != nil || reset != 0 {
		t.Fatalf("multi-node reset must be skipped, got %d %v", reset, err)
	}

	cfg.Redis.Enabled = false
	reset, err := ResetStalePresence(ctx, cfg, store, zerolog.Nop())
	if err != nil || reset != 1 {
		t.Fatalf("expected one stale row reset, got %d %v", reset, err)
	}
	status, err := store.GetOnlineStatus(ctx, alice)
	if err != nil || status == nil || status.Status != models.PresenceOffline {
		t.Fatalf("expected offline after restart, got %+v %v", status, err)
	}
}
