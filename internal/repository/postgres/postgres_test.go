package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
)

// Тесты ходят в живую базу и запускаются только с TEST_DB_URL.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL is not set")
	}

	ctx := context.Background()
	r, err := NewRepo(ctx, infra.DatabaseConfig{URL: dsn})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	require.NoError(t, r.Migrate(ctx))
	_, err = r.pool.Exec(ctx, `TRUNCATE consent_requests, audit_log`)
	require.NoError(t, err)
	return r
}

func newRequest(capability string) *domain.ConsentRequest {
	return &domain.ConsentRequest{
		ID:             uuid.New().String(),
		CapabilityName: capability,
		Payload:        domain.Arguments{"action": "create", "approved": false},
		Status:         domain.ConsentPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestConsentRepo_Lifecycle(t *testing.T) {
	repo := NewConsentRepo(newTestRepo(t))
	ctx := context.Background()

	first, second := newRequest("calendar_crud"), newRequest("email_message")
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentPending, got.Status)
	assert.Equal(t, "create", got.Payload["action"])
	assert.Equal(t, false, got.Payload["approved"])
	assert.Nil(t, got.ResolvedAt)
	assert.Nil(t, got.Resolution)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	at := time.Now().UTC().Truncate(time.Microsecond)
	resolved, err := repo.Resolve(ctx, second.ID, true, at)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, at.Equal(*resolved.ResolvedAt))
	assert.Equal(t, "approved", *resolved.Resolution)

	_, err = repo.Resolve(ctx, second.ID, false, at)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, err = repo.Resolve(ctx, "missing", false, at)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := repo.List(ctx, domain.ConsentPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}

func TestAuditRepo_WriteBatchAndRecent(t *testing.T) {
	repo := NewAuditRepo(newTestRepo(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	entries := make([]domain.AuditLogEntry, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, domain.AuditLogEntry{
			ID:        uuid.New().String(),
			Event:     domain.EventChatReceived,
			Actor:     domain.ActorUser,
			Details:   map[string]any{"n": float64(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	require.NoError(t, repo.WriteBatch(ctx, entries))
	// Повтор той же пачки (ретрай AgentFS) не дублирует
	require.NoError(t, repo.WriteBatch(ctx, entries[3:]))

	recent, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, entries[2].ID, recent[0].ID)
	assert.Equal(t, entries[4].ID, recent[2].ID)
	assert.Equal(t, float64(4), recent[2].Details["n"])

	require.NoError(t, repo.WriteBatch(ctx, nil))
}
