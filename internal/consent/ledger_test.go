package consent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []string
	fail bool
}

func (n *recordingNotifier) NotifyResolved(_ context.Context, req *domain.ConsentRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, req.ID+":"+string(req.Status))
	if n.fail {
		return errors.New("redis down")
	}
	return nil
}

func newLedger(opts ...Option) *Ledger {
	return NewLedger(NewMemoryStore(), zap.NewNop(), opts...)
}

func TestLedger_CreateStartsPending(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	req, err := l.Create(ctx, "calendar_crud", domain.Arguments{"action": "create", "approved": false})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.ConsentPending, req.Status)
	assert.Nil(t, req.ResolvedAt)
	assert.Nil(t, req.Resolution)
	assert.Equal(t, "create", req.Payload["action"])
}

func TestLedger_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		req, err := l.Create(ctx, name, nil)
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}
	_, err := l.Resolve(ctx, ids[1], true)
	require.NoError(t, err)

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, req := range all {
		assert.Equal(t, ids[i], req.ID)
	}

	pending, err := l.List(ctx, domain.ConsentPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].CapabilityName)
	assert.Equal(t, "c", pending[1].CapabilityName)

	approved, err := l.List(ctx, domain.ConsentApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, ids[1], approved[0].ID)
}

func TestLedger_Resolve(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := newLedger(WithClock(func() time.Time { return at }))

	for _, approved := range []bool{true, false} {
		t.Run(fmt.Sprint(approved), func(t *testing.T) {
			req, err := l.Create(ctx, "email_message", nil)
			require.NoError(t, err)

			got, err := l.Resolve(ctx, req.ID, approved)
			require.NoError(t, err)

			want := domain.ConsentDenied
			if approved {
				want = domain.ConsentApproved
			}
			assert.Equal(t, want, got.Status)
			require.NotNil(t, got.ResolvedAt)
			require.NotNil(t, got.Resolution)
			assert.Equal(t, at, *got.ResolvedAt)
			assert.Equal(t, string(want), *got.Resolution)
		})
	}
}

func TestLedger_ResolveUnknown(t *testing.T) {
	_, err := newLedger().Resolve(context.Background(), "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ResolveTwiceDoesNotCorrupt(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	l := newLedger(WithNotifier(n))

	req, err := l.Create(ctx, "system_command", nil)
	require.NoError(t, err)

	first, err := l.Resolve(ctx, req.ID, true)
	require.NoError(t, err)

	_, err = l.Resolve(ctx, req.ID, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	got, err := l.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentApproved, got.Status)
	assert.Equal(t, *first.ResolvedAt, *got.ResolvedAt)

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{req.ID + ":approved"}, n.got)
}

func TestLedger_NotifierFailureKeepsDecision(t *testing.T) {
	ctx := context.Background()
	l := newLedger(WithNotifier(&recordingNotifier{fail: true}))

	req, err := l.Create(ctx, "system_command", nil)
	require.NoError(t, err)

	got, err := l.Resolve(ctx, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentDenied, got.Status)
}

func TestLedger_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	payload := domain.Arguments{"k": "v"}
	req, err := l.Create(ctx, "a", payload)
	require.NoError(t, err)
	payload["k"] = "mutated"
	req.Payload["k"] = "mutated"
	req.Status = domain.ConsentApproved

	got, err := l.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Payload["k"])
	assert.Equal(t, domain.ConsentPending, got.Status)
}

func TestLedger_ConcurrentCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := l.Create(ctx, "calendar_crud", nil)
			if err == nil {
				ids <- req.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var resolved sync.WaitGroup
	for id := range ids {
		for j := 0; j < 3; j++ {
			resolved.Add(1)
			go func(id string, approved bool) {
				defer resolved.Done()
				_, _ = l.Resolve(ctx, id, approved)
			}(id, j%2 == 0)
		}
	}
	resolved.Wait()

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, n)
	for _, req := range all {
		assert.NotEqual(t, domain.ConsentPending, req.Status)
		assert.NotNil(t, req.ResolvedAt)
	}
}
