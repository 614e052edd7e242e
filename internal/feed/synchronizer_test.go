package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/realtime"
	"github.com/yakoovad/scanhub/internal/repository"
	"go.uber.org/zap"
)

func strptr(s string) *string { return &s }

// fakeScanRepo serves canned rows, newest-first like the real repository.
type fakeScanRepo struct {
	mu   sync.Mutex
	rows []*repository.Scan
	err  error
}

func (f *fakeScanRepo) List(_ context.Context, ownerID *string) ([]*repository.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	out := make([]*repository.Scan, 0, len(f.rows))
	for _, row := range f.rows {
		if ownerID != nil && (row.OwnerID == nil || *row.OwnerID != *ownerID) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeScanRepo) Insert(_ context.Context, code int, ownerID string) (*repository.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row := &repository.Scan{
		ID:        int64(len(f.rows) + 1),
		Code:      code,
		OwnerID:   &ownerID,
		CreatedAt: time.Now(),
	}
	f.rows = append([]*repository.Scan{row}, f.rows...)
	return row, nil
}

func (f *fakeScanRepo) setRows(rows []*repository.Scan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func seededRepo(base time.Time) *fakeScanRepo {
	return &fakeScanRepo{rows: []*repository.Scan{
		{ID: 3, Code: 3333333, OwnerID: strptr("user1"), CreatedAt: base},
		{ID: 2, Code: 2222222, OwnerID: strptr("user2"), CreatedAt: base.Add(-time.Minute)},
		{ID: 1, Code: 1111111, OwnerID: strptr("user1"), CreatedAt: base.Add(-2 * time.Minute)},
	}}
}

func ids(scans []*model.Scan) []int64 {
	out := make([]int64, 0, len(scans))
	for _, s := range scans {
		out = append(out, s.ID)
	}
	return out
}

func TestSynchronizer_LoadGlobal(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Load(context.Background()))

	snapshot := s.Snapshot()
	assert.Equal(t, []int64{3, 2, 1}, ids(snapshot))

	// Newest-first by creation time.
	for i := 1; i < len(snapshot); i++ {
		assert.True(t, !snapshot[i].CreatedAt.After(snapshot[i-1].CreatedAt))
	}
}

func TestSynchronizer_LoadOwnScopeFilters(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeOwn, &model.Identity{ID: "user1"})
	require.NoError(t, s.Load(context.Background()))

	for _, scan := range s.Snapshot() {
		require.NotNil(t, scan.OwnerID)
		assert.Equal(t, "user1", *scan.OwnerID)
	}
	assert.Equal(t, []int64{3, 1}, ids(s.Snapshot()))
}

func TestSynchronizer_LoadFailureEmptiesView(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Load(context.Background()))
	require.NotEmpty(t, s.Snapshot())

	repo.mu.Lock()
	repo.err = errors.New("store down")
	repo.mu.Unlock()

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Empty(t, s.Snapshot())

	// The error is retryable: clearing the fault and re-loading recovers.
	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()
	require.NoError(t, s.Load(context.Background()))
	assert.NotEmpty(t, s.Snapshot())
}

func TestSynchronizer_SubscribePrependsOnInsert(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Load(context.Background()))

	delivered := make(chan *model.Scan, 1)
	s.OnInsert(func(scan *model.Scan) { delivered <- scan })
	require.NoError(t, s.Subscribe())
	defer s.Unsubscribe()

	before := len(s.Snapshot())

	pushed := &model.Scan{ID: 4, Code: 4444444, OwnerID: strptr("user2"), CreatedAt: time.Now()}
	hub.Publish(pushed)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("insert event never delivered")
	}

	snapshot := s.Snapshot()
	require.Len(t, snapshot, before+1)
	assert.Equal(t, int64(4), snapshot[0].ID)
}

func TestSynchronizer_OwnScopeStreamFiltersByOwner(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeOwn, &model.Identity{ID: "user1"})
	require.NoError(t, s.Load(context.Background()))

	delivered := make(chan *model.Scan, 2)
	s.OnInsert(func(scan *model.Scan) { delivered <- scan })
	require.NoError(t, s.Subscribe())
	defer s.Unsubscribe()

	hub.Publish(&model.Scan{ID: 4, OwnerID: strptr("user2"), CreatedAt: time.Now()})
	hub.Publish(&model.Scan{ID: 5, OwnerID: strptr("user1"), CreatedAt: time.Now()})

	select {
	case scan := <-delivered:
		assert.Equal(t, int64(5), scan.ID)
	case <-time.After(time.Second):
		t.Fatal("own insert never delivered")
	}

	assert.Equal(t, int64(5), s.Snapshot()[0].ID)
}

func TestSynchronizer_UnsubscribeStopsDelivery(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Subscribe())

	s.Unsubscribe()

	before := len(s.Snapshot())
	hub.Publish(&model.Scan{ID: 99, CreatedAt: time.Now()})

	// Give a stray goroutine a moment to misbehave before asserting.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, s.Snapshot(), before)

	// A second subscription afterwards works.
	require.NoError(t, s.Subscribe())
	defer s.Unsubscribe()
}

func TestSynchronizer_DoubleSubscribeFails(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Subscribe())
	defer s.Unsubscribe()

	assert.ErrorIs(t, s.Subscribe(), ErrAlreadySubscribed)
}

func TestSynchronizer_RefreshReplacesWholesale(t *testing.T) {
	repo := seededRepo(time.Now())
	hub := realtime.NewHub(zap.NewNop())

	s := New(repo, hub, model.FeedScopeGlobal, nil)
	require.NoError(t, s.Load(context.Background()))

	repo.setRows([]*repository.Scan{
		{ID: 10, Code: 7777777, CreatedAt: time.Now()},
	})

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, []int64{10}, ids(s.Snapshot()))
}
