// Package feed maintains a newest-first view of scan records, seeded by a
// bulk read and kept current by the realtime insert stream.
//
// Stream events are prepended at the head without re-sorting, so delivery
// that arrives out of creation order leaves the view slightly unsorted.
// That matches insertion order closely enough for a live feed and keeps
// the merge trivial; it is an accepted tradeoff, not a guarantee.
package feed

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/realtime"
	"github.com/yakoovad/scanhub/internal/repository"
)

var ErrAlreadySubscribed = errors.New("feed: already subscribed")

// Synchronizer holds one consumer's view of the scan feed. It is safe for
// concurrent use, but Subscribe/Unsubscribe pair with a single consumer
// lifecycle.
type Synchronizer struct {
	scans repository.ScanRepository
	hub   *realtime.Hub

	ownerID *string

	mu  sync.Mutex
	seq []*model.Scan
	sub *realtime.Subscription

	onInsert func(*model.Scan)
}

// New builds a synchronizer for the given scope. For FeedScopeOwn the
// identity's rows are the only ones loaded and streamed; for
// FeedScopeGlobal every insert is delivered.
func New(scans repository.ScanRepository, hub *realtime.Hub, scope model.FeedScope, identity *model.Identity) *Synchronizer {
	s := &Synchronizer{
		scans: scans,
		hub:   hub,
	}
	if scope == model.FeedScopeOwn && identity != nil {
		id := identity.ID
		s.ownerID = &id
	}
	return s
}

// OnInsert registers a hook invoked after each streamed record is
// prepended. Set it before Subscribe.
func (s *Synchronizer) OnInsert(fn func(*model.Scan)) *Synchronizer {
	s.onInsert = fn
	return s
}

// Load replaces the view wholesale with a bulk read, newest-first. On
// failure the view is left empty and the error is retryable by re-calling
// Load.
func (s *Synchronizer) Load(ctx context.Context) error {
	rows, err := s.scans.List(ctx, s.ownerID)
	if err != nil {
		s.mu.Lock()
		s.seq = nil
		s.mu.Unlock()
		return errors.Wrap(err, "feed load failed")
	}

	seq := make([]*model.Scan, 0, len(rows))
	for _, row := range rows {
		seq = append(seq, &model.Scan{
			ID:        row.ID,
			Code:      row.Code,
			OwnerID:   row.OwnerID,
			CreatedAt: row.CreatedAt,
		})
	}

	s.mu.Lock()
	s.seq = seq
	s.mu.Unlock()

	return nil
}

// Refresh re-runs the bulk read, pull-to-refresh style.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Subscribe attaches to the insert stream and prepends each delivered
// record. Records streamed between Load and Subscribe can be missed, and a
// record caught by both paths appears twice; the view does not dedupe by id.
func (s *Synchronizer) Subscribe() error {
	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	sub := s.hub.Subscribe(s.ownerID)
	s.sub = sub
	s.mu.Unlock()

	go func() {
		for scan := range sub.C {
			s.mu.Lock()
			s.seq = append([]*model.Scan{scan}, s.seq...)
			s.mu.Unlock()

			if s.onInsert != nil {
				s.onInsert(scan)
			}
		}
	}()

	return nil
}

// Unsubscribe releases the stream. Must be called when the consumer goes
// away, or the hub keeps delivering into a dead channel.
func (s *Synchronizer) Unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Snapshot returns a copy of the current view, newest-first.
func (s *Synchronizer) Snapshot() []*model.Scan {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Scan, len(s.seq))
	copy(out, s.seq)
	return out
}
