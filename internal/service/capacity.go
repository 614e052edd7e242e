package service

import (
	"context"

	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/repository"
)

// CapacityEnforcer answers whether a team can take another member. The
// default implementation counts a snapshot of all membership rows, so the
// answer can be stale by the time the write lands; an atomic server-side
// check can replace it without touching Assign callers.
type CapacityEnforcer interface {
	Counts(ctx context.Context) (TeamCounts, error)
}

// TeamCounts maps team number to current member count. Teams with no rows
// are present with a zero count.
type TeamCounts map[int]int

func (c TeamCounts) HasRoom(team int) bool {
	return c[team] < model.TeamCapacity
}

type snapshotEnforcer struct {
	memberships repository.MembershipRepository
}

func NewSnapshotEnforcer(memberships repository.MembershipRepository) CapacityEnforcer {
	return &snapshotEnforcer{memberships: memberships}
}

func (s *snapshotEnforcer) Counts(ctx context.Context) (TeamCounts, error) {
	rows, err := s.memberships.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(TeamCounts, model.TeamMax)
	for t := model.TeamMin; t <= model.TeamMax; t++ {
		counts[t] = 0
	}
	for _, m := range rows {
		counts[m.Team]++
	}

	return counts, nil
}
