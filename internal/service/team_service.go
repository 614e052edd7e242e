package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/yakoovad/scanhub/internal/db"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/repository"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

type TeamService struct {
	tx db.Transactor

	memberships repository.MembershipRepository
	capacity    CapacityEnforcer
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx: tx,
	}
}

// Assign puts the identity on the requested team, or moves it there if it
// already belongs to another team. The capacity check reads a snapshot and
// the write is issued separately, so two overlapping assignments can both
// pass the check; the unique constraint on the owner column is the only
// storage-level backstop.
func (t *TeamService) Assign(ctx context.Context, identity *model.Identity, requestedTeam int) *Error {
	l := logger.FromContext(ctx)

	if identity == nil || identity.ID == "" {
		return NewError(ErrorCodeNotAuth, "sign in to join a team")
	}
	if !model.ValidTeam(requestedTeam) {
		return NewError(ErrorCodeValidation,
			fmt.Sprintf("team must be between %d and %d", model.TeamMin, model.TeamMax))
	}

	l.Info("assigning team",
		zap.String("user_id", identity.ID),
		zap.Int("team", requestedTeam))

	counts, err := t.capacity.Counts(ctx)
	if err != nil {
		l.Error("failed to read team counts", zap.Error(err))
		return NewError(ErrorCodeStorage, "failed to read team counts")
	}

	if !counts.HasRoom(requestedTeam) {
		l.Warn("team is full", zap.Int("team", requestedTeam))
		return NewError(ErrorCodeTeamFull,
			fmt.Sprintf("team %d is full (%d/%d)", requestedTeam, counts[requestedTeam], model.TeamCapacity))
	}

	// The lookup and the write run in one transaction so the row cannot
	// change shape between them. The capacity snapshot above stays outside
	// on purpose: two overlapping assignments to the same team can still
	// both get through.
	txErr := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		existing, err := t.memberships.GetByOwner(txCtx, identity.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to look up membership", zap.String("user_id", identity.ID), zap.Error(err))
			return NewError(ErrorCodeStorage, "failed to look up membership")
		}

		if existing != nil {
			// Move to the new team. Capacity is not re-checked here beyond
			// the snapshot above.
			if err = t.memberships.UpdateTeam(txCtx, identity.ID, requestedTeam); err != nil {
				l.Error("failed to update membership", zap.String("user_id", identity.ID), zap.Error(err))
				return NewError(ErrorCodeStorage, "failed to update team")
			}
			l.Info("membership moved",
				zap.String("user_id", identity.ID),
				zap.Int("from", existing.Team),
				zap.Int("to", requestedTeam))
			return nil
		}

		err = t.memberships.Insert(txCtx, &repository.Membership{
			OwnerID: identity.ID,
			Team:    requestedTeam,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			// A concurrent insert for the same identity won, e.g. a second tab.
			l.Warn("membership already exists", zap.String("user_id", identity.ID))
			return NewError(ErrorCodeAlreadyAssigned, "you already have a team assigned")
		}
		if err != nil {
			l.Error("failed to insert membership", zap.String("user_id", identity.ID), zap.Error(err))
			return NewError(ErrorCodeStorage, "failed to join team")
		}

		l.Info("membership created",
			zap.String("user_id", identity.ID),
			zap.Int("team", requestedTeam))

		return nil
	})

	var res *Error
	if errors.As(txErr, &res) {
		return res
	}
	if txErr != nil {
		return NewError(ErrorCodeStorage, "failed to assign team")
	}

	return nil
}

// TeamCounts returns the member count for every team, including empty ones.
func (t *TeamService) TeamCounts(ctx context.Context) ([]*model.TeamCount, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("getting team counts")

	counts, err := t.capacity.Counts(ctx)
	if err != nil {
		l.Error("failed to read team counts", zap.Error(err))
		return nil, NewError(ErrorCodeStorage, "failed to read team counts")
	}

	result := make([]*model.TeamCount, 0, model.TeamMax)
	for team := model.TeamMin; team <= model.TeamMax; team++ {
		result = append(result, &model.TeamCount{
			Team:  team,
			Count: counts[team],
		})
	}

	return result, nil
}

func (t *TeamService) WithMembershipRepo(r repository.MembershipRepository) *TeamService {
	t.memberships = r
	return t
}

func (t *TeamService) WithCapacityEnforcer(c CapacityEnforcer) *TeamService {
	t.capacity = c
	return t
}
