package service

import (
	"context"
	"regexp"
	"strconv"

	"github.com/yakoovad/scanhub/internal/db"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/repository"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

// codePattern is the only accepted shape for a decoded QR payload. Anything
// else is rejected before a store write is attempted.
var codePattern = regexp.MustCompile(`^[0-9]{7}$`)

type ScanService struct {
	tx db.Transactor

	scans repository.ScanRepository
}

func NewScanService(tx db.Transactor) *ScanService {
	return &ScanService{tx: tx}
}

// Record validates a decoded QR string and logs it for the identity. The
// insert fires the scans_insert notification that feeds the realtime stream.
func (s *ScanService) Record(ctx context.Context, identity *model.Identity, decoded string) (*model.Scan, *Error) {
	l := logger.FromContext(ctx)

	if !codePattern.MatchString(decoded) {
		l.Warn("rejected scan payload", zap.String("decoded", decoded))
		return nil, NewError(ErrorCodeValidation, "invalid QR — must be a 7-digit number")
	}

	if identity == nil || identity.ID == "" {
		return nil, NewError(ErrorCodeNotAuth, "you must be logged in to scan")
	}

	code, err := strconv.Atoi(decoded)
	if err != nil {
		// Unreachable after the pattern match, but strconv insists.
		return nil, NewError(ErrorCodeValidation, "invalid QR — must be a 7-digit number")
	}

	l.Info("recording scan", zap.Int("code", code), zap.String("user_id", identity.ID))

	row, err := s.scans.Insert(ctx, code, identity.ID)
	if err != nil {
		l.Error("failed to insert scan", zap.Int("code", code), zap.Error(err))
		return nil, NewError(ErrorCodeStorage, "failed to save scan")
	}

	return scanToModel(row), nil
}

// List returns scans newest-first, filtered to the identity's own rows when
// scope is own.
func (s *ScanService) List(ctx context.Context, scope model.FeedScope, identity *model.Identity) ([]*model.Scan, *Error) {
	l := logger.FromContext(ctx)

	if !scope.Valid() {
		return nil, NewError(ErrorCodeValidation, "scope must be global or own")
	}

	var ownerID *string
	if scope == model.FeedScopeOwn {
		if identity == nil || identity.ID == "" {
			return nil, NewError(ErrorCodeNotAuth, "sign in to view your scans")
		}
		ownerID = &identity.ID
	}

	rows, err := s.scans.List(ctx, ownerID)
	if err != nil {
		l.Error("failed to list scans", zap.Error(err))
		return nil, NewError(ErrorCodeStorage, "failed to load scans")
	}

	scans := make([]*model.Scan, 0, len(rows))
	for _, row := range rows {
		scans = append(scans, scanToModel(row))
	}

	return scans, nil
}

func scanToModel(row *repository.Scan) *model.Scan {
	return &model.Scan{
		ID:        row.ID,
		Code:      row.Code,
		OwnerID:   row.OwnerID,
		CreatedAt: row.CreatedAt,
	}
}

func (s *ScanService) WithScanRepo(r repository.ScanRepository) *ScanService {
	s.scans = r
	return s
}
