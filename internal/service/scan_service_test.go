package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/repository"
)

func TestScanService_Record_RejectsBadPayloadsBeforeWriting(t *testing.T) {
	identity := &model.Identity{ID: "user1"}

	for _, decoded := range []string{
		"12AB345",
		"123456",
		"12345678",
		"",
		" 1234567",
		"1234567 ",
		"-1234567",
	} {
		t.Run(decoded, func(t *testing.T) {
			mockRepo := new(MockScanRepository)

			svc := NewScanService(new(MockTransactor)).WithScanRepo(mockRepo)

			scan, err := svc.Record(context.Background(), identity, decoded)
			require.Error(t, err)
			assert.Equal(t, ErrorCodeValidation, err.Code)
			assert.Nil(t, scan)

			// The store is never touched for a malformed payload.
			mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestScanService_Record(t *testing.T) {
	owner := "user1"
	now := time.Now()

	tests := []struct {
		name          string
		identity      *model.Identity
		decoded       string
		setupMocks    func(*MockScanRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success",
			identity: &model.Identity{ID: owner},
			decoded:  "0012345",
			setupMocks: func(sr *MockScanRepository) {
				sr.On("Insert", mock.Anything, 12345, owner).Return(&repository.Scan{
					ID:        1,
					Code:      12345,
					OwnerID:   &owner,
					CreatedAt: now,
				}, nil)
			},
			expectedError: false,
		},
		{
			name:          "not authenticated",
			identity:      nil,
			decoded:       "1234567",
			setupMocks:    func(sr *MockScanRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeNotAuth,
		},
		{
			name:     "store failure is retryable",
			identity: &model.Identity{ID: owner},
			decoded:  "1234567",
			setupMocks: func(sr *MockScanRepository) {
				sr.On("Insert", mock.Anything, 1234567, owner).Return(nil, errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockScanRepository)
			tt.setupMocks(mockRepo)

			svc := NewScanService(new(MockTransactor)).WithScanRepo(mockRepo)

			scan, err := svc.Record(context.Background(), tt.identity, tt.decoded)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, scan)
			} else {
				require.Nil(t, err)
				require.NotNil(t, scan)
				assert.Equal(t, 12345, scan.Code)
				require.NotNil(t, scan.OwnerID)
				assert.Equal(t, owner, *scan.OwnerID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestScanService_List(t *testing.T) {
	owner := "user1"
	other := "user2"
	now := time.Now()

	ownRows := []*repository.Scan{
		{ID: 3, Code: 3333333, OwnerID: &owner, CreatedAt: now},
		{ID: 1, Code: 1111111, OwnerID: &owner, CreatedAt: now.Add(-2 * time.Minute)},
	}
	allRows := []*repository.Scan{
		ownRows[0],
		{ID: 2, Code: 2222222, OwnerID: &other, CreatedAt: now.Add(-time.Minute)},
		ownRows[1],
	}

	tests := []struct {
		name          string
		scope         model.FeedScope
		identity      *model.Identity
		setupMocks    func(*MockScanRepository)
		expectedIDs   []int64
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "global scope returns everything",
			scope:    model.FeedScopeGlobal,
			identity: &model.Identity{ID: owner},
			setupMocks: func(sr *MockScanRepository) {
				sr.On("List", mock.Anything, (*string)(nil)).Return(allRows, nil)
			},
			expectedIDs: []int64{3, 2, 1},
		},
		{
			name:     "own scope filters by owner",
			scope:    model.FeedScopeOwn,
			identity: &model.Identity{ID: owner},
			setupMocks: func(sr *MockScanRepository) {
				sr.On("List", mock.Anything, mock.MatchedBy(func(id *string) bool {
					return id != nil && *id == owner
				})).Return(ownRows, nil)
			},
			expectedIDs: []int64{3, 1},
		},
		{
			name:          "own scope requires identity",
			scope:         model.FeedScopeOwn,
			identity:      nil,
			setupMocks:    func(sr *MockScanRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeNotAuth,
		},
		{
			name:          "invalid scope",
			scope:         model.FeedScope("team"),
			identity:      &model.Identity{ID: owner},
			setupMocks:    func(sr *MockScanRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockScanRepository)
			tt.setupMocks(mockRepo)

			svc := NewScanService(new(MockTransactor)).WithScanRepo(mockRepo)

			scans, err := svc.List(context.Background(), tt.scope, tt.identity)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				return
			}

			require.Nil(t, err)
			ids := make([]int64, 0, len(scans))
			for _, s := range scans {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)

			mockRepo.AssertExpectations(t)
		})
	}
}
