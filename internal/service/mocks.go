package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/scanhub/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) GetAll(ctx context.Context) ([]*repository.Membership, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Membership), args.Error(1)
}

func (m *MockMembershipRepository) GetByOwner(ctx context.Context, ownerID string) (*repository.Membership, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Insert(ctx context.Context, membership *repository.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) UpdateTeam(ctx context.Context, ownerID string, team int) error {
	args := m.Called(ctx, ownerID, team)
	return args.Error(0)
}

type MockScanRepository struct {
	mock.Mock
}

func (m *MockScanRepository) List(ctx context.Context, ownerID *string) ([]*repository.Scan, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Scan), args.Error(1)
}

func (m *MockScanRepository) Insert(ctx context.Context, code int, ownerID string) (*repository.Scan, error) {
	args := m.Called(ctx, code, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Scan), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}
