package mocks

import (
	"context"
	"time"

	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/stretchr/testify/mock"
)

// VestingRepository is a mock for vesting.Repository.
type VestingRepository struct {
	mock.Mock
}

func (m *VestingRepository) Create(ctx context.Context, inst *vesting.Instance) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *VestingRepository) List(ctx context.Context) ([]vesting.Instance, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]vesting.Instance); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VestingRepository) View(ctx context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	args := m.Called(ctx, id, fn)
	return args.Error(0)
}

func (m *VestingRepository) Update(ctx context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	args := m.Called(ctx, id, fn)
	return args.Error(0)
}

// Publisher is a mock for vesting.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, event vesting.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Clock is a mock for vesting.Clock.
type Clock struct {
	mock.Mock
}

func (m *Clock) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

// APIKeyRepository is a mock for repository.APIKeyRepository.
type APIKeyRepository struct {
	mock.Mock
}

func (m *APIKeyRepository) Add(ctx context.Context, token string, identity role.Address, description string) error {
	args := m.Called(ctx, token, identity, description)
	return args.Error(0)
}

func (m *APIKeyRepository) ResolveIdentity(ctx context.Context, token string) (role.Address, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(role.Address), args.Error(1)
}
