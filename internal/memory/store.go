package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/repository"
)

// Store keeps instances and custody balances in process. Every unit of work
// runs on copies that replace the stored state only when fn succeeds.
type Store struct {
	mu sync.RWMutex

	instances map[string]*vesting.Instance
	book      *asset.MemoryBook
}

func NewStore() *Store {
	return &Store{
		instances: make(map[string]*vesting.Instance),
		book:      asset.NewMemoryBook(),
	}
}

func (s *Store) Create(_ context.Context, inst *vesting.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(inst.ID)
	if id == "" {
		return repository.ErrInvalidInput
	}
	if _, exists := s.instances[id]; exists {
		return fmt.Errorf("%w: instance %s exists", repository.ErrConflict, id)
	}
	s.instances[id] = inst.Clone()
	return nil
}

func (s *Store) List(_ context.Context) ([]vesting.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]vesting.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		items = append(items, inst.Header())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) View(_ context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(inst.Clone(), asset.NewBank(s.book.Clone()))
}

func (s *Store) Update(_ context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	working := inst.Clone()
	book := s.book.Clone()
	if err := fn(working, asset.NewBank(book)); err != nil {
		return err
	}
	s.instances[id] = working.Clone()
	s.book = book
	return nil
}

// Atomically runs fn against the custody book alone.
func (s *Store) Atomically(_ context.Context, fn func(bank *asset.Bank) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.book.Clone()
	if err := fn(asset.NewBank(book)); err != nil {
		return err
	}
	s.book = book
	return nil
}
