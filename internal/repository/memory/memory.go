// Package memory is a process-local store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sharedrive/internal/domain"
)

// Store holds users and files behind one lock. It backs both the user and
// file repository contracts.
type Store struct {
	mu    sync.RWMutex
	users map[string]domain.User
	files map[string]domain.File
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]domain.User),
		files: make(map[string]domain.File),
		now:   time.Now,
	}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Files() *FileRepository {
	return &FileRepository{s: s}
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("%w: email or username taken", domain.ErrAlreadyExists)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *UserRepository) FindByEmailOrUsername(_ context.Context, email, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email || u.Username == username {
			found := cloneUser(u)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			found := cloneUser(u)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && (u.Email == user.Email || u.Username == user.Username) {
			return fmt.Errorf("%w: email or username taken", domain.ErrAlreadyExists)
		}
	}
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func cloneUser(u domain.User) domain.User {
	if u.Token != nil {
		token := *u.Token
		u.Token = &token
	}
	return u
}

type FileRepository struct {
	s *Store
}

func (r *FileRepository) Create(_ context.Context, file *domain.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if _, ok := r.s.files[file.ID]; ok {
		return fmt.Errorf("%w: file %s", domain.ErrAlreadyExists, file.ID)
	}
	file.CreatedAt = r.s.now().UTC()
	r.s.files[file.ID] = *file
	return nil
}

func (r *FileRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	return r.Search(ctx, ownerID, domain.FileFilter{})
}

func (r *FileRepository) FindByIDAndOwner(_ context.Context, id, ownerID string) (*domain.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.files[id]
	if !ok || f.CreatedBy != ownerID {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (r *FileRepository) Search(_ context.Context, ownerID string, filter domain.FileFilter) ([]domain.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	files := []domain.File{}
	for _, f := range r.s.files {
		if f.CreatedBy == ownerID && filter.Matches(f) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID > files[j].ID
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (r *FileRepository) UpdateNameDescription(_ context.Context, id, name, description string) (*domain.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if name != "" {
		f.Name = name
	}
	if description != "" {
		f.Description = description
	}
	r.s.files[id] = f
	return &f, nil
}

func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.files[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.files, id)
	return nil
}
