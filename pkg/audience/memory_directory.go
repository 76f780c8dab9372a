package audience

import (
	"context"
	"slices"
	"sync"
)

// User is a directory entry held by MemoryDirectory.
type User struct {
	ID     int64
	Roles  []string
	Active bool
}

// MemoryDirectory is an in-memory Directory for development and tests.
type MemoryDirectory struct {
	users map[int64]User
	mu    sync.RWMutex
}

// NewMemoryDirectory creates a directory pre-populated with users.
func NewMemoryDirectory(users ...User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[int64]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *MemoryDirectory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryDirectory) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]int64, 0, len(d.users))
	for id, u := range d.users {
		if u.Active {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (d *MemoryDirectory) UserIDsByRoles(ctx context.Context, roles []string) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []int64
	for id, u := range d.users {
		if !u.Active {
			continue
		}
		for _, r := range u.Roles {
			if slices.Contains(roles, r) {
				ids = append(ids, id)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids, nil
}
