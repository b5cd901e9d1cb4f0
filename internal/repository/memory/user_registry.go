package memory

import (
	"math/rand/v2"

	"lounge-chat/internal/domain"

	"github.com/samber/lo"
)

type registryEntry struct {
	color domain.Color
	owner string
}

// UserRegistry is the in-memory identity registry.
// It is not safe for concurrent use; service.ChatService holds the lock.
type UserRegistry struct {
	users map[string]registryEntry
	rng   *rand.Rand
}

// NewUserRegistry creates an empty registry. A nil rng uses the global source.
func NewUserRegistry(rng *rand.Rand) *UserRegistry {
	return &UserRegistry{
		users: make(map[string]registryEntry),
		rng:   rng,
	}
}

// Register claims a name for owner and assigns it a fresh color
func (r *UserRegistry) Register(name, owner string) (domain.Color, error) {
	name, err := domain.NormalizeUsername(name)
	if err != nil {
		return "", err
	}
	if _, taken := r.users[name]; taken {
		return "", domain.ErrNameTaken
	}

	color := domain.RandomColor(r.rng)
	r.users[name] = registryEntry{color: color, owner: owner}
	return color, nil
}

// ColorOf returns the color assigned to name, if it is registered
func (r *UserRegistry) ColorOf(name string) (domain.Color, bool) {
	entry, ok := r.users[name]
	return entry.color, ok
}

// EnsureRegistered returns the name's color when owner may use it. A name
// missing from the registry (a session that outlived it) is registered again
// for owner with a fresh color. A name held by another session is
// ErrNameTaken. An unbound entry is bound to the first session that uses it.
func (r *UserRegistry) EnsureRegistered(name, owner string) (domain.Color, error) {
	entry, ok := r.users[name]
	if !ok {
		color := domain.RandomColor(r.rng)
		r.users[name] = registryEntry{color: color, owner: owner}
		return color, nil
	}
	if !sameOwner(entry.owner, owner) {
		return "", domain.ErrNameTaken
	}
	if entry.owner == "" && owner != "" {
		entry.owner = owner
		r.users[name] = entry
	}
	return entry.color, nil
}

// SnapshotColors returns a point-in-time copy of the registry
func (r *UserRegistry) SnapshotColors() map[string]domain.Color {
	return lo.MapValues(r.users, func(entry registryEntry, _ string) domain.Color {
		return entry.color
	})
}

// Release frees a name held by owner so it can be claimed again
func (r *UserRegistry) Release(name, owner string) bool {
	entry, ok := r.users[name]
	if !ok || !sameOwner(entry.owner, owner) {
		return false
	}
	delete(r.users, name)
	return true
}

// Len returns the number of registered names
func (r *UserRegistry) Len() int {
	return len(r.users)
}

func sameOwner(held, caller string) bool {
	return held == "" || caller == "" || held == caller
}
