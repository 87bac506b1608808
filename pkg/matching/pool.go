package matching

import "github.com/ChefStevePopp/cheflife-sync/pkg/models"

// CandidatePool is the ordered working set of external users not yet claimed
// by any candidate in the current run. The pool only shrinks as the engine
// assigns users. Claiming from the pool is what guarantees each external user
// appears in at most one non-unmatched candidate.
type CandidatePool struct {
	users []models.ExternalUser
}

// NewCandidatePool copies the given users into a fresh pool.
func NewCandidatePool(users []models.ExternalUser) *CandidatePool {
	cp := make([]models.ExternalUser, len(users))
	copy(cp, users)
	return &CandidatePool{users: cp}
}

// Len returns the number of unclaimed users.
func (p *CandidatePool) Len() int {
	return len(p.users)
}

// Remaining returns a copy of the unclaimed users in pool order.
func (p *CandidatePool) Remaining() []models.ExternalUser {
	out := make([]models.ExternalUser, len(p.users))
	copy(out, p.users)
	return out
}

// Find returns the index of the first user satisfying the predicate, in pool
// order, or -1.
func (p *CandidatePool) Find(pred func(models.ExternalUser) bool) int {
	for i, u := range p.users {
		if pred(u) {
			return i
		}
	}
	return -1
}

// At returns the user at index i.
func (p *CandidatePool) At(i int) models.ExternalUser {
	return p.users[i]
}

// Take removes and returns the user at index i.
func (p *CandidatePool) Take(i int) models.ExternalUser {
	u := p.users[i]
	p.users = append(p.users[:i:i], p.users[i+1:]...)
	return u
}
