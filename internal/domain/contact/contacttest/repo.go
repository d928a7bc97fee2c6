// Package contacttest provides an in-memory contact.Repository.
package contacttest

import (
	"context"
	"sort"
	"sync"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/domain/contact"
	"bizzplus/internal/domain/party"
)

// Repo stores contacts in memory.
type Repo struct {
	mu       sync.Mutex
	contacts []contact.Contact
}

var _ contact.Repository = (*Repo)(nil)

// New creates an empty repository.
func New() *Repo {
	return &Repo{}
}

// Upsert matches on party and email and, like uq_crm_contacts_primary,
// refuses a second primary for a party.
func (r *Repo) Upsert(_ context.Context, c *contact.Contact) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.IsPrimary {
		for _, existing := range r.contacts {
			if existing.Party() == c.Party() && existing.IsPrimary && existing.Email != c.Email {
				return false, apperror.NewDuplicate("crm_contacts", "uq_crm_contacts_primary", c.Party().String())
			}
		}
	}
	for i, existing := range r.contacts {
		if existing.Party() == c.Party() && existing.Email == c.Email {
			existing.Phone, existing.IsPrimary = c.Phone, c.IsPrimary
			existing.UpdatedFromCRMAt, existing.UpdatedAt = c.UpdatedFromCRMAt, c.UpdatedAt
			r.contacts[i] = existing
			*c = existing
			return false, nil
		}
	}
	r.contacts = append(r.contacts, *c)
	return true, nil
}

func (r *Repo) DemotePrimaries(_ context.Context, ref party.Ref, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contacts {
		if r.contacts[i].Party() == ref && r.contacts[i].Email != email {
			r.contacts[i].IsPrimary = false
		}
	}
	return nil
}

func (r *Repo) List(_ context.Context, ref party.Ref) ([]*contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*contact.Contact, 0)
	for _, c := range r.contacts {
		if c.Party() == ref {
			cp := c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPrimary && !out[j].IsPrimary })
	return out, nil
}

// Snapshot implements txtest.Snapshotter.
func (r *Repo) Snapshot() func() {
	r.mu.Lock()
	saved := append([]contact.Contact(nil), r.contacts...)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.contacts = saved
	}
}
