package services

import (
	"context"
	"strings"
	"time"

	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/dates"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

// ContactService is the direct management surface for recipients, used by
// the REST endpoints and the CLI alongside the conversational flow.
type ContactService struct {
	store       store.Store
	validator   address.Validator
	maxContacts int
}

func NewContactService(s store.Store, v address.Validator, maxContacts int) *ContactService {
	if v == nil {
		v = address.Disabled{}
	}
	if maxContacts <= 0 {
		maxContacts = 10
	}
	return &ContactService{store: s, validator: v, maxContacts: maxContacts}
}

func (s *ContactService) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, model.NewValidationError("name", "name required")
	}
	n, err := s.store.Contacts().Count(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if n >= s.maxContacts {
		return nil, model.NewConflictError("contacts", "contact limit reached")
	}
	if c.NetworkLevel == 0 {
		c.NetworkLevel = 1
		c.IsCoreContact = true
	}
	if c.Address.Complete() {
		res := s.validator.Validate(ctx, c.Address)
		c.AddressStatus = res.Status
		if res.Normalized != nil {
			c.Address = *res.Normalized
		}
	}
	return s.store.Contacts().Create(ctx, c)
}

func (s *ContactService) Get(ctx context.Context, userID, contactID string) (*model.Contact, error) {
	return s.store.Contacts().Get(ctx, userID, contactID)
}

func (s *ContactService) List(ctx context.Context, userID string) ([]*model.Contact, error) {
	return s.store.Contacts().List(ctx, userID)
}

// Update replaces the stored contact fields with the supplied ones. The
// conversational flow merges; this surface is explicit and overwrites.
func (s *ContactService) Update(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	existing, err := s.store.Contacts().Get(ctx, c.UserID, c.ContactID)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = existing.Name
	}
	c.NetworkLevel = existing.NetworkLevel
	c.IsCoreContact = existing.IsCoreContact
	c.CreationTime = existing.CreationTime
	if c.Address.Complete() && c.Address != existing.Address {
		res := s.validator.Validate(ctx, c.Address)
		c.AddressStatus = res.Status
		if res.Normalized != nil {
			c.Address = *res.Normalized
		}
	}
	return s.store.Contacts().Update(ctx, c)
}

func (s *ContactService) Delete(ctx context.Context, userID, contactID string) error {
	return s.store.Contacts().Delete(ctx, userID, contactID)
}

// UpcomingOccasion pairs an occasion with its next calendar occurrence.
type UpcomingOccasion struct {
	model.Occasion
	NextDate *time.Time `json:"nextDate,omitempty"`
}

// ListOccasions returns the contact's occasions with recurring dates rolled
// forward to their next future occurrence.
func (s *ContactService) ListOccasions(ctx context.Context, userID, contactID string) ([]UpcomingOccasion, error) {
	if _, err := s.store.Contacts().Get(ctx, userID, contactID); err != nil {
		return nil, err
	}
	occs, err := s.store.Occasions().ListByContact(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]UpcomingOccasion, 0, len(occs))
	for _, o := range occs {
		u := UpcomingOccasion{Occasion: *o}
		if o.Date != nil {
			if next, ok := dates.NextOccurrence(o.Date.Month(), o.Date.Day(), now); ok {
				u.NextDate = &next
			}
		}
		out = append(out, u)
	}
	return out, nil
}
