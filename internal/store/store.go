package store

import (
	"context"

	"github.com/my3-ai/concierge/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., sqlite, postgres).
type Store interface {
	Users() Users
	Contacts() Contacts
	Occasions() Occasions
	Relationships() Relationships
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// NameMatch selects the matching mode of Contacts.FindByName.
type NameMatch int

const (
	// MatchExact is a case-insensitive exact comparison.
	MatchExact NameMatch = iota
	// MatchSubstring is a case-insensitive containment check in either direction.
	MatchSubstring
)

type Contacts interface {
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Get(ctx context.Context, userID, contactID string) (*model.Contact, error)
	List(ctx context.Context, userID string) ([]*model.Contact, error)
	FindByName(ctx context.Context, userID, name string, mode NameMatch) (*model.Contact, error)
	Update(ctx context.Context, c *model.Contact) (*model.Contact, error)
	// Delete removes the contact and cascades to its occasions and to every
	// relationship edge touching it.
	Delete(ctx context.Context, userID, contactID string) error
	Count(ctx context.Context, userID string) (int, error)
}

type Occasions interface {
	Create(ctx context.Context, o *model.Occasion) (*model.Occasion, error)
	ListByContact(ctx context.Context, userID, contactID string) ([]*model.Occasion, error)
	UpdateStatus(ctx context.Context, userID, occasionID string, status model.OccasionStatus) error
}

type Relationships interface {
	Create(ctx context.Context, e *model.RelationshipEdge) (*model.RelationshipEdge, error)
	// Find returns the edge for (user, from, to), or model.ErrNotFound.
	Find(ctx context.Context, userID, fromID, toID string) (*model.RelationshipEdge, error)
	ListByContact(ctx context.Context, userID, contactID string) ([]*model.RelationshipEdge, error)
}
