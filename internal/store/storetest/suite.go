package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	userID := "u-" + uuid.New().String()
	email := userID + "@example.test"

	// Users
	u := &model.User{UserID: userID, Email: email, DisplayName: "Test", HashedPassword: "x"}
	if _, err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got, err := s.Users().GetByEmail(ctx, email); err != nil || got == nil || got.UserID != userID {
		t.Fatalf("GetUserByEmail: got=%v err=%v", got, err)
	}
	if _, err := s.Users().Create(ctx, &model.User{Email: email, HashedPassword: "x"}); !model.IsConflictError(err) {
		t.Fatalf("duplicate email should conflict, got %v", err)
	}

	// Contacts
	mom, err := s.Contacts().Create(ctx, &model.Contact{
		UserID: userID, Name: "Mom", Relationship: "mom",
		Interests: []string{"gardening"}, IsCoreContact: true, NetworkLevel: 1,
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if got, err := s.Contacts().Get(ctx, userID, mom.ContactID); err != nil || got.Name != "Mom" {
		t.Fatalf("GetContact: got=%v err=%v", got, err)
	}
	if got, err := s.Contacts().FindByName(ctx, userID, "mom", store.MatchExact); err != nil || got.ContactID != mom.ContactID {
		t.Fatalf("FindByName exact should be case-insensitive: got=%v err=%v", got, err)
	}
	if _, err := s.Contacts().FindByName(ctx, userID, "nobody", store.MatchExact); !model.IsNotFoundError(err) {
		t.Fatalf("FindByName miss should be ErrNotFound, got %v", err)
	}

	ritika, err := s.Contacts().Create(ctx, &model.Contact{
		UserID: userID, Name: "Ritika Sharma", Relationship: "wife", IsCoreContact: true, NetworkLevel: 1,
	})
	if err != nil {
		t.Fatalf("CreateContact ritika: %v", err)
	}
	if got, err := s.Contacts().FindByName(ctx, userID, "ritika", store.MatchSubstring); err != nil || got.ContactID != ritika.ContactID {
		t.Fatalf("FindByName substring: got=%v err=%v", got, err)
	}

	if n, err := s.Contacts().Count(ctx, userID); err != nil || n != 2 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}
	if list, err := s.Contacts().List(ctx, userID); err != nil || len(list) != 2 {
		t.Fatalf("List: n=%d err=%v", len(list), err)
	}

	// Update round-trips interests and address status
	mom.Interests = append(mom.Interests, "cooking")
	mom.Address = model.Address{Street: "1 Rose Ln", City: "Portland"}
	mom.AddressStatus = model.AddressFailed
	if _, err := s.Contacts().Update(ctx, mom); err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	got, err := s.Contacts().Get(ctx, userID, mom.ContactID)
	if err != nil || len(got.Interests) != 2 || got.Address.City != "Portland" || got.AddressStatus != model.AddressFailed {
		t.Fatalf("UpdateContact round-trip: got=%+v err=%v", got, err)
	}

	// Occasions
	when := time.Date(2026, time.April, 16, 0, 0, 0, 0, time.UTC)
	occ, err := s.Occasions().Create(ctx, &model.Occasion{
		UserID: userID, ContactID: mom.ContactID, Name: "Birthday", OccasionType: "birthday", Date: &when,
	})
	if err != nil {
		t.Fatalf("CreateOccasion: %v", err)
	}
	if occ.Status != model.OccasionIdeaNeeded {
		t.Fatalf("new occasion status = %q, want idea_needed", occ.Status)
	}
	if lst, err := s.Occasions().ListByContact(ctx, userID, mom.ContactID); err != nil || len(lst) != 1 || !lst[0].Date.Equal(when) {
		t.Fatalf("ListByContact: %v err=%v", lst, err)
	}
	if err := s.Occasions().UpdateStatus(ctx, userID, occ.OccasionID, model.OccasionShortlisted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// Relationship edges: uniqueness per (user, from, to)
	edge := &model.RelationshipEdge{
		UserID: userID, FromContactID: mom.ContactID, ToContactID: ritika.ContactID,
		RelationshipType: "daughter-in-law", Bidirectional: false,
	}
	if _, err := s.Relationships().Create(ctx, edge); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if _, err := s.Relationships().Create(ctx, edge); !model.IsConflictError(err) {
		t.Fatalf("duplicate edge should conflict, got %v", err)
	}
	if e, err := s.Relationships().Find(ctx, userID, mom.ContactID, ritika.ContactID); err != nil || e.RelationshipType != "daughter-in-law" {
		t.Fatalf("FindEdge: %v err=%v", e, err)
	}
	if lst, err := s.Relationships().ListByContact(ctx, userID, ritika.ContactID); err != nil || len(lst) != 1 {
		t.Fatalf("ListByContact edges: n=%d err=%v", len(lst), err)
	}

	// Deleting a contact cascades to its occasions and edges
	if err := s.Contacts().Delete(ctx, userID, mom.ContactID); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	if _, err := s.Contacts().Get(ctx, userID, mom.ContactID); !model.IsNotFoundError(err) {
		t.Fatalf("deleted contact still readable: %v", err)
	}
	if lst, err := s.Occasions().ListByContact(ctx, userID, mom.ContactID); err != nil || len(lst) != 0 {
		t.Fatalf("occasions not cascaded: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Relationships().ListByContact(ctx, userID, ritika.ContactID); err != nil || len(lst) != 0 {
		t.Fatalf("edges not cascaded: n=%d err=%v", len(lst), err)
	}
}
