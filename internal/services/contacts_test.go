package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/store/sqlite"
)

func newContactFixture(t *testing.T, maxContacts int) (*ContactService, store.Store, string) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(db))
	s := sqlite.NewWithDB(db)

	u, err := s.Users().Create(context.Background(), &model.User{Email: "dev@example.com"})
	require.NoError(t, err)
	return NewContactService(s, address.Disabled{}, maxContacts), s, u.UserID
}

func TestContactCreateRequiresName(t *testing.T) {
	svc, _, userID := newContactFixture(t, 0)
	_, err := svc.Create(context.Background(), &model.Contact{UserID: userID, Name: "  "})
	require.True(t, model.IsValidationError(err))
}

func TestContactCreateEnforcesLimit(t *testing.T) {
	svc, _, userID := newContactFixture(t, 1)
	_, err := svc.Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &model.Contact{UserID: userID, Name: "Priya"})
	require.True(t, model.IsConflictError(err))
}

func TestContactUpdatePreservesIdentityFields(t *testing.T) {
	svc, _, userID := newContactFixture(t, 0)
	created, err := svc.Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), &model.Contact{
		UserID:    userID,
		ContactID: created.ContactID,
		Name:      "Ravi Kumar",
		Interests: []string{"climbing"},
	})
	require.NoError(t, err)
	require.Equal(t, "Ravi Kumar", updated.Name)
	require.Equal(t, created.NetworkLevel, updated.NetworkLevel)
	require.True(t, updated.IsCoreContact)
}

func TestListOccasionsRollsDatesForward(t *testing.T) {
	svc, s, userID := newContactFixture(t, 0)
	c, err := svc.Create(context.Background(), &model.Contact{UserID: userID, Name: "Ritika"})
	require.NoError(t, err)

	past := time.Date(2020, time.March, 15, 0, 0, 0, 0, time.UTC)
	_, err = s.Occasions().Create(context.Background(), &model.Occasion{
		UserID: userID, ContactID: c.ContactID, Name: "birthday",
		Date: &past, Status: model.OccasionIdeaNeeded,
	})
	require.NoError(t, err)

	occs, err := svc.ListOccasions(context.Background(), userID, c.ContactID)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	require.NotNil(t, occs[0].NextDate)
	require.False(t, occs[0].NextDate.Before(time.Now().UTC().Truncate(24*time.Hour)))
	require.Equal(t, time.March, occs[0].NextDate.Month())
}

func TestListOccasionsUnknownContact(t *testing.T) {
	svc, _, userID := newContactFixture(t, 0)
	_, err := svc.ListOccasions(context.Background(), userID, "missing")
	require.True(t, model.IsNotFoundError(err))
}
