package actions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/store/sqlite"
)

type recordingValidator struct {
	calls  int
	result address.Result
}

func (v *recordingValidator) Validate(_ context.Context, _ model.Address) address.Result {
	v.calls++
	if v.result.Status == "" {
		return address.Result{Status: model.AddressValidated}
	}
	return v.result
}

func newTestExecutor(t *testing.T, maxContacts int) (*Executor, store.Store, *sql.DB, string) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(db))
	s := sqlite.NewWithDB(db)

	u, err := s.Users().Create(context.Background(), &model.User{Email: "dev@example.com"})
	require.NoError(t, err)

	e := NewExecutor(s, &recordingValidator{}, maxContacts, zerolog.Nop())
	return e, s, db, u.UserID
}

func pendingState(userID string, actions ...model.PendingAction) *model.ConversationState {
	return &model.ConversationState{
		ConversationID:  "conv-1",
		UserID:          userID,
		PendingActions:  actions,
		RequiresConfirm: len(actions) > 0,
	}
}

func TestConfirmNoPendingActions(t *testing.T) {
	e, _, _, userID := newTestExecutor(t, 0)
	reply, err := e.Confirm(context.Background(), pendingState(userID), true)
	require.NoError(t, err)
	require.Equal(t, ReplyNoPending, reply)
}

func TestConfirmDeclinedClearsWithoutWriting(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	st := pendingState(userID, model.PendingAction{
		Type:            model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{Name: "Ritika", Relationship: "wife"},
	})

	reply, err := e.Confirm(context.Background(), st, false)
	require.NoError(t, err)
	require.Equal(t, ReplyCancelled, reply)
	require.Empty(t, st.PendingActions)
	require.False(t, st.RequiresConfirm)

	n, err := s.Contacts().Count(context.Background(), userID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConfirmCreateRecipientWithBundledOccasion(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	e.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{
			Name:         "Ritika",
			Relationship: "wife",
			Interests:    []string{"gardening"},
			OccasionName: "birthday",
			OccasionDate: "March 15",
		},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "added Ritika")
	require.Empty(t, st.PendingActions)

	c, err := s.Contacts().FindByName(context.Background(), userID, "Ritika", store.MatchExact)
	require.NoError(t, err)
	require.True(t, c.IsCoreContact)
	require.Equal(t, 1, c.NetworkLevel)

	occs, err := s.Occasions().ListByContact(context.Background(), userID, c.ContactID)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	require.NotNil(t, occs[0].Date)
	// March 15 already passed relative to the frozen clock, so it rolls over.
	require.Equal(t, 2026, occs[0].Date.Year())
	require.Equal(t, model.OccasionIdeaNeeded, occs[0].Status)
}

func TestConfirmCreateMergesIntoExistingSameName(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	seeded, err := s.Contacts().Create(context.Background(), &model.Contact{
		UserID: userID, Name: "Ritika", Relationship: "wife",
		Interests: []string{"gardening"}, Notes: "grows orchids",
	})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{
			Name:      "ritika",
			Interests: []string{"Gardening", "pottery"},
			Notes:     "started a pottery class",
		},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "updated Ritika's existing entry")

	n, err := s.Contacts().Count(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	c, err := s.Contacts().Get(context.Background(), userID, seeded.ContactID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"gardening", "pottery"}, c.Interests)
	require.Contains(t, c.Notes, "grows orchids")
	require.Contains(t, c.Notes, "started a pottery class")
}

func TestConfirmCreateRespectsNetworkCap(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 1)
	_, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type:            model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{Name: "Priya"},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "network is full")

	n, err := s.Contacts().Count(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestConfirmUpdateMergeSemantics(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	v := &recordingValidator{result: address.Result{
		Status: model.AddressValidated,
		Normalized: &model.Address{
			Street: "1600 Amphitheatre Parkway", City: "Mountain View", State: "CA",
			Formatted: "1600 Amphitheatre Pkwy, Mountain View, CA",
		},
	}}
	e.validator = v

	seeded, err := s.Contacts().Create(context.Background(), &model.Contact{
		UserID: userID, Name: "Ravi", AgeBand: "30s", Notes: "met at the climbing gym",
	})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionUpdateRecipient,
		UpdateRecipient: &model.UpdateRecipientAction{
			ContactID: seeded.ContactID,
			Patch: model.ContactPatch{
				AgeBand: "40s",
				Notes:   "met at the climbing gym",
				Address: &model.Address{Street: "1600 Amphitheatre Parkway", City: "Mountain View"},
			},
		},
	})
	_, err = e.Confirm(context.Background(), st, true)
	require.NoError(t, err)

	c, err := s.Contacts().Get(context.Background(), userID, seeded.ContactID)
	require.NoError(t, err)
	require.Equal(t, "30s", c.AgeBand, "age only fills when blank")
	require.Equal(t, "met at the climbing gym", c.Notes, "duplicate note must not append")
	require.Equal(t, model.AddressValidated, c.AddressStatus)
	require.Equal(t, "Mountain View", c.Address.City)
	require.Equal(t, 1, v.calls, "complete address triggers validation")
}

func TestConfirmUpdateMissingContactSkips(t *testing.T) {
	e, _, _, userID := newTestExecutor(t, 0)
	st := pendingState(userID, model.PendingAction{
		Type:            model.ActionUpdateRecipient,
		UpdateRecipient: &model.UpdateRecipientAction{ContactID: "gone", Patch: model.ContactPatch{Notes: "x"}},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "no longer exists")
	require.Empty(t, st.PendingActions)
}

func TestConfirmEdgeMirrorsSpousalLink(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	ravi, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)
	meena, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Meena"})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateRelationship,
		CreateEdge: &model.CreateEdgeAction{
			FromContactID: ravi.ContactID, ToContactID: meena.ContactID,
			RelationshipType: "wife", Bidirectional: true,
		},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "linked Ravi and Meena")

	forward, err := s.Relationships().Find(context.Background(), userID, ravi.ContactID, meena.ContactID)
	require.NoError(t, err)
	require.Equal(t, "wife", forward.RelationshipType)

	back, err := s.Relationships().Find(context.Background(), userID, meena.ContactID, ravi.ContactID)
	require.NoError(t, err)
	require.Equal(t, "husband", back.RelationshipType)
}

func TestConfirmEdgeSkipsWhenAlreadyLinked(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	a, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "A"})
	require.NoError(t, err)
	b, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "B"})
	require.NoError(t, err)
	_, err = s.Relationships().Create(context.Background(), &model.RelationshipEdge{
		UserID: userID, FromContactID: b.ContactID, ToContactID: a.ContactID, RelationshipType: "friend",
	})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateRelationship,
		CreateEdge: &model.CreateEdgeAction{
			FromContactID: a.ContactID, ToContactID: b.ContactID, RelationshipType: "friend",
		},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "Nothing")

	edges, err := s.Relationships().ListByContact(context.Background(), userID, a.ContactID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
}

func TestConfirmEdgeSkipsMissingEndpoint(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	a, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "A"})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateRelationship,
		CreateEdge: &model.CreateEdgeAction{
			FromContactID: a.ContactID, ToContactID: "gone", RelationshipType: "friend",
		},
	})
	_, err = e.Confirm(context.Background(), st, true)
	require.NoError(t, err)

	edges, err := s.Relationships().ListByContact(context.Background(), userID, a.ContactID)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestConfirmSecondaryReusesExistingContact(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	ravi, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)
	full, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Meena Iyer"})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateSecondaryContact,
		CreateSecondary: &model.CreateSecondaryAction{
			PrimaryContactID: ravi.ContactID, Name: "Meena",
			RelationshipType: "wife", Bidirectional: true,
		},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "Meena Iyer as Ravi's wife")

	n, err := s.Contacts().Count(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 2, n, "existing contact must be reused, not duplicated")

	_, err = s.Relationships().Find(context.Background(), userID, ravi.ContactID, full.ContactID)
	require.NoError(t, err)
}

func TestConfirmSecondaryCreatesLevelTwoContact(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	ravi, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Ravi"})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type: model.ActionCreateSecondaryContact,
		CreateSecondary: &model.CreateSecondaryAction{
			PrimaryContactID: ravi.ContactID, Name: "Anand", RelationshipType: "brother",
		},
	})
	_, err = e.Confirm(context.Background(), st, true)
	require.NoError(t, err)

	anand, err := s.Contacts().FindByName(context.Background(), userID, "Anand", store.MatchExact)
	require.NoError(t, err)
	require.False(t, anand.IsCoreContact)
	require.Equal(t, 2, anand.NetworkLevel)
}

func TestConfirmDeleteRecipient(t *testing.T) {
	e, s, _, userID := newTestExecutor(t, 0)
	ritika, err := s.Contacts().Create(context.Background(), &model.Contact{UserID: userID, Name: "Ritika"})
	require.NoError(t, err)
	_, err = s.Occasions().Create(context.Background(), &model.Occasion{
		UserID: userID, ContactID: ritika.ContactID, Name: "birthday", Status: model.OccasionIdeaNeeded,
	})
	require.NoError(t, err)

	st := pendingState(userID, model.PendingAction{
		Type:            model.ActionDeleteRecipient,
		DeleteRecipient: &model.DeleteRecipientAction{ContactID: ritika.ContactID},
	})
	reply, err := e.Confirm(context.Background(), st, true)
	require.NoError(t, err)
	require.Contains(t, reply, "removed Ritika")

	_, err = s.Contacts().Get(context.Background(), userID, ritika.ContactID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConfirmStorageFailureAborts(t *testing.T) {
	e, _, db, userID := newTestExecutor(t, 0)
	st := pendingState(userID, model.PendingAction{
		Type:            model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{Name: "Ritika"},
	})
	require.NoError(t, db.Close())

	_, err := e.Confirm(context.Background(), st, true)
	require.Error(t, err)
	require.NotEmpty(t, st.PendingActions, "pending actions survive a failed confirm")
}
