package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/store/sqlite"
	"github.com/my3-ai/concierge/internal/understanding"
)

func newTestRouter(t *testing.T, stub *understanding.Stub) (*Router, store.Store, string) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(db))
	s := sqlite.NewWithDB(db)

	u, err := s.Users().Create(context.Background(), &model.User{Email: "dev@example.com"})
	require.NoError(t, err)

	return NewRouter(stub, s, zerolog.Nop()), s, u.UserID
}

func seedContact(t *testing.T, s store.Store, userID string, c model.Contact) *model.Contact {
	t.Helper()
	c.UserID = userID
	out, err := s.Contacts().Create(context.Background(), &c)
	require.NoError(t, err)
	return out
}

func turnState(userID, text string, prior ...model.Message) *model.ConversationState {
	msgs := append(prior, model.Message{Role: "user", Content: text, CreationTime: time.Now().UTC()})
	return &model.ConversationState{
		ConversationID: "conv-1",
		UserID:         userID,
		Messages:       msgs,
	}
}

func TestRunTurnGiftSearchForKnownRecipient(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentGiftSearch, Confidence: 0.93},
		Person:         model.PersonFields{Name: "Ritika"},
		Ideas: []model.GiftIdea{
			{Title: "Ceramic planter set", Price: "$40"},
			{Title: "Botanical illustration class", Price: "$85"},
		},
	}
	r, s, userID := newTestRouter(t, stub)
	seedContact(t, s, userID, model.Contact{Name: "Ritika", Relationship: "wife", Interests: []string{"gardening"}})

	st := turnState(userID, "Suggest a gift for Ritika")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, res.GiftIdeas, 2)
	require.Contains(t, res.Reply, "Ceramic planter set")
	require.False(t, st.RequiresConfirm)
	require.Empty(t, st.PendingActions)
	require.Equal(t, model.IntentGiftSearch, st.CurrentIntent)

	// Stored interests flow into the generation context.
	require.NotNil(t, stub.GiftCtx)
	require.Contains(t, stub.GiftCtx.Interests, "gardening")
	require.Equal(t, DefaultIdeaCount, stub.GiftCtx.IdeaCount)
}

func TestRunTurnAddRecipientStagesCreate(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentAddRecipient, Confidence: 0.9},
		Person:         model.PersonFields{Name: "Ritika", Relationship: "wife"},
	}
	r, _, userID := newTestRouter(t, stub)

	st := turnState(userID, "Add my wife Ritika to my network")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.True(t, st.RequiresConfirm)
	require.Len(t, st.PendingActions, 1)
	require.Equal(t, model.ActionCreateRecipient, st.PendingActions[0].Type)
	require.Equal(t, "Ritika", st.PendingActions[0].CreateRecipient.Name)
	require.Contains(t, res.Reply, "Ritika")
	require.Contains(t, res.Reply, "Shall I go ahead?")
	require.Equal(t, res.Reply, st.ConfirmationPrompt)
}

func TestRunTurnNamedNewPersonWithTakenLabelStagesCreate(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentAddRecipient, Confidence: 0.9},
		Person:         model.PersonFields{Name: "Ritika", Relationship: "wife"},
	}
	r, s, userID := newTestRouter(t, stub)
	asha := seedContact(t, s, userID, model.Contact{Name: "Asha", Relationship: "wife"})

	st := turnState(userID, "Add my wife Ritika to my network")
	_, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	// Ritika is a new contact; Asha's record must not absorb her.
	require.Len(t, st.PendingActions, 1)
	create := st.PendingActions[0]
	require.Equal(t, model.ActionCreateRecipient, create.Type)
	require.Equal(t, "Ritika", create.CreateRecipient.Name)
	for _, a := range st.PendingActions {
		if a.Type == model.ActionUpdateRecipient {
			require.NotEqual(t, asha.ContactID, a.UpdateRecipient.ContactID)
		}
	}
}

func TestRunTurnUpdateKnownRecipientStagesUpdateAndOccasion(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentUpdateInfo, Confidence: 0.88},
		Person: model.PersonFields{
			Name:         "Ritika",
			Interests:    []string{"pottery"},
			OccasionName: "birthday",
			OccasionDate: "March 15",
		},
	}
	r, s, userID := newTestRouter(t, stub)
	ritika := seedContact(t, s, userID, model.Contact{Name: "Ritika", Relationship: "wife"})

	st := turnState(userID, "Ritika's birthday is March 15 and she's into pottery now")
	_, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, st.PendingActions, 2)
	require.Equal(t, model.ActionUpdateRecipient, st.PendingActions[0].Type)
	require.Equal(t, ritika.ContactID, st.PendingActions[0].UpdateRecipient.ContactID)
	require.Equal(t, model.ActionCreateOccasion, st.PendingActions[1].Type)
	require.Equal(t, "March 15", st.PendingActions[1].CreateOccasion.RawDate)
}

func TestRunTurnAmbiguousRelationshipAsksForName(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentUpdateInfo, Confidence: 0.8},
		Person:         model.PersonFields{Relationship: "friend", Notes: "likes chess"},
	}
	r, s, userID := newTestRouter(t, stub)
	seedContact(t, s, userID, model.Contact{Name: "Ravi", Relationship: "friend"})
	seedContact(t, s, userID, model.Contact{Name: "Priya", Relationship: "friend"})

	st := turnState(userID, "My friend likes chess")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.False(t, st.RequiresConfirm)
	require.Empty(t, st.PendingActions)
	require.Contains(t, res.Reply, "Who do you mean?")
	require.Contains(t, res.Reply, "Ravi")
	require.Contains(t, res.Reply, "Priya")
	require.True(t, st.Resolution.Ambiguous())
}

func TestRunTurnGiftKeywordsOverrideClassifier(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentCasualChat, Confidence: 0.55},
		Person:         model.PersonFields{Relationship: "wife"},
	}
	r, s, userID := newTestRouter(t, stub)
	seedContact(t, s, userID, model.Contact{Name: "Ritika", Relationship: "wife", Interests: []string{"gardening"}})

	st := turnState(userID, "Suggest a gift for my wife")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.Equal(t, model.IntentGiftSearch, st.CurrentIntent)
	require.NotNil(t, stub.GiftCtx)
	require.NotEmpty(t, res.GiftIdeas)
}

func TestRunTurnMentionStagesSecondaryContact(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentUpdateInfo, Confidence: 0.85},
		Person: model.PersonFields{
			Name:     "Ravi",
			Notes:    "met at the climbing gym",
			Mentions: []model.SecondaryMention{{Name: "Meena", Relationship: "wife"}},
		},
	}
	r, s, userID := newTestRouter(t, stub)
	ravi := seedContact(t, s, userID, model.Contact{Name: "Ravi", Relationship: "friend"})

	st := turnState(userID, "Ravi's wife is Meena, we met at the climbing gym")
	_, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, st.PendingActions, 2)
	sec := st.PendingActions[1]
	require.Equal(t, model.ActionCreateSecondaryContact, sec.Type)
	require.Equal(t, ravi.ContactID, sec.CreateSecondary.PrimaryContactID)
	require.Equal(t, "Meena", sec.CreateSecondary.Name)
	require.True(t, sec.CreateSecondary.Bidirectional)
}

func TestRunTurnAnniversaryPullsPartnerContext(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentGiftSearch, Confidence: 0.9},
		Person:         model.PersonFields{Name: "Ravi", OccasionName: "anniversary"},
	}
	r, s, userID := newTestRouter(t, stub)
	ravi := seedContact(t, s, userID, model.Contact{Name: "Ravi", Relationship: "friend"})
	meena := seedContact(t, s, userID, model.Contact{
		Name: "Meena", Relationship: "friend",
		Interests:   []string{"jazz"},
		Constraints: []string{"no alcohol"},
	})
	_, err := s.Relationships().Create(context.Background(), &model.RelationshipEdge{
		UserID: userID, FromContactID: ravi.ContactID, ToContactID: meena.ContactID,
		RelationshipType: "wife", Bidirectional: true,
	})
	require.NoError(t, err)

	st := turnState(userID, "Find a gift for Ravi's anniversary")
	_, err = r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.NotNil(t, stub.GiftCtx)
	require.NotNil(t, stub.GiftCtx.Partner)
	require.Equal(t, "Meena", stub.GiftCtx.Partner.Name)
	require.Contains(t, stub.GiftCtx.Partner.Interests, "jazz")
	require.Contains(t, stub.GiftCtx.Partner.Constraints, "no alcohol")
}

func TestRunTurnQuotaApology(t *testing.T) {
	stub := &understanding.Stub{ClassifyErr: understanding.ErrQuotaExhausted}
	r, _, userID := newTestRouter(t, stub)

	st := turnState(userID, "hello there")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.Equal(t, model.IntentUnclear, st.CurrentIntent)
	require.Contains(t, res.Reply, "usage limit")
	require.Empty(t, st.PendingActions)
}

func TestRunTurnExtractionFailureApologizes(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentUpdateInfo, Confidence: 0.9},
		ExtractErr:     context.DeadlineExceeded,
	}
	r, _, userID := newTestRouter(t, stub)

	st := turnState(userID, "my sister moved")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, model.IntentUnclear, st.CurrentIntent)
	require.Equal(t, apologyGeneric, res.Reply)
}

func TestRunTurnCasualChatSurfacesDuplicates(t *testing.T) {
	stub := &understanding.Stub{Reply: "Glad to hear it!"}
	r, s, userID := newTestRouter(t, stub)
	seedContact(t, s, userID, model.Contact{Name: "Ritika", Relationship: "wife"})
	seedContact(t, s, userID, model.Contact{Name: "ritika", Relationship: "spouse", Interests: []string{"gardening"}})

	st := turnState(userID, "had a lovely weekend")
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)
	require.Contains(t, res.Reply, "Glad to hear it!")
	require.Contains(t, strings.ToLower(res.Reply), "duplicate")
}

func TestRunTurnAffirmativeAfterDuplicateOfferStagesDeletes(t *testing.T) {
	stub := &understanding.Stub{}
	r, s, userID := newTestRouter(t, stub)
	seedContact(t, s, userID, model.Contact{Name: "Ritika", Relationship: "wife"})
	rich := seedContact(t, s, userID, model.Contact{Name: "ritika", Relationship: "spouse", Interests: []string{"gardening"}})

	prior := model.Message{
		Role:         "assistant",
		Content:      "I noticed duplicate entries for Ritika in your network. Want me to clean them up?",
		CreationTime: time.Now().UTC(),
	}
	st := turnState(userID, "yes please", prior)
	res, err := r.RunTurn(context.Background(), st)
	require.NoError(t, err)

	require.True(t, st.RequiresConfirm)
	require.Len(t, st.PendingActions, 1)
	del := st.PendingActions[0]
	require.Equal(t, model.ActionDeleteRecipient, del.Type)
	require.NotEqual(t, rich.ContactID, del.DeleteRecipient.ContactID)
	require.Contains(t, res.Reply, "Shall I go ahead?")
}
