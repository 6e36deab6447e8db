// Package dialog implements the per-turn conversation pipeline: intent
// classification, person extraction, identity resolution, relationship
// linking, gift generation, and response composition. Mutations are never
// applied here; they are staged on the conversation state and executed only
// after the user confirms.
package dialog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/understanding"
)

const chatPersona = "You are a warm, concise personal gift concierge. You help the user " +
	"remember the people they care about and find thoughtful gifts for them. " +
	"Keep replies short and friendly."

// TurnResult is what one completed turn hands back to the service layer.
// Confirmation state lives on the ConversationState itself.
type TurnResult struct {
	Reply     string
	GiftIdeas []model.GiftIdea
}

// Router drives one user turn through the pipeline and mutates the
// conversation state in place. The caller owns loading and persisting state.
type Router struct {
	svc   understanding.Service
	store store.Store
	gifts *GiftPlanner
	log   zerolog.Logger
}

func NewRouter(svc understanding.Service, s store.Store, log zerolog.Logger) *Router {
	return &Router{
		svc:   svc,
		store: s,
		gifts: NewGiftPlanner(svc, s, log),
		log:   log.With().Str("component", "dialog").Logger(),
	}
}

// RunTurn processes the newest user message already appended to state.
// Understanding failures degrade to an apology turn; only storage failures
// propagate as errors.
func (r *Router) RunTurn(ctx context.Context, state *model.ConversationState) (*TurnResult, error) {
	text := state.LastUserMessage()

	// A bare "yes" right after a duplicate-cleanup offer stages the
	// deletions; they still go through the normal confirmation gate.
	if IsAffirmative(text) && strings.Contains(strings.ToLower(state.LastAssistantMessage()), "duplicate") {
		return r.stageDuplicateCleanup(ctx, state)
	}

	cls, err := r.svc.ClassifyIntent(ctx, text)
	if err != nil {
		r.log.Warn().Err(err).Msg("intent classification failed")
		return r.degrade(state, err), nil
	}
	intent := cls.Intent
	if IsGiftRequest(text) {
		intent = model.IntentGiftSearch
	}
	state.CurrentIntent = intent

	switch intent {
	case model.IntentGiftSearch, model.IntentAddRecipient, model.IntentUpdateInfo:
		return r.runPersonTurn(ctx, state, intent, text)
	default:
		return r.runCasualTurn(ctx, state, text)
	}
}

func (r *Router) runPersonTurn(ctx context.Context, state *model.ConversationState, intent model.Intent, text string) (*TurnResult, error) {
	person, err := r.svc.ExtractPerson(ctx, state.Messages)
	if err != nil {
		r.log.Warn().Err(err).Msg("person extraction failed")
		return r.degrade(state, err), nil
	}
	person.Relationship = NormalizeRelationship(person.Relationship, text)
	state.DetectedPerson = &person

	contacts, err := r.store.Contacts().List(ctx, state.UserID)
	if err != nil {
		return nil, err
	}
	res := ResolveIdentity(person, contacts)
	state.Resolution = &res

	if intent == model.IntentGiftSearch {
		return r.runGiftTurn(ctx, state, person, res, text)
	}

	if res.Ambiguous() {
		r.clearPending(state)
		return &TurnResult{Reply: clarificationPrompt(person, res.Candidates)}, nil
	}

	actions := stageActions(intent, person, res)
	actions = append(actions, LinkMentions(res, person.Mentions, contacts)...)
	if len(actions) == 0 {
		r.clearPending(state)
		if person.Empty() {
			return &TurnResult{Reply: replyNeedPersonInfo}, nil
		}
		reply, err := r.svc.GenerateReply(ctx, chatPersona, text)
		if err != nil {
			return r.degrade(state, err), nil
		}
		return &TurnResult{Reply: reply}, nil
	}

	prompt := confirmationPrompt(actions, contactNamer(contacts))
	state.PendingActions = actions
	state.RequiresConfirm = true
	state.ConfirmationPrompt = prompt
	return &TurnResult{Reply: prompt}, nil
}

func (r *Router) runGiftTurn(ctx context.Context, state *model.ConversationState, person model.PersonFields, res model.Resolution, text string) (*TurnResult, error) {
	r.clearPending(state)
	if res.Ambiguous() {
		return &TurnResult{Reply: clarificationPrompt(person, res.Candidates)}, nil
	}
	ideas, ok, err := r.gifts.Plan(ctx, state.UserID, person, res, text)
	if err != nil {
		r.log.Warn().Err(err).Msg("gift generation failed")
		return r.degrade(state, err), nil
	}
	if !ok || len(ideas) == 0 {
		return &TurnResult{Reply: replyNeedGiftDetails}, nil
	}
	return &TurnResult{Reply: giftReply(person.Name, ideas), GiftIdeas: ideas}, nil
}

func (r *Router) runCasualTurn(ctx context.Context, state *model.ConversationState, text string) (*TurnResult, error) {
	r.clearPending(state)
	reply, err := r.svc.GenerateReply(ctx, chatPersona, text)
	if err != nil {
		r.log.Warn().Err(err).Msg("reply generation failed")
		return r.degrade(state, err), nil
	}

	// Side channel: casual turns are when we surface duplicate entries.
	if contacts, lerr := r.store.Contacts().List(ctx, state.UserID); lerr == nil {
		if groups := findDuplicateGroups(contacts); len(groups) > 0 {
			reply = reply + " " + duplicateOffer(groups)
		}
	}
	return &TurnResult{Reply: reply}, nil
}

// stageDuplicateCleanup re-detects duplicate groups, keeps the
// best-populated entry of each, and stages deletion of the rest.
func (r *Router) stageDuplicateCleanup(ctx context.Context, state *model.ConversationState) (*TurnResult, error) {
	contacts, err := r.store.Contacts().List(ctx, state.UserID)
	if err != nil {
		return nil, err
	}
	groups := findDuplicateGroups(contacts)
	if len(groups) == 0 {
		r.clearPending(state)
		state.CurrentIntent = model.IntentCasualChat
		return &TurnResult{Reply: "Your network looks clean now, nothing to remove."}, nil
	}

	edgeCount := make(map[string]int)
	for _, g := range groups {
		for _, c := range g {
			edges, lerr := r.store.Relationships().ListByContact(ctx, state.UserID, c.ContactID)
			if lerr != nil {
				continue
			}
			edgeCount[c.ContactID] = len(edges)
		}
	}

	var actions []model.PendingAction
	for _, g := range groups {
		_, remove := rankDuplicates(g, edgeCount)
		for _, c := range remove {
			actions = append(actions, model.PendingAction{
				Type:            model.ActionDeleteRecipient,
				DeleteRecipient: &model.DeleteRecipientAction{ContactID: c.ContactID},
			})
		}
	}

	state.CurrentIntent = model.IntentUpdateInfo
	prompt := confirmationPrompt(actions, contactNamer(contacts))
	state.PendingActions = actions
	state.RequiresConfirm = true
	state.ConfirmationPrompt = prompt
	return &TurnResult{Reply: prompt}, nil
}

// degrade records an unclear turn after an upstream failure and words the
// apology by cause.
func (r *Router) degrade(state *model.ConversationState, err error) *TurnResult {
	state.CurrentIntent = model.IntentUnclear
	r.clearPending(state)
	return &TurnResult{Reply: apologyFor(err)}
}

func (r *Router) clearPending(state *model.ConversationState) {
	state.PendingActions = nil
	state.RequiresConfirm = false
	state.ConfirmationPrompt = ""
}

func contactNamer(contacts []*model.Contact) func(string) string {
	byID := make(map[string]string, len(contacts))
	for _, c := range contacts {
		byID[c.ContactID] = c.Name
	}
	return func(id string) string { return byID[id] }
}
