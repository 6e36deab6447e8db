// Package actions applies staged conversation mutations. The dialogue core
// stages actions and asks for confirmation; nothing touches storage until the
// user says yes. Apply is forgiving about individual actions whose references
// disappeared between staging and confirmation, and strict about storage
// failures.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/dates"
	"github.com/my3-ai/concierge/internal/dialog"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

const (
	ReplyNoPending = "There are no pending actions to confirm."
	ReplyCancelled = "Action cancelled. No changes were made."
)

// DefaultMaxContacts bounds a user's network size.
const DefaultMaxContacts = 10

// Executor applies confirmed pending actions in staging order.
type Executor struct {
	store       store.Store
	validator   address.Validator
	maxContacts int
	log         zerolog.Logger
	now         func() time.Time
}

func NewExecutor(s store.Store, v address.Validator, maxContacts int, log zerolog.Logger) *Executor {
	if maxContacts <= 0 {
		maxContacts = DefaultMaxContacts
	}
	if v == nil {
		v = address.Disabled{}
	}
	return &Executor{
		store:       s,
		validator:   v,
		maxContacts: maxContacts,
		log:         log.With().Str("component", "actions").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Confirm consumes the staged actions on state. Declining clears them
// without touching storage. Confirming applies each action in order; an
// action whose referenced contact vanished since staging is skipped, and
// only a storage failure aborts the batch. The pending list is cleared on
// every non-error path, so actions execute at most once.
func (e *Executor) Confirm(ctx context.Context, state *model.ConversationState, confirmed bool) (string, error) {
	if len(state.PendingActions) == 0 {
		return ReplyNoPending, nil
	}
	if !confirmed {
		e.clear(state)
		return ReplyCancelled, nil
	}

	var done, skipped []string
	for _, a := range state.PendingActions {
		note, err := e.apply(ctx, state.UserID, a)
		if err != nil {
			return "", err
		}
		if note.skipped {
			if note.text != "" {
				skipped = append(skipped, note.text)
			}
			continue
		}
		if note.text != "" {
			done = append(done, note.text)
		}
	}
	e.clear(state)

	if len(done) == 0 {
		if len(skipped) > 0 {
			return "Nothing to do: " + strings.Join(skipped, "; ") + ".", nil
		}
		return "Nothing needed doing, everything was already in place.", nil
	}
	reply := "Done! I've " + strings.Join(done, ", ") + "."
	if len(skipped) > 0 {
		reply += " (" + strings.Join(skipped, "; ") + ".)"
	}
	return reply, nil
}

func (e *Executor) clear(state *model.ConversationState) {
	state.PendingActions = nil
	state.RequiresConfirm = false
	state.ConfirmationPrompt = ""
}

type applyNote struct {
	text    string
	skipped bool
}

func (e *Executor) apply(ctx context.Context, userID string, a model.PendingAction) (applyNote, error) {
	switch a.Type {
	case model.ActionCreateRecipient:
		return e.createRecipient(ctx, userID, a.CreateRecipient)
	case model.ActionUpdateRecipient:
		return e.updateRecipient(ctx, userID, a.UpdateRecipient)
	case model.ActionCreateOccasion:
		return e.createOccasion(ctx, userID, a.CreateOccasion)
	case model.ActionCreateRelationship:
		return e.createEdge(ctx, userID, a.CreateEdge)
	case model.ActionCreateSecondaryContact:
		return e.createSecondary(ctx, userID, a.CreateSecondary)
	case model.ActionDeleteRecipient:
		return e.deleteRecipient(ctx, userID, a.DeleteRecipient)
	}
	e.log.Warn().Str("type", string(a.Type)).Msg("unknown pending action type, skipping")
	return applyNote{skipped: true}, nil
}

// createRecipient inserts a new contact, or merges into an existing one when
// a contact with the same name already exists. The bundled occasion, if any,
// is created either way.
func (e *Executor) createRecipient(ctx context.Context, userID string, p *model.CreateRecipientAction) (applyNote, error) {
	existing, err := e.store.Contacts().FindByName(ctx, userID, p.Name, store.MatchExact)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return applyNote{}, err
	}

	var contact *model.Contact
	if existing != nil {
		contact, err = e.mergeInto(ctx, existing, model.ContactPatch{
			Relationship: p.Relationship,
			AgeBand:      p.AgeBand,
			Interests:    p.Interests,
			Constraints:  p.Constraints,
			Notes:        p.Notes,
			Address:      p.Address,
		})
		if err != nil {
			return applyNote{}, err
		}
	} else {
		n, err := e.store.Contacts().Count(ctx, userID)
		if err != nil {
			return applyNote{}, err
		}
		if n >= e.maxContacts {
			return applyNote{skipped: true, text: fmt.Sprintf("your network is full, so %s was not added", p.Name)}, nil
		}
		c := &model.Contact{
			UserID:        userID,
			Name:          p.Name,
			Relationship:  p.Relationship,
			AgeBand:       p.AgeBand,
			Interests:     p.Interests,
			Constraints:   p.Constraints,
			Notes:         p.Notes,
			IsCoreContact: true,
			NetworkLevel:  1,
		}
		if p.Address != nil {
			c.Address = *p.Address
			e.validateAddress(ctx, c)
		}
		contact, err = e.store.Contacts().Create(ctx, c)
		if err != nil {
			return applyNote{}, err
		}
	}

	note := applyNote{text: fmt.Sprintf("added %s to your network", contact.Name)}
	if existing != nil {
		note.text = fmt.Sprintf("updated %s's existing entry", contact.Name)
	}
	if p.OccasionName != "" || p.OccasionDate != "" {
		if _, err := e.insertOccasion(ctx, userID, contact.ContactID, occasionTitle(p.OccasionName), "", p.OccasionDate, ""); err != nil {
			return applyNote{}, err
		}
		note.text += fmt.Sprintf(" and noted their %s", occasionTitle(p.OccasionName))
	}
	return note, nil
}

func occasionTitle(name string) string {
	if name == "" {
		return "occasion"
	}
	return name
}

func (e *Executor) updateRecipient(ctx context.Context, userID string, p *model.UpdateRecipientAction) (applyNote, error) {
	existing, err := e.store.Contacts().Get(ctx, userID, p.ContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true, text: "one entry no longer exists"}, nil
	}
	if err != nil {
		return applyNote{}, err
	}
	updated, err := e.mergeInto(ctx, existing, p.Patch)
	if err != nil {
		return applyNote{}, err
	}
	return applyNote{text: fmt.Sprintf("updated %s's details", updated.Name)}, nil
}

// mergeInto applies non-destructive merge semantics: interests and
// constraints union, notes append unless already present, age fills only
// when blank. A complete new address replaces the old one and is
// re-validated; a partial one only fills blank fields.
func (e *Executor) mergeInto(ctx context.Context, c *model.Contact, patch model.ContactPatch) (*model.Contact, error) {
	out := *c
	if patch.Relationship != "" && out.Relationship == "" {
		out.Relationship = patch.Relationship
	}
	if patch.AgeBand != "" && out.AgeBand == "" {
		out.AgeBand = patch.AgeBand
	}
	out.Interests = unionFold(out.Interests, patch.Interests)
	out.Constraints = unionFold(out.Constraints, patch.Constraints)
	if patch.Notes != "" && !strings.Contains(strings.ToLower(out.Notes), strings.ToLower(patch.Notes)) {
		if out.Notes != "" {
			out.Notes += " "
		}
		out.Notes += patch.Notes
	}
	if patch.Address != nil {
		if patch.Address.Complete() {
			out.Address = *patch.Address
			e.validateAddress(ctx, &out)
		} else {
			fillAddress(&out.Address, *patch.Address)
		}
	}
	return e.store.Contacts().Update(ctx, &out)
}

func fillAddress(dst *model.Address, src model.Address) {
	if dst.Street == "" {
		dst.Street = src.Street
	}
	if dst.City == "" {
		dst.City = src.City
	}
	if dst.State == "" {
		dst.State = src.State
	}
	if dst.PostalCode == "" {
		dst.PostalCode = src.PostalCode
	}
	if dst.Country == "" {
		dst.Country = src.Country
	}
}

func (e *Executor) validateAddress(ctx context.Context, c *model.Contact) {
	res := e.validator.Validate(ctx, c.Address)
	c.AddressStatus = res.Status
	if res.Normalized != nil {
		c.Address = *res.Normalized
	}
}

func (e *Executor) createOccasion(ctx context.Context, userID string, p *model.CreateOccasionAction) (applyNote, error) {
	contact, err := e.store.Contacts().Get(ctx, userID, p.ContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true, text: "one occasion referenced a removed contact"}, nil
	}
	if err != nil {
		return applyNote{}, err
	}
	o, err := e.insertOccasion(ctx, userID, contact.ContactID, p.Name, p.OccasionType, p.RawDate, p.BudgetRange)
	if err != nil {
		return applyNote{}, err
	}
	text := fmt.Sprintf("noted %s's %s", contact.Name, o.Name)
	if o.Date != nil {
		text += " on " + o.Date.Format("January 2")
	}
	return applyNote{text: text}, nil
}

// insertOccasion resolves the raw date text at apply time. Unparseable dates
// are stored dateless rather than rejected.
func (e *Executor) insertOccasion(ctx context.Context, userID, contactID, name, occasionType, rawDate, budget string) (*model.Occasion, error) {
	o := &model.Occasion{
		UserID:       userID,
		ContactID:    contactID,
		Name:         name,
		OccasionType: occasionType,
		BudgetRange:  budget,
		Status:       model.OccasionIdeaNeeded,
	}
	if rawDate != "" {
		if d, ok := dates.Resolve(rawDate, e.now()); ok {
			o.Date = &d
		} else {
			e.log.Debug().Str("raw", rawDate).Msg("occasion date did not parse, storing without date")
		}
	}
	return e.store.Occasions().Create(ctx, o)
}

// createEdge links two existing contacts, mirroring spousal links in the
// reverse direction. Missing endpoints and already-present edges are skipped
// without comment; the graph simply converges to the requested shape.
func (e *Executor) createEdge(ctx context.Context, userID string, p *model.CreateEdgeAction) (applyNote, error) {
	from, err := e.store.Contacts().Get(ctx, userID, p.FromContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true}, nil
	}
	if err != nil {
		return applyNote{}, err
	}
	to, err := e.store.Contacts().Get(ctx, userID, p.ToContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true}, nil
	}
	if err != nil {
		return applyNote{}, err
	}

	created, err := e.ensureEdge(ctx, userID, from.ContactID, to.ContactID, p.RelationshipType, p.Bidirectional)
	if err != nil {
		return applyNote{}, err
	}
	if !created {
		return applyNote{skipped: true}, nil
	}
	return applyNote{text: fmt.Sprintf("linked %s and %s", from.Name, to.Name)}, nil
}

// ensureEdge inserts the edge unless one already exists in either direction,
// and mirrors bidirectional links with the inverse label.
func (e *Executor) ensureEdge(ctx context.Context, userID, fromID, toID, relType string, bidirectional bool) (bool, error) {
	if _, err := e.store.Relationships().Find(ctx, userID, fromID, toID); err == nil {
		return false, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}
	if _, err := e.store.Relationships().Find(ctx, userID, toID, fromID); err == nil {
		return false, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}

	_, err := e.store.Relationships().Create(ctx, &model.RelationshipEdge{
		UserID:           userID,
		FromContactID:    fromID,
		ToContactID:      toID,
		RelationshipType: relType,
		Bidirectional:    bidirectional,
	})
	if err != nil {
		if model.IsConflictError(err) {
			return false, nil
		}
		return false, err
	}
	if bidirectional {
		_, err = e.store.Relationships().Create(ctx, &model.RelationshipEdge{
			UserID:           userID,
			FromContactID:    toID,
			ToContactID:      fromID,
			RelationshipType: dialog.InverseRelationship(relType),
			Bidirectional:    true,
		})
		if err != nil && !model.IsConflictError(err) {
			return false, err
		}
	}
	return true, nil
}

// createSecondary materializes a mentioned person as a level-2 contact and
// links them to the primary. An existing contact whose name contains (or is
// contained by) the mention is reused instead of duplicated.
func (e *Executor) createSecondary(ctx context.Context, userID string, p *model.CreateSecondaryAction) (applyNote, error) {
	primary, err := e.store.Contacts().Get(ctx, userID, p.PrimaryContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true}, nil
	}
	if err != nil {
		return applyNote{}, err
	}

	secondary, err := e.store.Contacts().FindByName(ctx, userID, p.Name, store.MatchSubstring)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return applyNote{}, err
	}
	if secondary == nil {
		n, err := e.store.Contacts().Count(ctx, userID)
		if err != nil {
			return applyNote{}, err
		}
		if n >= e.maxContacts {
			return applyNote{skipped: true, text: fmt.Sprintf("your network is full, so %s was not added", p.Name)}, nil
		}
		secondary, err = e.store.Contacts().Create(ctx, &model.Contact{
			UserID:        userID,
			Name:          p.Name,
			IsCoreContact: false,
			NetworkLevel:  2,
		})
		if err != nil {
			return applyNote{}, err
		}
	}
	if secondary.ContactID == primary.ContactID {
		return applyNote{skipped: true}, nil
	}

	if _, err := e.ensureEdge(ctx, userID, primary.ContactID, secondary.ContactID, p.RelationshipType, p.Bidirectional); err != nil {
		return applyNote{}, err
	}
	return applyNote{text: fmt.Sprintf("noted %s as %s's %s", secondary.Name, primary.Name, p.RelationshipType)}, nil
}

func (e *Executor) deleteRecipient(ctx context.Context, userID string, p *model.DeleteRecipientAction) (applyNote, error) {
	contact, err := e.store.Contacts().Get(ctx, userID, p.ContactID)
	if errors.Is(err, model.ErrNotFound) {
		return applyNote{skipped: true, text: "one entry was already removed"}, nil
	}
	if err != nil {
		return applyNote{}, err
	}
	if err := e.store.Contacts().Delete(ctx, userID, contact.ContactID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return applyNote{skipped: true, text: "one entry was already removed"}, nil
		}
		return applyNote{}, err
	}
	return applyNote{text: fmt.Sprintf("removed %s and their occasions", contact.Name)}, nil
}

// unionFold merges b into a with case-insensitive de-duplication, keeping
// first-seen spellings and order.
func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	for _, s := range b {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
