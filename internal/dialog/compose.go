package dialog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/understanding"
)

const (
	replyNoPendingActions = "There are no pending actions to confirm."
	replyCancelled        = "Action cancelled. No changes were made."
	apologyQuota          = "I'm sorry, I've hit my usage limit for the moment. Please try again in a little while."
	apologyGeneric        = "I'm sorry, I had trouble understanding that. Could you rephrase?"
	replyNeedGiftDetails  = "I'd love to help with a gift. Who is it for, and what are they into?"
	replyNeedPersonInfo   = "Tell me a bit more about them so I can keep your network up to date. What's their name?"
)

// apologyFor words the failure reply, distinguishing quota exhaustion from
// every other upstream failure.
func apologyFor(err error) string {
	if errors.Is(err, understanding.ErrQuotaExhausted) {
		return apologyQuota
	}
	return apologyGeneric
}

// stageActions converts the extracted person and its resolution into the
// turn's primary mutation. A resolved contact gets a partial update, an
// unresolved one a create; ambiguity stages nothing and is handled by the
// clarification reply. Relationship mentions are staged separately by
// LinkMentions.
func stageActions(intent model.Intent, person model.PersonFields, res model.Resolution) []model.PendingAction {
	if intent != model.IntentAddRecipient && intent != model.IntentUpdateInfo {
		return nil
	}
	if person.Empty() || res.Ambiguous() {
		return nil
	}

	if res.MatchedContactID != "" {
		var out []model.PendingAction
		patch := personPatch(person)
		if !patchEmpty(patch) {
			out = append(out, model.PendingAction{
				Type: model.ActionUpdateRecipient,
				UpdateRecipient: &model.UpdateRecipientAction{
					ContactID: res.MatchedContactID,
					Patch:     patch,
				},
			})
		}
		if person.OccasionName != "" || person.OccasionDate != "" {
			out = append(out, model.PendingAction{
				Type: model.ActionCreateOccasion,
				CreateOccasion: &model.CreateOccasionAction{
					ContactID: res.MatchedContactID,
					Name:      occasionName(person),
					RawDate:   person.OccasionDate,
				},
			})
		}
		return out
	}

	if person.Name == "" {
		return nil
	}
	return []model.PendingAction{{
		Type: model.ActionCreateRecipient,
		CreateRecipient: &model.CreateRecipientAction{
			Name:         person.Name,
			Relationship: person.Relationship,
			AgeBand:      person.AgeBand,
			Interests:    person.Interests,
			Constraints:  person.Constraints,
			Notes:        person.Notes,
			Address:      person.Address,
			OccasionName: person.OccasionName,
			OccasionDate: person.OccasionDate,
		},
	}}
}

func occasionName(p model.PersonFields) string {
	if p.OccasionName != "" {
		return p.OccasionName
	}
	return "occasion"
}

func personPatch(p model.PersonFields) model.ContactPatch {
	return model.ContactPatch{
		Relationship: p.Relationship,
		AgeBand:      p.AgeBand,
		Interests:    p.Interests,
		Constraints:  p.Constraints,
		Notes:        p.Notes,
		Address:      p.Address,
	}
}

func patchEmpty(p model.ContactPatch) bool {
	return p.Relationship == "" && p.AgeBand == "" && len(p.Interests) == 0 &&
		len(p.Constraints) == 0 && p.Notes == "" && p.Address == nil
}

// confirmationPrompt summarizes every staged action in one question. nameOf
// resolves contact ids to display names and may return "" for unknown ids.
func confirmationPrompt(actions []model.PendingAction, nameOf func(string) string) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a.Type {
		case model.ActionCreateRecipient:
			p := a.CreateRecipient
			s := fmt.Sprintf("add %s", p.Name)
			if p.Relationship != "" {
				s += fmt.Sprintf(" (your %s)", p.Relationship)
			}
			s += " to your gift network"
			if p.OccasionName != "" && p.OccasionDate != "" {
				s += fmt.Sprintf(" with their %s on %s", p.OccasionName, p.OccasionDate)
			}
			parts = append(parts, s)
		case model.ActionUpdateRecipient:
			parts = append(parts, fmt.Sprintf("update %s's details", displayName(nameOf, a.UpdateRecipient.ContactID)))
		case model.ActionCreateOccasion:
			p := a.CreateOccasion
			s := fmt.Sprintf("add a %s for %s", p.Name, displayName(nameOf, p.ContactID))
			if p.RawDate != "" {
				s += fmt.Sprintf(" on %s", p.RawDate)
			}
			parts = append(parts, s)
		case model.ActionCreateRelationship:
			p := a.CreateEdge
			parts = append(parts, fmt.Sprintf("link %s and %s (%s)",
				displayName(nameOf, p.FromContactID), displayName(nameOf, p.ToContactID), p.RelationshipType))
		case model.ActionCreateSecondaryContact:
			p := a.CreateSecondary
			parts = append(parts, fmt.Sprintf("note %s as %s's %s",
				p.Name, displayName(nameOf, p.PrimaryContactID), p.RelationshipType))
		case model.ActionDeleteRecipient:
			parts = append(parts, fmt.Sprintf("remove the duplicate entry for %s",
				displayName(nameOf, a.DeleteRecipient.ContactID)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("Here's what I'll do: %s. Shall I go ahead?", strings.Join(parts, "; "))
}

func displayName(nameOf func(string) string, id string) string {
	if nameOf != nil {
		if n := nameOf(id); n != "" {
			return n
		}
	}
	return "this contact"
}

// clarificationPrompt words the ambiguity question with every candidate.
func clarificationPrompt(person model.PersonFields, candidates []model.Candidate) string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	who := person.Relationship
	if who == "" {
		who = "person"
	}
	return fmt.Sprintf("I know more than one %s: %s. Who do you mean?", who, strings.Join(names, ", "))
}

// giftReply formats a ranked idea list for the chat response body. The full
// structured ideas travel alongside in the response payload.
func giftReply(recipientName string, ideas []model.GiftIdea) string {
	var b strings.Builder
	if recipientName != "" {
		fmt.Fprintf(&b, "Here are some ideas for %s:\n", recipientName)
	} else {
		b.WriteString("Here are some ideas:\n")
	}
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s", i+1, idea.Title)
		if idea.Price != "" {
			fmt.Fprintf(&b, " (%s)", idea.Price)
		}
		if idea.Description != "" {
			fmt.Fprintf(&b, " - %s", idea.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// findDuplicateGroups clusters contacts whose names are near-identical and
// whose relationships agree. Each returned group has at least two members.
func findDuplicateGroups(contacts []*model.Contact) [][]*model.Contact {
	var groups [][]*model.Contact
	used := make(map[string]bool)
	for i, c := range contacts {
		if used[c.ContactID] {
			continue
		}
		group := []*model.Contact{c}
		for _, other := range contacts[i+1:] {
			if used[other.ContactID] {
				continue
			}
			if Similarity(c.Name, other.Name) < FuzzyThreshold {
				continue
			}
			relA := NormalizeRelationship(c.Relationship, "")
			relB := NormalizeRelationship(other.Relationship, "")
			if relA != "" && relB != "" && !RelationshipsMatch(relA, relB) {
				continue
			}
			group = append(group, other)
			used[other.ContactID] = true
		}
		if len(group) > 1 {
			used[c.ContactID] = true
			groups = append(groups, group)
		}
	}
	return groups
}

// duplicateOffer appends the cleanup suggestion to a casual reply.
func duplicateOffer(groups [][]*model.Contact) string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g[0].Name)
	}
	return fmt.Sprintf("By the way, I noticed duplicate entries for %s in your network. Want me to clean them up?",
		strings.Join(names, ", "))
}

// rankDuplicates picks the best-populated contact of a group to keep. More
// interests win, then longer notes, then more relationship edges, then the
// most recently created entry.
func rankDuplicates(group []*model.Contact, edgeCount map[string]int) (keep *model.Contact, remove []*model.Contact) {
	keep = group[0]
	for _, c := range group[1:] {
		if duplicateScoreLess(keep, c, edgeCount) {
			keep = c
		}
	}
	for _, c := range group {
		if c.ContactID != keep.ContactID {
			remove = append(remove, c)
		}
	}
	return keep, remove
}

func duplicateScoreLess(a, b *model.Contact, edgeCount map[string]int) bool {
	if len(a.Interests) != len(b.Interests) {
		return len(a.Interests) < len(b.Interests)
	}
	if len(a.Notes) != len(b.Notes) {
		return len(a.Notes) < len(b.Notes)
	}
	if edgeCount[a.ContactID] != edgeCount[b.ContactID] {
		return edgeCount[a.ContactID] < edgeCount[b.ContactID]
	}
	return a.CreationTime.Before(b.CreationTime)
}
