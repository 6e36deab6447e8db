package dialog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/understanding"
)

// DefaultIdeaCount is the soft target for one gift-search turn. The
// generator may return fewer when constraints leave little room.
const DefaultIdeaCount = 5

// GiftPlanner assembles the recipient context for a gift-search turn and
// runs generation. On anniversary turns it walks the relationship graph for
// the recipient's spouse so ideas can be framed as joint experiences.
type GiftPlanner struct {
	svc   understanding.Service
	store store.Store
	log   zerolog.Logger
}

func NewGiftPlanner(svc understanding.Service, s store.Store, log zerolog.Logger) *GiftPlanner {
	return &GiftPlanner{svc: svc, store: s, log: log}
}

// Plan generates gift ideas for the resolved contact, or from the extracted
// fields alone when the person is not stored. It returns ok=false when the
// turn carries too little signal to generate anything useful.
func (g *GiftPlanner) Plan(ctx context.Context, userID string, person model.PersonFields, res model.Resolution, userText string) ([]model.GiftIdea, bool, error) {
	gc := understanding.GiftContext{
		RecipientName: person.Name,
		Relationship:  person.Relationship,
		AgeBand:       person.AgeBand,
		Interests:     person.Interests,
		Constraints:   person.Constraints,
		OccasionHint:  person.OccasionName,
		IdeaCount:     DefaultIdeaCount,
	}

	var recipient *model.Contact
	if res.MatchedContactID != "" {
		c, err := g.store.Contacts().Get(ctx, userID, res.MatchedContactID)
		if err == nil {
			recipient = c
			mergeContactContext(&gc, c)
		} else {
			g.log.Warn().Err(err).Str("contactId", res.MatchedContactID).Msg("gift recipient lookup failed, using extracted fields")
		}
	}

	if gc.RecipientName == "" && gc.Relationship == "" && len(gc.Interests) == 0 {
		return nil, false, nil
	}

	if recipient != nil && isAnniversaryTurn(userText, person.OccasionName) {
		if p := g.lookupPartner(ctx, userID, recipient.ContactID); p != nil {
			gc.Partner = p
		}
	}

	ideas, err := g.svc.GenerateGiftIdeas(ctx, gc)
	if err != nil {
		return nil, false, err
	}
	return ideas, true, nil
}

func mergeContactContext(gc *understanding.GiftContext, c *model.Contact) {
	if gc.RecipientName == "" {
		gc.RecipientName = c.Name
	}
	if gc.Relationship == "" {
		gc.Relationship = c.Relationship
	}
	if gc.AgeBand == "" {
		gc.AgeBand = c.AgeBand
	}
	gc.Interests = unionStrings(c.Interests, gc.Interests)
	gc.Constraints = unionStrings(c.Constraints, gc.Constraints)
}

func isAnniversaryTurn(userText, occasionName string) bool {
	t := strings.ToLower(userText + " " + occasionName)
	return strings.Contains(t, "anniversary") || strings.Contains(t, "wedding")
}

// lookupPartner follows edges out of the recipient looking for a spousal
// link in either direction. Lookup failures degrade to no partner context.
func (g *GiftPlanner) lookupPartner(ctx context.Context, userID, contactID string) *understanding.PartnerContext {
	edges, err := g.store.Relationships().ListByContact(ctx, userID, contactID)
	if err != nil {
		g.log.Warn().Err(err).Str("contactId", contactID).Msg("partner edge lookup failed")
		return nil
	}
	for _, e := range edges {
		if !spousalLabels[NormalizeRelationship(e.RelationshipType, "")] {
			continue
		}
		otherID := e.ToContactID
		if otherID == contactID {
			otherID = e.FromContactID
		}
		partner, err := g.store.Contacts().Get(ctx, userID, otherID)
		if err != nil {
			continue
		}
		return &understanding.PartnerContext{
			Name:        partner.Name,
			AgeBand:     partner.AgeBand,
			Interests:   partner.Interests,
			Constraints: partner.Constraints,
		}
	}
	return nil
}

// unionStrings merges b into a preserving order and case-insensitive
// uniqueness.
func unionStrings(a, b []string) []string {
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
