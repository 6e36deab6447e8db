package dialog

import (
	"strings"

	"github.com/my3-ai/concierge/internal/model"
)

// LinkMentions turns the secondary people mentioned in a turn into staged
// graph mutations. Each mention is resolved against the user's contacts by
// name: a known person yields an edge from the primary contact, an unknown
// one yields a level-2 contact plus its edge. Mentions are skipped entirely
// when the primary person did not resolve, since an edge needs both ends.
func LinkMentions(primary model.Resolution, mentions []model.SecondaryMention, contacts []*model.Contact) []model.PendingAction {
	if primary.MatchedContactID == "" || len(mentions) == 0 {
		return nil
	}

	var out []model.PendingAction
	for _, m := range mentions {
		if m.Name == "" {
			continue
		}
		rel := NormalizeRelationship(m.Relationship, "")
		bidi := spousalLabels[rel]

		if id := matchByName(m.Name, contacts); id != "" {
			if id == primary.MatchedContactID {
				continue
			}
			out = append(out, model.PendingAction{
				Type: model.ActionCreateRelationship,
				CreateEdge: &model.CreateEdgeAction{
					FromContactID:    primary.MatchedContactID,
					ToContactID:      id,
					RelationshipType: rel,
					Bidirectional:    bidi,
				},
			})
			continue
		}
		out = append(out, model.PendingAction{
			Type: model.ActionCreateSecondaryContact,
			CreateSecondary: &model.CreateSecondaryAction{
				PrimaryContactID: primary.MatchedContactID,
				Name:             m.Name,
				RelationshipType: rel,
				Bidirectional:    bidi,
			},
		})
	}
	return out
}

// matchByName finds a contact by case-insensitive exact or containment
// match, the same lookup the executor uses when it creates secondary
// contacts, so the staged action matches what confirm will do.
func matchByName(name string, contacts []*model.Contact) string {
	want := NormalizeName(name)
	for _, c := range contacts {
		if NormalizeName(c.Name) == want {
			return c.ContactID
		}
	}
	for _, c := range contacts {
		have := NormalizeName(c.Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return c.ContactID
		}
	}
	return ""
}
