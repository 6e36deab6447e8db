package dialog

import (
	"github.com/my3-ai/concierge/internal/model"
)

// ResolveIdentity matches the extracted person against the user's stored
// contacts. A supplied name is matched exact first, then fuzzy at
// FuzzyThreshold or above; a name that matches nothing resolves to not
// found, never to a relationship hit, so "my wife Ritika" stays a new
// person even when some other contact carries the wife label. Relationship
// matching runs only for nameless extractions: one label hit resolves,
// several yield an ambiguous result carrying every candidate.
func ResolveIdentity(person model.PersonFields, contacts []*model.Contact) model.Resolution {
	if person.Empty() {
		return model.Resolution{}
	}

	if person.Name != "" {
		want := NormalizeName(person.Name)
		for _, c := range contacts {
			if NormalizeName(c.Name) == want {
				return model.Resolution{Exists: true, MatchedContactID: c.ContactID}
			}
		}
		var bestID string
		var bestScore float64
		for _, c := range contacts {
			if s := Similarity(person.Name, c.Name); s >= FuzzyThreshold && s > bestScore {
				bestID, bestScore = c.ContactID, s
			}
		}
		if bestID != "" {
			return model.Resolution{Exists: true, MatchedContactID: bestID}
		}
		return model.Resolution{}
	}

	if person.Relationship != "" {
		rel := NormalizeRelationship(person.Relationship, "")
		var hits []model.Candidate
		for _, c := range contacts {
			if RelationshipsMatch(NormalizeRelationship(c.Relationship, ""), rel) {
				hits = append(hits, model.Candidate{ContactID: c.ContactID, Name: c.Name, Relationship: c.Relationship})
			}
		}
		switch len(hits) {
		case 0:
		case 1:
			return model.Resolution{Exists: true, MatchedContactID: hits[0].ContactID}
		default:
			return model.Resolution{Exists: true, Candidates: hits}
		}
	}

	return model.Resolution{}
}
