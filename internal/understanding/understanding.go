// Package understanding defines the narrow language-model boundary the
// dialogue core depends on. The control flow is independent of which
// model or provider answers; tests substitute a deterministic stub.
package understanding

import (
	"context"
	"errors"

	"github.com/my3-ai/concierge/internal/model"
)

// ErrQuotaExhausted marks upstream quota/rate failures so the router can word
// its apology differently from a generic model failure.
var ErrQuotaExhausted = errors.New("understanding: quota exhausted")

// Classification is the intent verdict for one user turn.
type Classification struct {
	Intent     model.Intent
	Confidence float64
}

// GiftContext carries everything the generator knows about the recipient,
// plus the recipient's partner on anniversary turns.
type GiftContext struct {
	RecipientName string
	Relationship  string
	AgeBand       string
	Interests     []string
	Constraints   []string
	OccasionHint  string
	Partner       *PartnerContext
	IdeaCount     int
}

// PartnerContext describes the linked spouse/partner for joint-gift turns.
type PartnerContext struct {
	Name        string
	AgeBand     string
	Interests   []string
	Constraints []string
}

// Service is the text-understanding boundary: intent classification,
// structured person extraction, ranked gift generation, and free-text replies.
type Service interface {
	ClassifyIntent(ctx context.Context, text string) (Classification, error)
	ExtractPerson(ctx context.Context, conversation []model.Message) (model.PersonFields, error)
	GenerateGiftIdeas(ctx context.Context, gc GiftContext) ([]model.GiftIdea, error)
	GenerateReply(ctx context.Context, systemContext, userText string) (string, error)
}
