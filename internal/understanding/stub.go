package understanding

import (
	"context"

	"github.com/my3-ai/concierge/internal/model"
)

// Stub is a deterministic Service used by dialogue tests. Zero-value fields
// return benign defaults; Err (or ClassifyErr etc.) force failure paths.
type Stub struct {
	Classification Classification
	Person         model.PersonFields
	Ideas          []model.GiftIdea
	Reply          string

	Err         error
	ClassifyErr error
	ExtractErr  error
	IdeasErr    error

	// Captured inputs, for assertions.
	ClassifiedText string
	GiftCtx        *GiftContext
}

func (s *Stub) ClassifyIntent(_ context.Context, text string) (Classification, error) {
	s.ClassifiedText = text
	if s.ClassifyErr != nil {
		return Classification{}, s.ClassifyErr
	}
	if s.Err != nil {
		return Classification{}, s.Err
	}
	if s.Classification.Intent == "" {
		return Classification{Intent: model.IntentCasualChat, Confidence: 0.5}, nil
	}
	return s.Classification, nil
}

func (s *Stub) ExtractPerson(_ context.Context, _ []model.Message) (model.PersonFields, error) {
	if s.ExtractErr != nil {
		return model.PersonFields{}, s.ExtractErr
	}
	if s.Err != nil {
		return model.PersonFields{}, s.Err
	}
	return s.Person, nil
}

func (s *Stub) GenerateGiftIdeas(_ context.Context, gc GiftContext) ([]model.GiftIdea, error) {
	cp := gc
	s.GiftCtx = &cp
	if s.IdeasErr != nil {
		return nil, s.IdeasErr
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Ideas == nil {
		return []model.GiftIdea{{Title: "Gift card", Category: "generic"}}, nil
	}
	return s.Ideas, nil
}

func (s *Stub) GenerateReply(_ context.Context, _ string, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Reply == "" {
		return "Happy to help with gifts for the people in your life!", nil
	}
	return s.Reply, nil
}
