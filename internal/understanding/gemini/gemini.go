// Package gemini implements the understanding boundary on the Gemini API
// using structured JSON output for classification and extraction.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/understanding"
)

const defaultModel = "gemini-2.0-flash"

// How many conversation turns the extractor sees.
const extractWindow = 5

type Provider struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// New creates a Gemini-backed understanding service.
func New(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client, model: modelName, log: log}, nil
}

var _ understanding.Service = (*Provider)(nil)

const classifySystem = `You classify one chat message sent to a personal
gift-concierge assistant. Pick exactly one intent:
gift_search   - the user wants gift suggestions for someone
add_recipient - the user wants to add a person to their network
update_info   - the user shares new facts about a known person
casual_chat   - greeting or small talk
unclear       - none of the above fits`

var classifySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type: genai.TypeString,
			Enum: []string{"gift_search", "add_recipient", "update_info", "casual_chat", "unclear"},
		},
		"confidence": {Type: genai.TypeNumber},
	},
	Required: []string{"intent", "confidence"},
}

func (p *Provider) ClassifyIntent(ctx context.Context, text string) (understanding.Classification, error) {
	raw, err := p.generateJSON(ctx, classifySystem, text, classifySchema)
	if err != nil {
		return understanding.Classification{}, err
	}
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return understanding.Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	return understanding.Classification{Intent: model.Intent(out.Intent), Confidence: out.Confidence}, nil
}

const extractSystem = `You extract structured facts about the person being
discussed in a gift-concierge conversation. Only report what the text states;
leave unknown fields empty. "mentions" lists other people referenced in
relation to the main person (e.g. "Ravi's wife is Ritika").`

var extractSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":         {Type: genai.TypeString},
		"relationship": {Type: genai.TypeString},
		"ageBand":      {Type: genai.TypeString},
		"interests":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"constraints":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"notes":        {Type: genai.TypeString},
		"occasionName": {Type: genai.TypeString},
		"occasionDate": {Type: genai.TypeString},
		"mentions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":         {Type: genai.TypeString},
					"relationship": {Type: genai.TypeString},
				},
				Required: []string{"name", "relationship"},
			},
		},
		"address": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"street":     {Type: genai.TypeString},
				"city":       {Type: genai.TypeString},
				"state":      {Type: genai.TypeString},
				"postalCode": {Type: genai.TypeString},
				"country":    {Type: genai.TypeString},
			},
		},
	},
}

func (p *Provider) ExtractPerson(ctx context.Context, conversation []model.Message) (model.PersonFields, error) {
	start := len(conversation) - extractWindow
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, m := range conversation[start:] {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	raw, err := p.generateJSON(ctx, extractSystem, b.String(), extractSchema)
	if err != nil {
		return model.PersonFields{}, err
	}
	var out model.PersonFields
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.PersonFields{}, fmt.Errorf("decode extraction: %w", err)
	}
	if out.Address != nil && out.Address.Empty() {
		out.Address = nil
	}
	return out, nil
}

var giftSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"ideas": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"price":       {Type: genai.TypeString},
					"category":    {Type: genai.TypeString},
					"url":         {Type: genai.TypeString},
				},
				Required: []string{"title"},
			},
		},
	},
	Required: []string{"ideas"},
}

func (p *Provider) GenerateGiftIdeas(ctx context.Context, gc understanding.GiftContext) ([]model.GiftIdea, error) {
	count := gc.IdeaCount
	if count <= 0 {
		count = 5
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest exactly %d gift ideas.\n", count)
	if gc.RecipientName != "" {
		fmt.Fprintf(&b, "Recipient: %s\n", gc.RecipientName)
	}
	if gc.Relationship != "" {
		fmt.Fprintf(&b, "Relationship to the buyer: %s\n", gc.Relationship)
	}
	if gc.AgeBand != "" {
		fmt.Fprintf(&b, "Age: %s\n", gc.AgeBand)
	}
	if len(gc.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(gc.Interests, ", "))
	}
	if len(gc.Constraints) > 0 {
		fmt.Fprintf(&b, "Constraints to respect: %s\n", strings.Join(gc.Constraints, ", "))
	}
	if gc.OccasionHint != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", gc.OccasionHint)
	}
	if gc.Partner != nil {
		fmt.Fprintf(&b, "Partner: %s", gc.Partner.Name)
		if gc.Partner.AgeBand != "" {
			fmt.Fprintf(&b, " (age %s)", gc.Partner.AgeBand)
		}
		if len(gc.Partner.Interests) > 0 {
			fmt.Fprintf(&b, ", interests: %s", strings.Join(gc.Partner.Interests, ", "))
		}
		if len(gc.Partner.Constraints) > 0 {
			fmt.Fprintf(&b, ", constraints to respect: %s", strings.Join(gc.Partner.Constraints, ", "))
		}
		b.WriteString("\nPrefer shared or joint-experience ideas the couple can enjoy together.\n")
	}

	raw, err := p.generateJSON(ctx, "You are a thoughtful gift concierge. Rank ideas best first.", b.String(), giftSchema)
	if err != nil {
		return nil, err
	}
	var out struct {
		Ideas []model.GiftIdea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode gift ideas: %w", err)
	}
	return out.Ideas, nil
}

func (p *Provider) GenerateReply(ctx context.Context, systemContext, userText string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(userText), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemContext, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		return "", p.wrapErr(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *Provider) generateJSON(ctx context.Context, system, user string, schema *genai.Schema) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	})
	if err != nil {
		return "", p.wrapErr(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}

func (p *Provider) wrapErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") {
		p.log.Warn().Err(err).Msg("gemini quota exhausted")
		return fmt.Errorf("%w: %s", understanding.ErrQuotaExhausted, err)
	}
	p.log.Error().Err(err).Msg("gemini request failed")
	return err
}
