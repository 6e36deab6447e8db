package model

import "time"

// Intent classifies the purpose of a single user turn.
type Intent string

const (
	IntentGiftSearch   Intent = "gift_search"
	IntentAddRecipient Intent = "add_recipient"
	IntentUpdateInfo   Intent = "update_info"
	IntentCasualChat   Intent = "casual_chat"
	IntentUnclear      Intent = "unclear"
)

// AddressStatus reports the outcome of address validation for a contact.
type AddressStatus string

const (
	AddressValidated   AddressStatus = "validated"
	AddressUnvalidated AddressStatus = "unvalidated"
	AddressFailed      AddressStatus = "failed"
)

// OccasionStatus tracks how far gift planning for an occasion has progressed.
type OccasionStatus string

const (
	OccasionIdeaNeeded  OccasionStatus = "idea_needed"
	OccasionShortlisted OccasionStatus = "shortlisted"
	OccasionDecided     OccasionStatus = "decided"
	OccasionDone        OccasionStatus = "done"
)

// User represents an account in the system.
type User struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"displayName"`
	HashedPassword string    `json:"-"`
	CreationTime   time.Time `json:"creationTime"`
}

// Address holds the structured address fields of a contact.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	// Formatted is the normalized address returned by the validator.
	Formatted string `json:"formatted,omitempty"`
}

// Complete reports whether the address carries enough fields to validate.
func (a Address) Complete() bool { return a.Street != "" && a.City != "" }

// Empty reports whether no address field is set.
func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == ""
}

// Contact is a person in a user's gift network. Level-1 contacts are added
// directly by the user; level-2 contacts are discovered through relationship
// mentions about a level-1 contact.
type Contact struct {
	ContactID     string        `json:"contactId"`
	UserID        string        `json:"userId"`
	Name          string        `json:"name"`
	Relationship  string        `json:"relationship,omitempty"`
	AgeBand       string        `json:"ageBand,omitempty"`
	Interests     []string      `json:"interests,omitempty"`
	Constraints   []string      `json:"constraints,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	IsCoreContact bool          `json:"isCoreContact"`
	NetworkLevel  int           `json:"networkLevel"`
	Address       Address       `json:"address"`
	AddressStatus AddressStatus `json:"addressStatus"`
	CreationTime  time.Time     `json:"creationTime"`
	UpdateTime    time.Time     `json:"updateTime"`
}

// ContactPatch carries the subset of contact fields an update action sets.
// Nil slices and empty strings mean "leave unchanged"; interests and
// constraints merge as a set union, notes append unless already contained.
type ContactPatch struct {
	Relationship string   `json:"relationship,omitempty"`
	AgeBand      string   `json:"ageBand,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Address      *Address `json:"address,omitempty"`
}

// RelationshipEdge is a directed link between two contacts of one user.
type RelationshipEdge struct {
	EdgeID           string    `json:"edgeId"`
	UserID           string    `json:"userId"`
	FromContactID    string    `json:"fromContactId"`
	ToContactID      string    `json:"toContactId"`
	RelationshipType string    `json:"relationshipType"`
	Bidirectional    bool      `json:"bidirectional"`
	CreationTime     time.Time `json:"creationTime"`
}

// Occasion is a dated or undated event tied to one contact.
type Occasion struct {
	OccasionID   string         `json:"occasionId"`
	UserID       string         `json:"userId"`
	ContactID    string         `json:"contactId"`
	Name         string         `json:"name"`
	OccasionType string         `json:"occasionType,omitempty"`
	Date         *time.Time     `json:"date,omitempty"`
	BudgetRange  string         `json:"budgetRange,omitempty"`
	Status       OccasionStatus `json:"status"`
	CreationTime time.Time      `json:"creationTime"`
}

// GiftIdea is an ephemeral suggestion produced for one gift-search turn.
type GiftIdea struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SecondaryMention is a second person referenced in relation to the primary
// one ("Ravi's wife is Ritika").
type SecondaryMention struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

// PersonFields is the structured extraction result for one conversation.
type PersonFields struct {
	Name         string             `json:"name,omitempty"`
	Relationship string             `json:"relationship,omitempty"`
	AgeBand      string             `json:"ageBand,omitempty"`
	Interests    []string           `json:"interests,omitempty"`
	Constraints  []string           `json:"constraints,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	OccasionName string             `json:"occasionName,omitempty"`
	OccasionDate string             `json:"occasionDate,omitempty"`
	Mentions     []SecondaryMention `json:"mentions,omitempty"`
	Address      *Address           `json:"address,omitempty"`
}

// Empty reports whether extraction produced nothing usable.
func (p PersonFields) Empty() bool {
	return p.Name == "" && p.Relationship == "" && len(p.Interests) == 0 &&
		p.AgeBand == "" && p.Notes == "" && len(p.Mentions) == 0
}

// Resolution is the identity resolver's verdict for an extracted person.
type Resolution struct {
	Exists           bool        `json:"exists"`
	MatchedContactID string      `json:"matchedContactId,omitempty"`
	Candidates       []Candidate `json:"candidates,omitempty"`
}

// Candidate identifies one of several contacts that could be meant when a
// relationship label alone is ambiguous.
type Candidate struct {
	ContactID    string `json:"contactId"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
}

// Ambiguous reports whether the caller must ask the user to pick a name.
func (r Resolution) Ambiguous() bool { return r.Exists && r.MatchedContactID == "" }

// Message is one turn of conversation history.
type Message struct {
	Role         string    `json:"role"` // "user" or "assistant"
	Content      string    `json:"content"`
	CreationTime time.Time `json:"creationTime"`
}

// ConversationState is the full per-thread dialogue record. It is loaded at
// the start of every turn and written back whole at the end; the state store
// is the serialization point between turns.
type ConversationState struct {
	ConversationID     string          `json:"conversationId"`
	UserID             string          `json:"userId"`
	Messages           []Message       `json:"messages"`
	CurrentIntent      Intent          `json:"currentIntent,omitempty"`
	DetectedPerson     *PersonFields   `json:"detectedPerson,omitempty"`
	Resolution         *Resolution     `json:"resolution,omitempty"`
	PendingActions     []PendingAction `json:"pendingActions,omitempty"`
	RequiresConfirm    bool            `json:"requiresConfirmation"`
	ConfirmationPrompt string          `json:"confirmationPrompt,omitempty"`
	LastUpdateTime     time.Time       `json:"lastUpdateTime"`
}

// LastUserMessage returns the newest user turn, or "" when there is none.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the newest assistant turn, or "".
func (s *ConversationState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "assistant" {
			return s.Messages[i].Content
		}
	}
	return ""
}
