package model

// ActionType tags a staged mutation awaiting confirmation.
type ActionType string

const (
	ActionCreateRecipient        ActionType = "create_recipient"
	ActionUpdateRecipient        ActionType = "update_recipient"
	ActionCreateOccasion         ActionType = "create_occasion"
	ActionCreateRelationship     ActionType = "create_relationship"
	ActionCreateSecondaryContact ActionType = "create_secondary_contact"
	ActionDeleteRecipient        ActionType = "delete_recipient"
)

// PendingAction is one staged, unexecuted mutation. Exactly one of the
// payload pointers is set, matching Type. Actions are immutable once staged
// and consumed exactly once by the executor.
type PendingAction struct {
	Type             ActionType              `json:"type"`
	CreateRecipient  *CreateRecipientAction  `json:"createRecipient,omitempty"`
	UpdateRecipient  *UpdateRecipientAction  `json:"updateRecipient,omitempty"`
	CreateOccasion   *CreateOccasionAction   `json:"createOccasion,omitempty"`
	CreateEdge       *CreateEdgeAction       `json:"createEdge,omitempty"`
	CreateSecondary  *CreateSecondaryAction  `json:"createSecondary,omitempty"`
	DeleteRecipient  *DeleteRecipientAction  `json:"deleteRecipient,omitempty"`
}

// CreateRecipientAction inserts (or merges into) a contact, optionally with
// a bundled first occasion.
type CreateRecipientAction struct {
	Name         string    `json:"name"`
	Relationship string    `json:"relationship,omitempty"`
	AgeBand      string    `json:"ageBand,omitempty"`
	Interests    []string  `json:"interests,omitempty"`
	Constraints  []string  `json:"constraints,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Address      *Address  `json:"address,omitempty"`
	OccasionName string    `json:"occasionName,omitempty"`
	OccasionDate string    `json:"occasionDate,omitempty"`
}

// UpdateRecipientAction applies a partial update to an existing contact.
type UpdateRecipientAction struct {
	ContactID string       `json:"contactId"`
	Patch     ContactPatch `json:"patch"`
}

// CreateOccasionAction inserts an occasion for an existing contact. The raw
// date text is resolved by the executor at apply time.
type CreateOccasionAction struct {
	ContactID    string `json:"contactId"`
	Name         string `json:"name"`
	OccasionType string `json:"occasionType,omitempty"`
	RawDate      string `json:"rawDate,omitempty"`
	BudgetRange  string `json:"budgetRange,omitempty"`
}

// CreateEdgeAction links two existing contacts.
type CreateEdgeAction struct {
	FromContactID    string `json:"fromContactId"`
	ToContactID      string `json:"toContactId"`
	RelationshipType string `json:"relationshipType"`
	Bidirectional    bool   `json:"bidirectional"`
}

// CreateSecondaryAction creates a level-2 contact discovered through a
// relationship mention and links it to the primary contact.
type CreateSecondaryAction struct {
	PrimaryContactID string `json:"primaryContactId"`
	Name             string `json:"name"`
	RelationshipType string `json:"relationshipType"`
	Bidirectional    bool   `json:"bidirectional"`
}

// DeleteRecipientAction removes a contact; storage cascades to the contact's
// occasions and relationship edges.
type DeleteRecipientAction struct {
	ContactID string `json:"contactId"`
}
