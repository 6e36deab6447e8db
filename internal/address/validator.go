// Package address validates and normalizes contact addresses. Validation is
// best-effort: failures degrade to "unvalidated" and never block a contact
// write.
package address

import (
	"context"

	"github.com/my3-ai/concierge/internal/model"
)

// Result is the validator verdict. Status is always set; Normalized is only
// present when Status is validated.
type Result struct {
	Status     model.AddressStatus
	Normalized *model.Address
}

// Validator checks a structured address. Implementations must never return an
// error past this boundary; connectivity or provider problems surface as an
// unvalidated or failed Result.
type Validator interface {
	Validate(ctx context.Context, a model.Address) Result
}

// Disabled is used when no geocoding provider is configured.
type Disabled struct{}

func (Disabled) Validate(_ context.Context, _ model.Address) Result {
	return Result{Status: model.AddressUnvalidated}
}
