package health

import "context"

// HealthPinger is implemented by backends that can cheaply verify their own
// connectivity, like a database driver issuing SELECT 1. A nil return means
// healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
