package officer

import "context"

// Store resolves and mutates provisioned officers. TouchLastLogin is the
// only write the gatekeeper performs; everything else is provisioned
// out-of-band.
type Store interface {
	FindByID(ctx context.Context, id int64) (*Officer, error)
	FindByBadge(ctx context.Context, badgeNumber string) (*Officer, error)
	TouchLastLogin(ctx context.Context, id int64) error
}
