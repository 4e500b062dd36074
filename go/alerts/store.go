package alerts

import (
	"context"
)

// Store is the persistence boundary for alert records. The backing table is
// append-only: records are never updated in place, so advancing an alert is
// modeled as Delete followed by Append.
//
// Implementations live in the store subpackage.
type Store interface {
	// Get returns all physical rows for the logical alert identified by
	// (hash, advertiserID, alertType). The expected steady state is zero or
	// one rows; more than one indicates store corruption, which the caller
	// must handle.
	Get(ctx context.Context, hash string, advertiserID int64, alertType string) ([]*Alert, error)

	// Delete removes all rows with the given alert ID.
	Delete(ctx context.Context, alertID string) error

	// Append adds the given record as a new row.
	Append(ctx context.Context, a *Alert) error
}

// AdvertiserDirectory resolves an advertiser ID to its display name. An
// unknown ID is a hard failure; no placeholder name is synthesized.
type AdvertiserDirectory interface {
	LookupName(ctx context.Context, advertiserID int64) (string, error)
}
