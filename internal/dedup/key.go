// Package dedup decides novelty: it derives a stable identity key for a
// load posting and tracks which keys have already been delivered.
package dedup

import (
	"fmt"

	"loadwatch-engine/internal/domain"
)

// unresolved keeps the key shape stable when a field never resolved; the
// seen file predates this rewrite and existing entries use the same token.
const unresolved = "Unknown"

// Key derives the dedup identity for a record. The board reuses numeric load
// ids across time, so the id alone is not an identity; it has to be combined
// with the route endpoints.
func Key(r domain.LoadRecord) string {
	return fmt.Sprintf("%s_%s, %s_%s, %s",
		r.LoadID.Or(unresolved),
		r.PickupCity.Or(unresolved), r.PickupState.Or(unresolved),
		r.DeliveryCity.Or(unresolved), r.DeliveryState.Or(unresolved),
	)
}
