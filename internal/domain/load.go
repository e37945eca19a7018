package domain

import (
	"fmt"
	"time"
)

// Field holds a value that may be absent. The board omits data constantly,
// so every LoadRecord slot carries presence explicitly instead of a magic
// "Unknown" string.
type Field[T any] struct {
	value T
	known bool
}

func Known[T any](v T) Field[T] { return Field[T]{value: v, known: true} }

func Unknown[T any]() Field[T] { return Field[T]{} }

func (f Field[T]) Ok() bool { return f.known }

func (f Field[T]) Value() T { return f.value }

func (f Field[T]) Get() (T, bool) { return f.value, f.known }

// Or returns the value, or def when the field is unknown.
func (f Field[T]) Or(def T) T {
	if f.known {
		return f.value
	}
	return def
}

// SetIfUnknown assigns v only when the field has no value yet. Resolvers run
// in priority order, so a later, cheaper match must never replace an earlier
// one.
func (f *Field[T]) SetIfUnknown(v T) {
	if !f.known {
		*f = Known(v)
	}
}

// Dimensions is length x width x height in inches. All three are always set
// together; a partial match is no match.
type Dimensions struct {
	Length int
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Length, d.Width, d.Height)
}

// LoadRecord is the normalized form of one load-board posting. Every slot is
// present on every record; unresolved slots are simply unknown.
type LoadRecord struct {
	LoadID  Field[string]
	Company Field[string]

	PickupCity    Field[string]
	PickupState   Field[string]
	PickupZip     Field[string]
	PickupDate    Field[string]
	PickupTime    Field[string]
	DeliveryCity  Field[string]
	DeliveryState Field[string]
	DeliveryZip   Field[string]
	DeliveryDate  Field[string]
	DeliveryTime  Field[string]

	Miles       Field[int]
	Pieces      Field[int]
	WeightLbs   Field[int]
	Dimensions  Field[Dimensions]
	VehicleType Field[string]

	RateUSD            Field[string]
	CreditScorePercent Field[int]
	DaysToPay          Field[int]

	ContactEmail Field[string]
	ContactPhone Field[string]
	// ProfileURL is a deferred-lookup handle: when no email was found in the
	// row itself, the orchestrator may fetch this company-profile page and
	// run the email cascade over it.
	ProfileURL Field[string]

	FoundAt             time.Time
	SpecialInstructions []string
}

// HasContactEmail reports whether any email was resolved for this posting.
func (r LoadRecord) HasContactEmail() bool { return r.ContactEmail.Ok() }
