// Package notify renders load postings into chat messages and delivers them.
package notify

import (
	"context"
	"fmt"
	"strings"

	"loadwatch-engine/internal/domain"
)

// Sink delivers one rendered message. Implementations own their transport's
// rate-limit and retry behavior.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Formatter renders LoadRecords. Blocks whose fields are all unknown are
// omitted entirely; the literal "Unknown" never reaches the reader.
type Formatter struct {
	// EstimateRatePerMile feeds the estimated-rate line when the posting
	// carries no rate but miles are known.
	EstimateRatePerMile float64
	// MaxLen caps the rendered message; the sink rejects longer texts, so
	// the formatter truncates rather than erroring.
	MaxLen int
}

func NewFormatter(estimatePerMile float64, maxLen int) Formatter {
	if estimatePerMile <= 0 {
		estimatePerMile = 0.75
	}
	if maxLen <= 0 {
		maxLen = 4096
	}
	return Formatter{EstimateRatePerMile: estimatePerMile, MaxLen: maxLen}
}

// Render builds the notification text for one posting.
func (f Formatter) Render(r domain.LoadRecord) string {
	var b strings.Builder
	b.WriteString("*NEW LOAD POSTED*\n")

	if v, ok := r.Company.Get(); ok {
		fmt.Fprintf(&b, "\n*Company:* %s", v)
	}
	if v, ok := r.LoadID.Get(); ok {
		fmt.Fprintf(&b, "\n*Load ID:* %s", v)
	}

	writeStop(&b, "PICKUP", r.PickupCity, r.PickupState, r.PickupZip, r.PickupDate, r.PickupTime)
	writeStop(&b, "DELIVERY", r.DeliveryCity, r.DeliveryState, r.DeliveryZip, r.DeliveryDate, r.DeliveryTime)

	cargo := ""
	if v, ok := r.Miles.Get(); ok {
		cargo += fmt.Sprintf("\n  Miles: %d", v)
	}
	if v, ok := r.Pieces.Get(); ok {
		cargo += fmt.Sprintf("\n  Pieces: %d", v)
	}
	if v, ok := r.WeightLbs.Get(); ok {
		cargo += fmt.Sprintf("\n  Weight: %d lbs", v)
	}
	if v, ok := r.VehicleType.Get(); ok {
		cargo += fmt.Sprintf("\n  Vehicle: %s", v)
	}
	if v, ok := r.Dimensions.Get(); ok {
		cargo += fmt.Sprintf("\n  Dimensions: %s", v)
	}
	if cargo != "" {
		b.WriteString("\n\n*LOAD DETAILS:*" + cargo)
	}

	if v, ok := r.RateUSD.Get(); ok {
		fmt.Fprintf(&b, "\n\n*Rate:* %s", v)
	} else if miles, ok := r.Miles.Get(); ok {
		fmt.Fprintf(&b, "\n\n*Est. Rate:* $%.0f", float64(miles)*f.EstimateRatePerMile)
	}

	payment := ""
	if v, ok := r.CreditScorePercent.Get(); ok {
		payment += fmt.Sprintf("\n  Credit Score: %d%%", v)
	}
	if v, ok := r.DaysToPay.Get(); ok {
		payment += fmt.Sprintf("\n  Payment Terms: %d days", v)
	}
	if payment != "" {
		b.WriteString("\n\n*PAYMENT INFO:*" + payment)
	}

	contact := ""
	if v, ok := r.ContactEmail.Get(); ok {
		contact += fmt.Sprintf("\n  *Email: %s*", v)
	}
	if v, ok := r.ContactPhone.Get(); ok {
		contact += fmt.Sprintf("\n  Phone: %s", v)
	}
	if contact != "" {
		b.WriteString("\n\n*CONTACT INFO:*" + contact)
	}
	if !r.ContactEmail.Ok() {
		b.WriteString("\n\n*NO EMAIL FOUND* - check company profile")
		if v, ok := r.ProfileURL.Get(); ok {
			fmt.Fprintf(&b, "\n  Profile: %s", v)
		}
	}

	if len(r.SpecialInstructions) > 0 {
		fmt.Fprintf(&b, "\n\n*Special Instructions:* %s", strings.Join(r.SpecialInstructions, ", "))
	}

	if !r.FoundAt.IsZero() {
		fmt.Fprintf(&b, "\n\n*Found:* %s", r.FoundAt.Format("15:04"))
	}

	return f.truncate(b.String())
}

// RenderSummary is the one-line heads-up sent before a large batch.
func (f Formatter) RenderSummary(n int) string {
	return fmt.Sprintf("*%d NEW LOADS FOUND* - sending details...", n)
}

func writeStop(b *strings.Builder, label string, city, state, zip, date, clock domain.Field[string]) {
	place := ""
	if v, ok := city.Get(); ok {
		place = v
		if s, ok := state.Get(); ok {
			place += ", " + s
		}
		if z, ok := zip.Get(); ok {
			place += " " + z
		}
	} else if v, ok := state.Get(); ok {
		place = v
	}

	stamp := ""
	if v, ok := date.Get(); ok {
		stamp = v
		if t, ok := clock.Get(); ok {
			stamp += " " + t
		}
	}

	if place == "" && stamp == "" {
		return
	}
	fmt.Fprintf(b, "\n\n*%s:*", label)
	if place != "" {
		fmt.Fprintf(b, "\n  %s", place)
	}
	if stamp != "" {
		fmt.Fprintf(b, "\n  %s", stamp)
	}
}

func (f Formatter) truncate(s string) string {
	if len(s) <= f.MaxLen {
		return s
	}
	return s[:f.MaxLen]
}
