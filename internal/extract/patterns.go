package extract

import "regexp"

var (
	reLoadIDLabeled = regexp.MustCompile(`(?i)(?:Load|ID)\s*#?\s*:?\s*(\d{6,8})`)
	reLoadID7       = regexp.MustCompile(`\b(\d{7})\b`)
	reLoadID6       = regexp.MustCompile(`\b(\d{6})\b`)
	reDigitRun6     = regexp.MustCompile(`\d{6,}`)
	reDigits        = regexp.MustCompile(`\d+`)
	reAllDigits     = regexp.MustCompile(`^\d+$`)

	reCityState = regexp.MustCompile(`([A-Z][A-Z\s&]+),\s*([A-Z]{2})(?:\s+(\d{5}))?`)

	reDateTime = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2})`)
	reDate     = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
	reASAP     = regexp.MustCompile(`\bASAP\b`)

	reWeightUnit = regexp.MustCompile(`(?i)(\d+)\s*(?:lbs?|pounds?)\b`)
	rePiecesUnit = regexp.MustCompile(`(?i)(\d+)\s*(?:pieces?|pcs?|units?)\b`)
	reMilesUnit  = regexp.MustCompile(`(?i)(\d+)\s*(?:miles?|mi)\b`)

	reDimensions = regexp.MustCompile(`(?i)(\d+)\s*["']?\s*[xX×]\s*(\d+)\s*["']?\s*[xX×]\s*(\d+)`)

	reCreditScore = regexp.MustCompile(`(?i)Credit\s*Score[:\s]*(\d+)%?`)
	reDaysToPay   = regexp.MustCompile(`(?i)Days\s*to\s*Pay[:\s]*(\d+)`)
	reToPayDays   = regexp.MustCompile(`(?i)(\d+)\s*days?\s*to\s*pay`)
	reRate        = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\d+(?:\.\d{2})?)`)

	rePhone        = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	reEmail        = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	reEmailLabeled = regexp.MustCompile(`(?i)(?:E-?mail|Contact)[:\s]*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

	// The board hides contact data inside inline event handlers.
	reOnClickEmail = regexp.MustCompile(`(?i)(?:email|mailto|contact)['"]?\s*:\s*['"]([^'"]+@[^'"]+)['"]`)
	reOnClickPhone = regexp.MustCompile(`(?i)(?:phone|tel)['"]?\s*:\s*['"]([0-9\-().\s]{10,})['"]`)
	reOpenWindow   = regexp.MustCompile(`(?i)open\w*window\(\s*['"]([^'"]+)['"]`)

	reBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	reTag   = regexp.MustCompile(`<[^>]+>`)
)

// splitStacked splits a cell's inner HTML on <br> and returns the cleaned
// text fragments. Returns nil when the cell has no line break.
func splitStacked(cellHTML string) []string {
	if !reBreak.MatchString(cellHTML) {
		return nil
	}
	parts := reBreak.Split(cellHTML, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, CleanText(reTag.ReplaceAllString(p, "")))
	}
	return out
}
