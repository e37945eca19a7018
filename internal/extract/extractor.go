package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"loadwatch-engine/internal/domain"
)

// Limits are the numeric plausibility thresholds the extractor applies
// before accepting a value. Tuned to the vendor's typical load sizes.
type Limits struct {
	MilesMin        int
	MilesMax        int
	MilesClampDigit int
	PiecesMin       int
	PiecesMax       int
	WeightMin       int

	DisambMilesMin  int
	DisambMilesMax  int
	DisambPiecesMin int
	DisambPiecesMax int
	DisambWeightMin int
}

func DefaultLimits() Limits {
	return Limits{
		MilesMin:        1,
		MilesMax:        9999,
		MilesClampDigit: 4,
		PiecesMin:       1,
		PiecesMax:       99,
		WeightMin:       50,
		DisambMilesMin:  100,
		DisambMilesMax:  3000,
		DisambPiecesMin: 1,
		DisambPiecesMax: 50,
		DisambWeightMin: 500,
	}
}

// Longer labels first so "STRAIGHT TRUCK" wins over "STRAIGHT".
func DefaultVehicleKeywords() []string {
	return []string{
		"SMALL STRAIGHT", "LARGE STRAIGHT", "STRAIGHT TRUCK",
		"CARGO VAN", "BOX TRUCK", "DRY VAN",
		"STRAIGHT", "FLATBED", "REEFER", "VAN", "TRUCK",
	}
}

func DefaultInstructionTags() []string {
	return []string{
		"EMAIL ONLY", "NO DISPATCH", "TEAM REQUIRED", "HAZMAT",
		"EXPEDITED", "APPOINTMENT", "DETENTION", "INSIDE DELIVERY",
	}
}

const (
	defaultCompanyTermsMarker = "Days to Pay"
	defaultProfileMarker      = "promabprofile.asp"
)

// Options configures an Extractor. Zero-valued fields fall back to the
// defaults above.
type Options struct {
	Layout             Layout
	Limits             Limits
	CompanyTermsMarker string
	ProfileMarker      string
	VehicleKeywords    []string
	InstructionTags    []string
}

// Extractor turns one RawRow into one LoadRecord. It holds no per-row state;
// Extract is a pure function and safe for concurrent use.
type Extractor struct {
	layout        Layout
	limits        Limits
	companyMarker string
	profileMarker string
	vehicles      []string
	instructions  []string

	reProfileSQ   *regexp.Regexp
	reProfileDQ   *regexp.Regexp
	reProfileBare *regexp.Regexp
}

func New(opts Options) *Extractor {
	if opts.Layout == nil {
		opts.Layout = DefaultLayout()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.CompanyTermsMarker == "" {
		opts.CompanyTermsMarker = defaultCompanyTermsMarker
	}
	if opts.ProfileMarker == "" {
		opts.ProfileMarker = defaultProfileMarker
	}
	if len(opts.VehicleKeywords) == 0 {
		opts.VehicleKeywords = DefaultVehicleKeywords()
	}
	if len(opts.InstructionTags) == 0 {
		opts.InstructionTags = DefaultInstructionTags()
	}

	marker := regexp.QuoteMeta(opts.ProfileMarker)
	return &Extractor{
		layout:        opts.Layout,
		limits:        opts.Limits,
		companyMarker: opts.CompanyTermsMarker,
		profileMarker: opts.ProfileMarker,
		vehicles:      opts.VehicleKeywords,
		instructions:  opts.InstructionTags,
		reProfileSQ:   regexp.MustCompile(`'([^']*` + marker + `[^']*)'`),
		reProfileDQ:   regexp.MustCompile(`"([^"]*` + marker + `[^"]*)"`),
		reProfileBare: regexp.MustCompile(marker + `[^'"\s)]*`),
	}
}

// Extract resolves a RawRow into a LoadRecord. The second return is false
// only when the row is too short to be a plausible posting (fewer than 3
// cells); any per-field miss simply leaves that field unknown.
//
// Passes run in priority order and every resolver is set-if-absent: a later,
// lower-confidence pass never overwrites an earlier value.
func (e *Extractor) Extract(row RawRow) (domain.LoadRecord, bool) {
	if len(row.Cells) < 3 {
		return domain.LoadRecord{}, false
	}

	var rec domain.LoadRecord
	consumed := make([]bool, len(row.Cells))

	e.positionalPass(row, &rec, consumed)
	e.patternPass(row, &rec, consumed)
	e.disambiguatePass(row, &rec, consumed)
	e.contactPass(row, &rec)

	return rec, true
}

// positionalPass applies the column-role table: known columns carry known
// semantics on this vendor's layout.
func (e *Extractor) positionalPass(row RawRow, rec *domain.LoadRecord, consumed []bool) {
	cols := make([]int, 0, len(e.layout))
	for c := range e.layout {
		cols = append(cols, c)
	}
	sort.Ints(cols)

	// The cell-1 remainder is only a candidate: the stacked vehicle+miles
	// cell is authoritative when present.
	var vehicleCandidate string

	for _, col := range cols {
		if col >= len(row.Cells) {
			continue
		}
		text := row.Cells[col]
		var html string
		if col < len(row.CellHTML) {
			html = row.CellHTML[col]
		}

		switch e.layout[col] {
		case RoleCompanyTerms:
			company := text
			if i := strings.Index(company, e.companyMarker); i >= 0 {
				company = company[:i]
			}
			if company = CleanText(company); company != "" {
				rec.Company.SetIfUnknown(company)
				consumed[col] = true
			}

		case RoleVehicleLoadID:
			if m := reDigitRun6.FindString(text); m != "" {
				rec.LoadID.SetIfUnknown(m)
				if rest := CleanText(strings.Replace(text, m, " ", 1)); rest != "" {
					vehicleCandidate = rest
				}
				consumed[col] = true
			}

		case RoleVehicleMiles:
			if frags := splitStacked(html); len(frags) >= 2 {
				if frags[0] != "" {
					rec.VehicleType.SetIfUnknown(frags[0])
				}
				if n, ok := e.clampedMiles(frags[1]); ok {
					rec.Miles.SetIfUnknown(n)
				}
			} else if n, ok := e.clampedMiles(text); ok {
				rec.Miles.SetIfUnknown(n)
			}
			consumed[col] = true

		case RolePiecesWeight:
			if frags := splitStacked(html); len(frags) >= 2 {
				if n, ok := firstInt(frags[0]); ok && e.plausiblePieces(n) {
					rec.Pieces.SetIfUnknown(n)
				}
				if n, ok := firstInt(frags[1]); ok && e.plausibleWeight(n) {
					rec.WeightLbs.SetIfUnknown(n)
				}
			} else if n, ok := firstInt(text); ok && e.plausibleWeight(n) {
				rec.WeightLbs.SetIfUnknown(n)
			}
			consumed[col] = true
		}
	}

	if vehicleCandidate != "" {
		rec.VehicleType.SetIfUnknown(vehicleCandidate)
	}
}

// patternPass scans cell text and the whole row for everything the
// positional pass missed.
func (e *Extractor) patternPass(row RawRow, rec *domain.LoadRecord, consumed []bool) {
	full := row.Text()

	// Load id: labeled digits beat bare runs, 7-digit beats 6-digit.
	if !rec.LoadID.Ok() {
		if m := reLoadIDLabeled.FindStringSubmatch(full); m != nil {
			rec.LoadID = domain.Known(m[1])
		} else if m := reLoadID7.FindStringSubmatch(full); m != nil {
			rec.LoadID = domain.Known(m[1])
		} else if m := reLoadID6.FindStringSubmatch(full); m != nil {
			rec.LoadID = domain.Known(m[1])
		}
	}

	// City/state pairs: first match is pickup, second is delivery.
	pairs := reCityState.FindAllStringSubmatch(full, -1)
	zips := map[string]bool{}
	if len(pairs) >= 1 {
		rec.PickupCity.SetIfUnknown(CleanText(pairs[0][1]))
		rec.PickupState.SetIfUnknown(pairs[0][2])
		if pairs[0][3] != "" {
			rec.PickupZip.SetIfUnknown(pairs[0][3])
			zips[pairs[0][3]] = true
		}
	}
	if len(pairs) >= 2 {
		rec.DeliveryCity.SetIfUnknown(CleanText(pairs[1][1]))
		rec.DeliveryState.SetIfUnknown(pairs[1][2])
		if pairs[1][3] != "" {
			rec.DeliveryZip.SetIfUnknown(pairs[1][3])
			zips[pairs[1][3]] = true
		}
	}
	// A bare cell holding a captured ZIP must not reach the numeric
	// disambiguation pass, where its digit run would read as a weight.
	for i, c := range row.Cells {
		if zips[strings.TrimSpace(c)] {
			consumed[i] = true
		}
	}

	// Date/time pairs: explicit date+time first, then bare dates, then the
	// literal ASAP. First pair is pickup, second is delivery.
	type stamp struct{ date, clock string }
	var when []stamp
	for _, m := range reDateTime.FindAllStringSubmatch(full, -1) {
		when = append(when, stamp{m[1], m[2]})
	}
	if len(when) < 2 {
		for _, d := range reDate.FindAllString(full, -1) {
			dup := false
			for _, w := range when {
				if w.date == d {
					dup = true
					break
				}
			}
			if !dup {
				when = append(when, stamp{date: d})
			}
		}
	}
	if len(when) < 2 && reASAP.MatchString(full) {
		when = append(when, stamp{date: "ASAP"})
	}
	if len(when) >= 1 {
		rec.PickupDate.SetIfUnknown(when[0].date)
		if when[0].clock != "" {
			rec.PickupTime.SetIfUnknown(when[0].clock)
		}
	}
	if len(when) >= 2 {
		rec.DeliveryDate.SetIfUnknown(when[1].date)
		if when[1].clock != "" {
			rec.DeliveryTime.SetIfUnknown(when[1].clock)
		}
	}

	upper := strings.ToUpper(full)

	if !rec.VehicleType.Ok() {
		for _, kw := range e.vehicles {
			if strings.Contains(upper, kw) {
				rec.VehicleType = domain.Known(kw)
				break
			}
		}
	}

	if !rec.WeightLbs.Ok() {
		if m := reWeightUnit.FindStringSubmatch(full); m != nil {
			if n, ok := atoi(m[1]); ok && e.plausibleWeight(n) {
				rec.WeightLbs = domain.Known(n)
			}
		}
	}
	if !rec.Pieces.Ok() {
		if m := rePiecesUnit.FindStringSubmatch(full); m != nil {
			if n, ok := atoi(m[1]); ok && e.plausiblePieces(n) {
				rec.Pieces = domain.Known(n)
			}
		}
	}
	if !rec.Miles.Ok() {
		if m := reMilesUnit.FindStringSubmatch(full); m != nil {
			if n, ok := atoi(m[1]); ok && n >= e.limits.MilesMin && n <= e.limits.MilesMax {
				rec.Miles = domain.Known(n)
			}
		}
	}

	// Dimensions resolve all three together or not at all.
	if !rec.Dimensions.Ok() {
		if m := reDimensions.FindStringSubmatch(full); m != nil {
			l, lok := atoi(m[1])
			w, wok := atoi(m[2])
			h, hok := atoi(m[3])
			if lok && wok && hok {
				rec.Dimensions = domain.Known(domain.Dimensions{Length: l, Width: w, Height: h})
			}
		}
	}

	if !rec.CreditScorePercent.Ok() {
		if m := reCreditScore.FindStringSubmatch(full); m != nil {
			if n, ok := atoi(m[1]); ok {
				rec.CreditScorePercent = domain.Known(n)
			}
		}
	}
	if !rec.DaysToPay.Ok() {
		m := reDaysToPay.FindStringSubmatch(full)
		if m == nil {
			m = reToPayDays.FindStringSubmatch(full)
		}
		if m != nil {
			if n, ok := atoi(m[1]); ok {
				rec.DaysToPay = domain.Known(n)
			}
		}
	}
	if !rec.RateUSD.Ok() {
		if m := reRate.FindStringSubmatch(full); m != nil {
			rec.RateUSD = domain.Known("$" + m[1])
		}
	}

	// Instruction tags are collected exhaustively, not first-match.
	for _, tag := range e.instructions {
		if strings.Contains(upper, tag) {
			rec.SpecialInstructions = append(rec.SpecialInstructions, tag)
		}
	}
}

// disambiguatePass classifies leftover bare-numeric cells by plausible range.
// First applicable cell wins each slot; consumed cells are never reconsidered.
func (e *Extractor) disambiguatePass(row RawRow, rec *domain.LoadRecord, consumed []bool) {
	lim := e.limits
	for i, cell := range row.Cells {
		if consumed[i] {
			continue
		}
		t := strings.TrimSpace(cell)
		if t == "" || !reAllDigits.MatchString(t) {
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			continue
		}
		switch {
		case !rec.Miles.Ok() && n >= lim.DisambMilesMin && n <= lim.DisambMilesMax:
			rec.Miles = domain.Known(n)
			consumed[i] = true
		case !rec.Pieces.Ok() && n >= lim.DisambPiecesMin && n <= lim.DisambPiecesMax:
			rec.Pieces = domain.Known(n)
			consumed[i] = true
		case !rec.WeightLbs.Ok() && n > lim.DisambWeightMin:
			rec.WeightLbs = domain.Known(n)
			consumed[i] = true
		}
	}
}

// rePhoneStrict requires real separators so load ids and ZIPs in the row
// text cannot masquerade as phone numbers.
var rePhoneStrict = regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.]\d{4}`)

// contactPass resolves email and phone in strict priority order. Every step
// is a no-op once a higher-priority step has set the field.
func (e *Extractor) contactPass(row RawRow, rec *domain.LoadRecord) {
	// (a) mailto hrefs.
	for _, a := range row.Anchors {
		if len(a.Href) > 7 && strings.EqualFold(a.Href[:7], "mailto:") {
			if email := strings.TrimSpace(a.Href[7:]); strings.Contains(email, "@") {
				rec.ContactEmail.SetIfUnknown(email)
			}
		}
	}

	// (b) onclick script text.
	for _, a := range row.Anchors {
		if a.OnClick == "" {
			continue
		}
		if m := reOnClickEmail.FindStringSubmatch(a.OnClick); m != nil {
			rec.ContactEmail.SetIfUnknown(m[1])
		} else if m := reEmail.FindString(a.OnClick); m != "" {
			rec.ContactEmail.SetIfUnknown(m)
		}
		if m := reOnClickPhone.FindStringSubmatch(a.OnClick); m != nil {
			rec.ContactPhone.SetIfUnknown(CleanText(m[1]))
		} else if m := rePhone.FindString(a.OnClick); m != "" {
			rec.ContactPhone.SetIfUnknown(m)
		}
	}

	// (c) row-wide scan, labeled before bare.
	full := row.Text()
	if m := reEmailLabeled.FindStringSubmatch(full); m != nil {
		rec.ContactEmail.SetIfUnknown(m[1])
	}
	if m := reEmail.FindString(full); m != "" {
		rec.ContactEmail.SetIfUnknown(m)
	}

	// (d) any cell with an '@'.
	for _, c := range row.Cells {
		if strings.Contains(c, "@") {
			if m := reEmail.FindString(c); m != "" {
				rec.ContactEmail.SetIfUnknown(m)
			}
		}
	}

	if m := rePhoneStrict.FindString(full); m != "" {
		rec.ContactPhone.SetIfUnknown(m)
	}

	// (e) company-profile deep link, exposed for out-of-band enrichment.
	for _, a := range row.Anchors {
		if rec.ProfileURL.Ok() {
			break
		}
		oc := a.OnClick
		if oc == "" || !strings.Contains(oc, e.profileMarker) {
			continue
		}
		for _, re := range []*regexp.Regexp{e.reProfileSQ, e.reProfileDQ, reOpenWindow} {
			if m := re.FindStringSubmatch(oc); m != nil && strings.Contains(m[1], e.profileMarker) {
				rec.ProfileURL.SetIfUnknown(strings.ReplaceAll(m[1], "&amp;", "&"))
				break
			}
		}
		if !rec.ProfileURL.Ok() {
			if m := e.reProfileBare.FindString(oc); m != "" {
				rec.ProfileURL.SetIfUnknown(strings.ReplaceAll(m, "&amp;", "&"))
			}
		}
	}
}

// clampedMiles extracts the leading digit run of a stacked-miles fragment,
// clamped to the configured digit count, and range-checks it.
func (e *Extractor) clampedMiles(s string) (int, bool) {
	m := reDigits.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	if clamp := e.limits.MilesClampDigit; clamp > 0 && len(m) > clamp {
		m = m[:clamp]
	}
	n, ok := atoi(m)
	if !ok || n < e.limits.MilesMin || n > e.limits.MilesMax {
		return 0, false
	}
	return n, true
}

func (e *Extractor) plausiblePieces(n int) bool {
	return n >= e.limits.PiecesMin && n <= e.limits.PiecesMax
}

func (e *Extractor) plausibleWeight(n int) bool {
	return n > e.limits.WeightMin
}

func firstInt(s string) (int, bool) {
	m := reDigits.FindString(s)
	if m == "" {
		return 0, false
	}
	return atoi(m)
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
