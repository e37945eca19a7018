package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchor is one <a> element found inside a row, with the attributes the
// board hides contact data in.
type Anchor struct {
	Text    string
	Href    string
	OnClick string
	Title   string
}

// RawRow is one load-board table row as handed over by a session provider.
// Cells holds cleaned text per cell; CellHTML holds each cell's inner HTML so
// <br>-stacked values survive; Anchors holds every link in the row.
type RawRow struct {
	Cells    []string
	CellHTML []string
	Anchors  []Anchor
	Attrs    map[string]string
}

// Text joins all cell texts into one blob for row-wide pattern scans.
func (r RawRow) Text() string {
	return strings.Join(r.Cells, " ")
}

// RowsFromHTML splits a listing-page HTML blob into RawRows. Header rows
// (th-only) are skipped; everything else is kept and left to the extractor
// to accept or decline.
func RowsFromHTML(listing string) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listing))
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}

		row := RawRow{Attrs: map[string]string{}}
		for _, attr := range tr.Nodes[0].Attr {
			row.Attrs[attr.Key] = attr.Val
		}

		cells.Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, CleanText(td.Text()))
			h, _ := td.Html()
			row.CellHTML = append(row.CellHTML, h)
		})

		tr.Find("a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			onclick, _ := a.Attr("onclick")
			title, _ := a.Attr("title")
			row.Anchors = append(row.Anchors, Anchor{
				Text:    CleanText(a.Text()),
				Href:    strings.TrimSpace(href),
				OnClick: onclick,
				Title:   title,
			})
		})

		rows = append(rows, row)
	})

	return rows, nil
}

// CleanText collapses whitespace and strips non-breaking spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
