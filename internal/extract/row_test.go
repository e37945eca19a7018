package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowsFromHTMLSkipsHeaderRows(t *testing.T) {
	rows, err := RowsFromHTML(`
<table>
  <tr><th>Company</th><th>Load</th></tr>
  <tr><td>ACME</td><td>445566</td></tr>
  <tr><td>BETA</td><td>445567</td></tr>
</table>`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"ACME", "445566"}, rows[0].Cells)
	require.Equal(t, []string{"BETA", "445567"}, rows[1].Cells)
}

func TestRowsFromHTMLKeepsCellHTMLAndAnchors(t *testing.T) {
	rows, err := RowsFromHTML(`
<table>
  <tr id="r1">
    <td>STRAIGHT<br>240</td>
    <td><a href="mailto:ops@acme.com" onclick="track()" title="Contact">email us</a></td>
  </tr>
</table>`)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Contains(t, row.CellHTML[0], "<br")
	require.Equal(t, "r1", row.Attrs["id"])

	require.Len(t, row.Anchors, 1)
	require.Equal(t, "mailto:ops@acme.com", row.Anchors[0].Href)
	require.Equal(t, "track()", row.Anchors[0].OnClick)
	require.Equal(t, "email us", row.Anchors[0].Text)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "A B", CleanText("  A  B \n"))
	require.Equal(t, "", CleanText("   "))
}

func TestSplitStacked(t *testing.T) {
	require.Equal(t, []string{"STRAIGHT", "240"}, splitStacked("STRAIGHT<br>240"))
	require.Equal(t, []string{"3", "2400 lbs"}, splitStacked("<b>3</b><BR/>2400 lbs"))
	require.Nil(t, splitStacked("no break here"))
}
