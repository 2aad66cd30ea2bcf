package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsc.io/qr"
)

func TestFormatter_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewFormatter(FormatJSON, &buf)
	assert.True(t, f.IsJSON())
	assert.Equal(t, FormatJSON, f.Format())
	assert.Same(t, &buf, f.Writer())

	require.NoError(t, f.JSON(map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["count"])
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat(" text "))
	assert.Equal(t, FormatAuto, ParseFormat("auto"))
	assert.Equal(t, FormatAuto, ParseFormat("yaml"))
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Equal(t, FormatText, DetectFormat(&buf, FormatText))
	assert.Equal(t, FormatJSON, DetectFormat(&buf, FormatAuto))
}

func TestTable(t *testing.T) {
	t.Parallel()

	tbl := NewTable("INDEX", "ADDRESS", "BALANCE").AlignRight(0, 2)
	tbl.AddRow("0", "aaaa", "10")
	tbl.AddRow("11", "b", "0")

	lines := strings.Split(strings.TrimRight(tbl.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "INDEX  ADDRESS  BALANCE", lines[0])
	assert.Equal(t, "-----  -------  -------", lines[1])
	assert.Equal(t, "    0  aaaa          10", lines[2])
	assert.Equal(t, "   11  b              0", lines[3])

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	assert.Equal(t, tbl.String(), buf.String())
}

func TestTable_RaggedRows(t *testing.T) {
	t.Parallel()

	tbl := NewTable("A", "B")
	tbl.AddRow("x", "yy")
	tbl.AddRow("zzz")
	tbl.AddRow("é", "", "extra")

	assert.Equal(t, "A    B\n---  --  -----\nx    yy\nzzz\né        extra\n", tbl.String())
}

func TestTable_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, NewTable().String())
}

func TestRenderAddressQR_NonTerminal(t *testing.T) {
	t.Parallel()

	cfg := DefaultQRConfig()
	assert.Equal(t, qr.L, cfg.Level)
	assert.Equal(t, 1, cfg.QuietZone)
	assert.True(t, cfg.HalfBlocks)

	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, RenderAddressQR(&buf, strings.Repeat("a", 64), cfg))
	assert.Empty(t, buf.String())
}
