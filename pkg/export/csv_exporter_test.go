package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	payload, err := exporter.Render(Table{
		Title:   "Presenças",
		Columns: []string{"Aluno", "Status"},
		Rows: [][]string{
			{"Ana", "presente"},
			{"Bruno", "ausente"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Aluno,Status", lines[0])
	assert.Equal(t, "Ana,presente", lines[1])
	assert.Equal(t, "Bruno,ausente", lines[2])
}

func TestCSVExporterRenderPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()
	payload, err := exporter.Render(Table{
		Columns: []string{"Aluno", "Status", "Check-in"},
		Rows:    [][]string{{"Ana", "presente"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Ana,presente,")
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Table{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	payload, err := exporter.Render(Table{
		Title:   "Presenças 3A",
		Columns: []string{"Aluno", "Status"},
		Rows:    [][]string{{"Ana", "presente"}},
	})
	require.NoError(t, err)
	assert.True(t, len(payload) > 4)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
