package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/jianpu2midi/pkg/converter"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunConvert(t *testing.T) {
	path := writeFile(t, "song.jianpu", "[track]\n1 2 3\n[track]\n@key=C5\nC5 \"Kick\"")

	out := run(ActionConvert, path, converter.DefaultOptions())
	require.NoError(t, out.err)
	assert.Equal(t, converter.OutputPath(path), out.outputFile)
	assert.Equal(t, []string{"track 1: 3 notes, 0 lyrics", "track 2: 1 notes, 1 lyrics"}, out.lines)
	assert.NotEmpty(t, out.warnings)

	_, err := os.Stat(out.outputFile)
	assert.NoError(t, err)
}

func TestRunConvertFailure(t *testing.T) {
	path := writeFile(t, "bad.jianpu", "[track]\n1 9")

	out := run(ActionConvert, path, converter.DefaultOptions())
	require.Error(t, out.err)
	require.Len(t, out.problems, 1)
	assert.Contains(t, out.problems[0], `line 2 [range] "9"`)

	_, err := os.Stat(converter.OutputPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestRunValidate(t *testing.T) {
	path := writeFile(t, "song.nmn", "[track]\n1 2 x")

	out := run(ActionValidate, path, converter.DefaultOptions())
	require.Error(t, out.err)
	assert.Len(t, out.problems, 1)
}

func TestRunInspect(t *testing.T) {
	result, err := converter.New(converter.DefaultOptions()).Convert("@tempo=60\n[track lead]\n1 2")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, result.Data, 0644))

	out := run(ActionInspect, path, converter.DefaultOptions())
	require.NoError(t, out.err)
	require.Len(t, out.lines, 3)
	assert.Contains(t, out.lines[0], "60.0 BPM")
	assert.Contains(t, out.lines[2], "lead")
}

func TestMenuNavigation(t *testing.T) {
	m := New(converter.DefaultOptions())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.menuIndex)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.Equal(t, StateFilePicker, m.state)
	assert.Equal(t, ActionValidate, m.action.Action)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.Equal(t, StateMenu, m.state)

	next, _ = m.Update(conversionDoneMsg{lines: []string{"ok"}})
	m = next.(Model)
	assert.Equal(t, StateResult, m.state)
	assert.Contains(t, m.View(), "ok")
}
