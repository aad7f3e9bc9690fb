package terminal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("  hello there \nlast"), &out)

	line, err := r.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", line)
	assert.Equal(t, "> ", out.String())

	line, err = r.ReadLine("")
	require.NoError(t, err)
	assert.Equal(t, "last", line, "unterminated final line")

	_, err = r.ReadLine("")
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadPassword_NonTerminalFallsBackToLine(t *testing.T) {
	r := NewReader(strings.NewReader("s3cret\n"), io.Discard)

	pw, err := r.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			r := NewReader(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, r.Confirm("Delete?"))
			assert.Equal(t, "Delete? [y/N] ", out.String())
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		want   Command
		wantOK bool
	}{
		{"/new", Command{Name: "new"}, true},
		{"/edit 3  fixed text ", Command{Name: "edit", Args: "3  fixed text"}, true},
		{"  /SCAN https://example.com", Command{Name: "scan", Args: "https://example.com"}, true},
		{"hello", Command{}, false},
		{"/", Command{}, false},
		{"", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseCommand(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report.txt", "notes/report-2.md", ".hidden/report.txt", "image.png"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got := SuggestFiles(dir, "report", 10)
	assert.ElementsMatch(t, []string{"report.txt", filepath.Join("notes", "report-2.md")}, got)

	assert.Len(t, SuggestFiles(dir, "", 1), 1, "limit applies")
	assert.Empty(t, SuggestFiles(dir, "", 0))
}

func TestSuggestFiles_DirectoryInPartial(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report.txt", "notes/report-2.md", "notes/todo.md"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got := SuggestFiles(dir, "notes/rep", 10)
	assert.Equal(t, []string{filepath.Join("notes", "report-2.md")}, got)

	abs := SuggestFiles("/nonexistent", filepath.Join(dir, "notes")+"/todo", 10)
	assert.Equal(t, []string{filepath.Join(dir, "notes", "todo.md")}, abs)
}

func TestSuggestFiles_StopsAtLimit(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, "logs", fmt.Sprintf("day-%02d.log", i))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got := SuggestFiles(dir, "day", 3)
	assert.Equal(t, []string{
		filepath.Join("logs", "day-00.log"),
		filepath.Join("logs", "day-01.log"),
		filepath.Join("logs", "day-02.log"),
	}, got, "walk is lexical and ends at the limit")
}
