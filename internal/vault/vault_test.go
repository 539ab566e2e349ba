package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memweave/memweave/pkg/types"
)

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "episodic/task.md", "content")
	writeNote(t, root, "notes/idea.txt", "content")
	writeNote(t, root, "image.png", "not a note")
	writeNote(t, root, ".obsidian/config.md", "hidden dir")

	v := New(root)
	paths, err := v.Discover()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join("episodic", "task.md"),
		filepath.Join("notes", "idea.txt"),
	}, paths)
}

func TestLoad_Frontmatter(t *testing.T) {
	root := t.TempDir()
	content := `---
type: episodic
session: session-9
created: 2026-08-01T09:30:00Z
---
## Perception
Saw a thing.`
	writeNote(t, root, "misc/log.md", content)

	v := New(root)
	note, err := v.Load(filepath.Join("misc", "log.md"))
	require.NoError(t, err)

	doc := note.Document
	assert.Equal(t, types.ContentEpisodic, doc.ContentType)
	assert.Equal(t, "session-9", doc.SessionID)
	require.NotNil(t, doc.Timestamp)
	assert.Equal(t, 2026, doc.Timestamp.Year())
	// Frontmatter is stripped from the body.
	assert.Equal(t, "## Perception\nSaw a thing.", doc.Content)
	assert.Equal(t, "misc:log", doc.ID)
	assert.NotZero(t, note.ContentHash)
}

func TestLoad_NoFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "plain.md", "just text")

	v := New(root)
	note, err := v.Load("plain.md")
	require.NoError(t, err)
	assert.Equal(t, "just text", note.Document.Content)
	assert.Equal(t, types.ContentDocument, note.Document.ContentType)
}

func TestLoad_Missing(t *testing.T) {
	v := New(t.TempDir())
	_, err := v.Load("nope.md")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		front map[string]string
		path  string
		want  types.ContentType
	}{
		{"frontmatter wins", map[string]string{"type": "preference"}, "episodic/x.md", types.ContentPreference},
		{"frontmatter case folded", map[string]string{"type": "Procedural"}, "x.md", types.ContentProcedural},
		{"invalid frontmatter falls through", map[string]string{"type": "diary"}, "decisions/x.md", types.ContentPreference},
		{"directory episodic", nil, "logs/run.md", types.ContentEpisodic},
		{"directory procedures", nil, "procedures/deploy.md", types.ContentProcedural},
		{"directory working", nil, "scratch/tmp.md", types.ContentWorking},
		{"root file generic", nil, "readme.md", types.ContentDocument},
		{"unknown directory generic", nil, "archive/old.md", types.ContentDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.front, tt.path))
		})
	}
}

func TestSplitFrontmatter_Unterminated(t *testing.T) {
	front, body := splitFrontmatter("---\ntype: episodic\nno closing fence")
	assert.Empty(t, front)
	assert.Contains(t, body, "no closing fence")
}
