package vault

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// Note is one discovered vault file: the parsed document plus the file
// attributes used for incremental re-ingest.
type Note struct {
	Document    *types.Document
	ContentHash [32]byte
	ModTime     time.Time
	SizeBytes   int64
}

// Vault reads an on-disk notes directory. Notes are markdown or plain
// text; an optional frontmatter block classifies them. Vault performs no
// writes and holds no state beyond its root path.
type Vault struct {
	root string
}

// New creates a Vault rooted at the given directory.
func New(root string) *Vault {
	return &Vault{root: root}
}

// Root returns the vault's root directory.
func (v *Vault) Root() string {
	return v.root
}

// noteExtensions are the file types treated as notes.
var noteExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// IsNote reports whether a path has a note file extension.
func IsNote(path string) bool {
	return noteExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks the vault and returns the relative paths of all note
// files. Hidden directories are skipped.
func (v *Vault) Discover() ([]string, error) {
	var paths []string

	err := filepath.Walk(v.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != v.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsNote(path) {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})

	return paths, err
}

// Load reads one note by its vault-relative path and classifies it.
func (v *Vault) Load(relPath string) (*Note, error) {
	abs := filepath.Join(v.root, relPath)

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat note: %w", err)
	}

	front, body := splitFrontmatter(string(content))
	doc := &types.Document{
		ID:          noteID(relPath),
		Path:        relPath,
		Content:     body,
		ContentType: Classify(front, relPath),
		SessionID:   front["session"],
	}
	if ts := parseTimestamp(front["created"]); ts != nil {
		doc.Timestamp = ts
	}

	return &Note{
		Document:    doc,
		ContentHash: sha256.Sum256(content),
		ModTime:     info.ModTime(),
		SizeBytes:   info.Size(),
	}, nil
}

// noteID derives a stable document ID from the vault-relative path.
func noteID(relPath string) string {
	id := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(filepath.ToSlash(id), "/", ":")
}

// Classify determines a note's content type: an explicit frontmatter
// `type:` wins, then the top-level directory name, then generic document.
func Classify(front map[string]string, relPath string) types.ContentType {
	if t, ok := front["type"]; ok {
		if ct := types.ContentType(strings.ToLower(strings.TrimSpace(t))); types.ValidContentType(ct) {
			return ct
		}
	}

	dir := filepath.ToSlash(relPath)
	if i := strings.Index(dir, "/"); i > 0 {
		switch strings.ToLower(dir[:i]) {
		case "episodic", "episodes", "logs", "tasks":
			return types.ContentEpisodic
		case "semantic", "notes", "reflections":
			return types.ContentSemantic
		case "preference", "preferences", "decisions":
			return types.ContentPreference
		case "procedural", "procedures", "guides", "howto":
			return types.ContentProcedural
		case "working", "scratch":
			return types.ContentWorking
		}
	}
	return types.ContentDocument
}

// splitFrontmatter separates a leading `---` frontmatter block from the
// note body. Only flat `key: value` lines are parsed; anything else in
// the block is ignored. Notes without frontmatter return an empty map
// and the full content.
func splitFrontmatter(content string) (map[string]string, string) {
	front := make(map[string]string)

	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return front, content
	}
	rest := strings.TrimPrefix(content, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return front, content
	}

	block := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")

	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			front[key] = value
		}
	}
	return front, body
}

// timestampFormats are accepted for the frontmatter `created:` field.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timestampFormats {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
