// Package prompt loads named system prompts from a directory of plain-text
// files. A name without a matching file resolves to the "default" prompt.
package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultName is the prompt used when a requested name has no file.
const DefaultName = "default"

const fileExt = ".txt"

// Loader reads prompts from Dir on every call. There is no cache: edits to
// prompt files take effect on the next request.
type Loader struct {
	dir string
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load returns the prompt called name with every newline removed. Names
// that are not plain file names (path separators, "..") are treated as
// missing and fall back to the default prompt.
func (l *Loader) Load(name string) (string, error) {
	if name == "" || !isPlainName(name) {
		name = DefaultName
	}

	raw, err := os.ReadFile(l.path(name))
	if errors.Is(err, fs.ErrNotExist) && name != DefaultName {
		raw, err = os.ReadFile(l.path(DefaultName))
	}
	if err != nil {
		return "", fmt.Errorf("prompt: failed to read %q: %w", name, err)
	}

	return stripNewlines(string(raw)), nil
}

func (l *Loader) path(name string) string {
	return filepath.Join(l.dir, name+fileExt)
}

func isPlainName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
