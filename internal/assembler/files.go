package assembler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// LoadTemplates reads every "*.md" template in dir, sorted by name.
func LoadTemplates(dir string) ([]Template, error) {
	fsys := os.DirFS(dir)
	names, err := doublestar.Glob(fsys, "*.md", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	templates := make([]Template, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}
		templates = append(templates, Template{Name: name, Content: string(data)})
	}
	return templates, nil
}

// Write stores every document of the run in dir, creating it if needed.
func (r *Run) Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	paths := make([]string, 0, len(r.Documents))
	for _, doc := range r.Documents {
		path := filepath.Join(dir, filepath.Base(doc.Name))
		if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", doc.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
