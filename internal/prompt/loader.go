package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/voicedev/vox/internal/domain"
)

// Loader manages task templates with override support.
type Loader struct {
	overrideDirs []string // Directories to check for overrides (in priority order)
	cache        map[string]*template.Template
	metaCache    map[string]*TemplateMeta
	mu           sync.RWMutex
}

// TemplateMeta holds frontmatter metadata for task templates.
type TemplateMeta struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NewLoader creates a loader with the given override directories.
// Directories are checked in order; first match wins.
func NewLoader(overrideDirs ...string) *Loader {
	return &Loader{
		overrideDirs: overrideDirs,
		cache:        make(map[string]*template.Template),
		metaCache:    make(map[string]*TemplateMeta),
	}
}

// DefaultLoader creates a loader that checks the user config directory
// (~/.config/vox/templates) before falling back to embedded templates.
func DefaultLoader(overrideDir string) *Loader {
	home, _ := os.UserHomeDir()
	dirs := []string{}

	if overrideDir != "" {
		dirs = append(dirs, overrideDir)
	}
	dirs = append(dirs, filepath.Join(home, ".config", "vox", "templates"))

	return NewLoader(dirs...)
}

// loadContent loads raw content from override dirs or embedded FS.
func (l *Loader) loadContent(path string) ([]byte, error) {
	for _, dir := range l.overrideDirs {
		fullPath := filepath.Join(dir, path)
		if data, err := os.ReadFile(fullPath); err == nil {
			return data, nil
		}
	}

	return fs.ReadFile(embeddedFS, path)
}

// parseFrontmatter splits content into frontmatter and body.
func parseFrontmatter(content []byte) (*TemplateMeta, string, error) {
	str := string(content)

	if !strings.HasPrefix(str, "---\n") {
		return nil, str, nil // No frontmatter
	}

	end := strings.Index(str[4:], "\n---\n")
	if end == -1 {
		return nil, str, nil // Malformed, treat as no frontmatter
	}

	frontmatter := str[4 : 4+end]
	body := str[4+end+5:] // Skip closing "---\n"

	var meta TemplateMeta
	if err := yaml.Unmarshal([]byte(frontmatter), &meta); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}

	return &meta, body, nil
}

// LoadTemplate loads and parses a template by path (e.g., "tasks/review.md").
func (l *Loader) LoadTemplate(path string) (*template.Template, *TemplateMeta, error) {
	l.mu.RLock()
	if tmpl, ok := l.cache[path]; ok {
		meta := l.metaCache[path]
		l.mu.RUnlock()
		return tmpl, meta, nil
	}
	l.mu.RUnlock()

	content, err := l.loadContent(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}

	meta, body, err := parseFrontmatter(content)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tmpl, err := template.New(path).Parse(body)
	if err != nil {
		return nil, nil, fmt.Errorf("compile template %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[path] = tmpl
	l.metaCache[path] = meta
	l.mu.Unlock()

	return tmpl, meta, nil
}

// TaskTemplate returns the template bound to a task type, or a
// TemplateNotFoundError when neither overrides nor the embedded set
// carry one.
func (l *Loader) TaskTemplate(t domain.TaskType) (*template.Template, error) {
	tmpl, _, err := l.LoadTemplate(filepath.Join("tasks", string(t)+".md"))
	if err != nil {
		return nil, &TemplateNotFoundError{TaskType: string(t)}
	}
	return tmpl, nil
}

// GenericTemplate returns the fallback template used for unknown task types.
func (l *Loader) GenericTemplate() (*template.Template, error) {
	tmpl, _, err := l.LoadTemplate("tasks/generic.md")
	if err != nil {
		return nil, fmt.Errorf("generic template missing: %w", err)
	}
	return tmpl, nil
}

// ListTemplates returns metadata for all embedded task templates.
func (l *Loader) ListTemplates() ([]*TemplateMeta, error) {
	entries, err := fs.ReadDir(embeddedFS, "tasks")
	if err != nil {
		return nil, err
	}

	var result []*TemplateMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join("tasks", entry.Name())
		_, meta, err := l.LoadTemplate(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if meta != nil {
			result = append(result, meta)
		}
	}

	return result, nil
}

// ClearCache clears the template cache (used by the override watcher).
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*template.Template)
	l.metaCache = make(map[string]*TemplateMeta)
	l.mu.Unlock()
}
