package curriculum

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Loader loads and caches curriculum documents from the filesystem.
// The catalog is read-only after NewLoader returns.
type Loader struct {
	rootDir   string
	curricula map[string]Curriculum
	mu        sync.RWMutex
}

// NewLoader creates a curriculum loader and loads every seed document under
// rootDir. Invalid documents fail the load; the catalog is all-or-nothing.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:   rootDir,
		curricula: make(map[string]Curriculum),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum catalog: %w", err)
	}

	slog.Info("curriculum catalog loaded", "curricula", len(l.curricula))
	return l, nil
}

// Get returns the curriculum for a (class, subject) pair.
func (l *Loader) Get(class, subject string) (Curriculum, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.curricula[Key(class, subject)]
	return c, ok
}

// All returns every loaded curriculum.
func (l *Loader) All() []Curriculum {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Curriculum, 0, len(l.curricula))
	for _, c := range l.curricula {
		out = append(out, c)
	}
	return out
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return l.loadDocument(path)
	})
}

func (l *Loader) loadDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := validateDocument(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var cur Curriculum
	if err := yaml.Unmarshal(data, &cur); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := cur.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	key := Key(cur.Class, cur.Subject)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.curricula[key]; exists {
		return fmt.Errorf("%s: duplicate curriculum for %s", path, key)
	}
	l.curricula[key] = cur
	return nil
}

// validateDocument checks a YAML seed document against the curriculum schema.
// The document is round-tripped through JSON because the schema validator
// only speaks JSON.
func validateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(curriculumSchema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
	}
	return nil
}
