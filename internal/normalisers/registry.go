package normalisers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Registry selects a normaliser by file extension.
type Registry struct {
	byExt map[string]driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
// Later normalisers replace earlier ones for a shared extension.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byExt: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for each of its extensions.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Supports reports whether a normaliser handles the path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Normalise extracts text from content using the normaliser for path.
func (r *Registry) Normalise(ctx context.Context, path string, content []byte) (*driven.NormaliseResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	n, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no normaliser for %q files", domain.ErrUnsupportedType, ext)
	}
	return n.Normalise(ctx, &driven.RawFile{Path: path, Content: content})
}

// Load reads the file at path and normalises it.
func (r *Registry) Load(ctx context.Context, path string) (*driven.NormaliseResult, error) {
	if !r.Supports(path) {
		return nil, fmt.Errorf("%w: no normaliser for %q files",
			domain.ErrUnsupportedType, strings.ToLower(filepath.Ext(path)))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return r.Normalise(ctx, path, content)
}
