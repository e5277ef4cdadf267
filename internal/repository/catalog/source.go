package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

// FileSource loads a catalog snapshot from a JSON or CSV file. The file is
// re-read on every Load so a rebuild picks up edits.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a file-backed catalog source.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: path, logger: logger}
}

// Path returns the configured file path.
func (s *FileSource) Path() string { return s.path }

// Load reads and decodes the file; the format follows the extension.
func (s *FileSource) Load(ctx context.Context) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	items, err := Decode(f, filepath.Ext(s.path))
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", s.path, err)
	}
	s.logger.Info("Catalog loaded", zap.String("path", s.path), zap.Int("items", len(items)))
	return items, nil
}

// Decode parses r according to ext (".json" or ".csv").
func Decode(r io.Reader, ext string) ([]catalog.Item, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return DecodeJSON(r)
	case ".csv":
		return DecodeCSV(r)
	default:
		return nil, domain.NewConfigurationError("", fmt.Sprintf("unsupported catalog format %q", ext))
	}
}

// record is the on-disk shape shared by both formats.
type record struct {
	ID              string
	Name            string
	URL             string
	Description     string
	TestType        string
	Category        string
	Duration        string
	DurationMinutes string
	AdaptiveSupport string
	RemoteSupport   string
}

// toItem converts a record; pos is 1-based and only used for error context.
func (r *record) toItem(pos int) (catalog.Item, error) {
	id := r.ID
	if id == "" {
		id = deriveID(r.URL, r.Name)
	}

	label := r.TestType
	if label == "" {
		label = r.Category
	}

	it, err := catalog.New(id, r.Name, r.URL, r.Description, catalog.ParseCategory(label), catalog.Attributes{
		Duration:        durationText(r.Duration, r.DurationMinutes),
		AdaptiveSupport: catalog.ParseSupport(r.AdaptiveSupport),
		RemoteSupport:   catalog.ParseSupport(r.RemoteSupport),
	})
	if err != nil {
		return catalog.Item{}, domain.NewConfigurationError(id, fmt.Sprintf("record %d: %v", pos, err))
	}
	return it, nil
}

// deriveID uses the last URL path segment, falling back to a name slug.
func deriveID(rawURL, name string) string {
	if u := strings.Trim(strings.TrimSpace(rawURL), "/"); u != "" {
		if i := strings.LastIndex(u, "/"); i >= 0 {
			u = u[i+1:]
		}
		if u != "" && !strings.Contains(u, ":") {
			return u
		}
	}
	return slug(name)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
