package preview

import (
	"strings"

	"github.com/codeloom/codeloom/internal/store"
)

// FileSource is the slice of the project store the preview needs: path lookup
// over a project's current files.
type FileSource interface {
	ListFiles(owner, projectID string) ([]store.FileRecord, error)
}

// entryCandidates are tried in order when resolving a project's preview entry.
var entryCandidates = []string{
	"index.html",
	"public/index.html",
	"app/index.html",
	"src/index.html",
	"src/app/page.html",
	// Next.js style
	"src/app/page.tsx",
	"app/page.tsx",
	"pages/index.tsx",
	"pages/index.js",
}

// Static serves project files for preview rendering.
type Static struct {
	source FileSource
}

// NewStatic creates a static preview reader over a file source.
func NewStatic(source FileSource) *Static {
	return &Static{source: source}
}

// ReadFile returns a file by web path. A leading slash is optional.
func (s *Static) ReadFile(owner, projectID, path string) (*store.FileRecord, error) {
	normalized := strings.TrimPrefix(path, "/")
	files, err := s.source.ListFiles(owner, projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if strings.TrimPrefix(f.Path, "/") == normalized {
			return &f, nil
		}
	}
	return nil, store.ErrNotFound
}

// EntryFile resolves the project's preview entry path, or "" when no typical
// entry file exists.
func (s *Static) EntryFile(owner, projectID string) (string, error) {
	files, err := s.source.ListFiles(owner, projectID)
	if err != nil {
		return "", err
	}
	paths := make(map[string]struct{}, len(files))
	for _, f := range files {
		paths[strings.TrimPrefix(f.Path, "/")] = struct{}{}
	}
	for _, c := range entryCandidates {
		if _, ok := paths[c]; ok {
			return c, nil
		}
	}
	return "", nil
}

// ContentType guesses a media type from a file path for preview serving.
func ContentType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(lower, ".js"):
		return "application/javascript"
	case strings.HasSuffix(lower, ".ts"):
		return "application/typescript"
	case strings.HasSuffix(lower, ".tsx"):
		return "text/plain"
	case strings.HasSuffix(lower, ".css"):
		return "text/css"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".woff2"):
		return "font/woff2"
	default:
		return "text/plain; charset=utf-8"
	}
}
