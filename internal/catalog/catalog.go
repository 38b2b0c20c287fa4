package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recview/internal/mediatypes"
)

// Sentinel errors returned by Resolve.
var (
	// ErrOutsideRoot means the path escapes the media root.
	ErrOutsideRoot = errors.New("path outside media root")
	// ErrReserved means a path segment starts with the reserved "." marker,
	// which covers the transcode cache and hidden files.
	ErrReserved = errors.New("reserved path")
)

// ReservedPrefix marks names that are never listed or served.
const ReservedPrefix = "."

// MediaEntry is one row of a directory listing.
type MediaEntry struct {
	Name      string               `json:"name"`
	RelPath   string               `json:"path"`
	Kind      mediatypes.EntryKind `json:"kind"`
	Size      int64                `json:"size"`
	SizeHuman string               `json:"sizeHuman"`
	Codec     string               `json:"codec,omitempty"`
	ModTime   time.Time            `json:"modTime"`
}

// IsDir reports whether the entry is a directory.
func (e MediaEntry) IsDir() bool {
	return e.Kind == mediatypes.KindDirectory
}

// Crumb is one step of the breadcrumb trail.
type Crumb struct {
	Name    string
	RelPath string
}

// HomeName is the label of the root breadcrumb.
const HomeName = "Home"

// CleanRel normalizes a user-supplied relative path to slash form without
// leading or trailing separators. The root is "".
func CleanRel(rel string) string {
	rel = filepath.ToSlash(filepath.Clean("/" + filepath.ToSlash(rel)))
	return strings.Trim(rel, "/")
}

// Resolve maps rel onto root and returns the absolute path. It rejects paths
// that leave root, including through symlinks, and paths with a reserved
// segment.
func Resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")
	joined := filepath.Join(absRoot, filepath.FromSlash(rel))

	if err := contained(absRoot, joined); err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return joined, nil
		}
		return "", err
	}
	if err := contained(absRoot, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// contained checks that p lies in root and has no reserved segment below it.
func contained(root, p string) error {
	inside, err := filepath.Rel(root, p)
	if err != nil || escapes(inside) {
		return ErrOutsideRoot
	}
	if inside == "." {
		return nil
	}
	for _, seg := range strings.Split(filepath.ToSlash(inside), "/") {
		if strings.HasPrefix(seg, ReservedPrefix) {
			return ErrReserved
		}
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Breadcrumbs returns the trail from the root down to rel.
func Breadcrumbs(rel string) []Crumb {
	crumbs := []Crumb{{Name: HomeName, RelPath: ""}}

	rel = CleanRel(rel)
	if rel == "" {
		return crumbs
	}

	current := ""
	for _, part := range strings.Split(rel, "/") {
		if current == "" {
			current = part
		} else {
			current = current + "/" + part
		}
		crumbs = append(crumbs, Crumb{Name: part, RelPath: current})
	}
	return crumbs
}

// Parent returns the relative path of rel's parent directory and false when
// rel is the root.
func Parent(rel string) (string, bool) {
	rel = CleanRel(rel)
	if rel == "" {
		return "", false
	}
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "", true
	}
	return rel[:i], true
}
