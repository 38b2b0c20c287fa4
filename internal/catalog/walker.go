package catalog

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/mediatypes"
	"recview/internal/workers"
)

// CodecProber labels the video codec of a file. Failures yield "Unknown".
type CodecProber interface {
	Codec(ctx context.Context, path string) string
}

// Walker lists directories under a media root.
type Walker struct {
	root   string
	prober CodecProber
}

// NewWalker creates a Walker for root. prober may be nil, in which case
// entries carry no codec.
func NewWalker(root string, prober CodecProber) *Walker {
	return &Walker{root: root, prober: prober}
}

// Root returns the media root.
func (w *Walker) Root() string {
	return w.root
}

// List returns the immediate children of rel: directories first, then video
// files, each group sorted by name. Hidden and non-video files are skipped.
// A directory that cannot be read lists as empty.
func (w *Walker) List(ctx context.Context, rel string) []MediaEntry {
	rel = CleanRel(rel)
	entries := []MediaEntry{}

	dir, err := Resolve(w.root, rel)
	if err != nil {
		logging.Warn("Refusing to list %q: %v", rel, err)
		return entries
	}

	dirEntries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Failed to read directory %s: %v", dir, err)
		return entries
	}

	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ReservedPrefix) {
			continue
		}

		entry, ok := w.toEntry(dir, rel, de)
		if ok {
			entries = append(entries, entry)
		}
	}

	sortEntries(entries)
	w.probeCodecs(ctx, dir, entries)
	return entries
}

func (w *Walker) toEntry(dir, rel string, de os.DirEntry) (MediaEntry, bool) {
	full := filepath.Join(dir, de.Name())

	var info os.FileInfo
	var err error
	if de.Type()&os.ModeSymlink != 0 {
		info, err = filesystem.StatWithRetry(full, filesystem.DefaultRetryConfig())
	} else {
		info, err = de.Info()
	}
	if err != nil {
		logging.Debug("Skipping %s: %v", full, err)
		return MediaEntry{}, false
	}

	entry := MediaEntry{
		Name:    de.Name(),
		RelPath: path.Join(rel, de.Name()),
		ModTime: info.ModTime(),
	}

	switch {
	case info.IsDir():
		entry.Kind = mediatypes.KindDirectory
	case info.Mode().IsRegular() && mediatypes.IsVideo(de.Name()):
		entry.Kind = mediatypes.KindFile
		entry.Size = info.Size()
		entry.SizeHuman = humanize.Bytes(uint64(info.Size()))
	default:
		return MediaEntry{}, false
	}
	return entry, true
}

func sortEntries(entries []MediaEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name < entries[j].Name
	})
}

// probeCodecs fills Codec for files. Probes run in parallel, each bounded by
// the prober's own timeout.
func (w *Walker) probeCodecs(ctx context.Context, dir string, entries []MediaEntry) {
	if w.prober == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForCPU(8))

	for i := range entries {
		if entries[i].IsDir() {
			continue
		}
		e := &entries[i]
		g.Go(func() error {
			e.Codec = w.prober.Codec(gctx, filepath.Join(dir, e.Name))
			return nil
		})
	}
	_ = g.Wait()
}
