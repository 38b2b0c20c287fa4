package transcoder

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// TargetCodec is the codec tag in artifact names.
	TargetCodec = "h264"
	// TargetExt is the artifact container extension.
	TargetExt = ".mp4"

	hashLen    = 10
	tempPrefix = ".tmp-"
)

// CacheKey identifies one version of one source file.
type CacheKey struct {
	PathHash string
	ModHash  string
}

// String returns the registry key.
func (k CacheKey) String() string {
	return k.PathHash + "_" + k.ModHash
}

// KeyFor derives the cache key from an absolute source path and its
// modification time. A new mtime always yields a new key.
func KeyFor(absPath string, modTime time.Time) CacheKey {
	return CacheKey{
		PathHash: shortHash(absPath),
		ModHash:  shortHash(strconv.FormatInt(modTime.UnixNano(), 10)),
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// ArtifactName returns the cache file name for sourcePath under key:
// <base>_<pathHash>_<modHash>_h264.mp4.
func ArtifactName(sourcePath string, key CacheKey) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return sanitizeBase(base) + "_" + key.String() + "_" + TargetCodec + TargetExt
}

func sanitizeBase(base string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, base)

	// a leading dot would hide the artifact like a temp file
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
