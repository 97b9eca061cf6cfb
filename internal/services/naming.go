package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SanitizeFilename reduces an untrusted client-supplied filename to a safe
// storage name. Every rune outside [A-Za-z0-9._-] becomes "_", so path
// separators and traversal sequences cannot survive. Leading dots are
// replaced too, which keeps "..", ".." prefixes and hidden files out of the
// store. An empty result yields "archivo".
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "archivo"
	}
	return out
}

// StorageName generates a collision-resistant on-disk name for an upload by
// prefixing the sanitized original name with a nanosecond timestamp.
func StorageName(original string) string {
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), SanitizeFilename(original))
}

// ArchiveName generates the output name for a session archive. It embeds the
// sanitized session key plus a timestamp and a random token so names are
// never reused.
func ArchiveName(sessionKey string) string {
	return fmt.Sprintf("fotos_%s_%d_%s.zip", SanitizeFilename(sessionKey), time.Now().Unix(), shortToken())
}

// StatelessArchiveName generates the output name for a one-shot archive.
func StatelessArchiveName() string {
	return fmt.Sprintf("archivos_%d_%s.zip", time.Now().Unix(), shortToken())
}

func shortToken() string {
	return strings.Split(uuid.NewString(), "-")[0]
}
