package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed random identifier such as "req-3f2a9c0e4b1d4c7e9a5b6d8e0f1a2b3c".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
