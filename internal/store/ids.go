package store

import (
	"strings"

	"github.com/google/uuid"
)

const (
	prefixCourse   = "crs"
	prefixModule   = "mod"
	prefixLesson   = "les"
	prefixTemplate = "tpl"
)

// newID returns prefix-<12 hex chars> drawn from a random UUID (48 bits).
func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + suffix[:12]
}
