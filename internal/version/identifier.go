package version

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timestampLayout gives seconds resolution and lexicographic ordering that
// matches chronological ordering.
const timestampLayout = "20060102150405"

// New returns a unique, chronologically sortable version identifier of the
// form v{UTC timestamp}_{8 hex chars}. The suffix carries 32 bits of
// entropy, enough to make collisions across concurrent callers negligible.
// New never fails and never blocks.
func New() string {
	return NewAt(time.Now())
}

// NewAt builds an identifier for the given creation time. Split out so tests
// can pin the timestamp half.
func NewAt(t time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("v%s_%s", t.UTC().Format(timestampLayout), hex.EncodeToString(id[:4]))
}
