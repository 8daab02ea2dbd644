package idutils

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lexically sortable ULID for turns and stored documents.
func NewID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
