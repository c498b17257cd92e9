package models

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string. ULIDs sort lexicographically by
// creation time, which keeps on-disk record files in rough creation order.
func NewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}
