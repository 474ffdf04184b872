package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewBatchID returns a time-sortable ULID used to correlate one inbound
// batch across logs, traces and downstream messages.
func NewBatchID() string {
	return newULID(time.Now())
}

// NewMessageID returns a ULID for an outbound broker message.
func NewMessageID() string {
	return newULID(time.Now())
}

func newULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
