// Package id hands out ULIDs for journal records.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed [32]byte
	if _, err := cryptoRand.Read(seed[:]); err != nil {
		binary.LittleEndian.PutUint64(seed[:], uint64(time.Now().UnixNano()))
	}
	// Monotonic keeps ids made in the same millisecond increasing.
	mono = ulid.Monotonic(rand.NewChaCha8(seed), 0)
}

// New returns a ULID string for the current time. ULIDs sort by creation
// time, which keeps run listings and sqlite indexes in order.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID string stamped with t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// only fails when time runs backwards inside one millisecond
		panic(err)
	}
	return id.String()
}

// Time extracts the timestamp from an id made by New.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()).UTC(), nil
}
