package id

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// crockford is the ULID alphabet. I, L, O and U are left out.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// RunIDLen is the length of a run id.
const RunIDLen = 26

// UUID returns a random version 4 UUID.
func UUID() string {
	return uuid.NewString()
}

var (
	mu      sync.Mutex
	lastMs  int64
	entropy [10]byte
)

// RunID returns a new ULID. Ids from the same millisecond increment the random
// part, keeping them strictly ordered.
func RunID() string {
	return runID(time.Now())
}

func runID(now time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	ms := now.UnixMilli()
	if ms <= lastMs {
		ms = lastMs
		if !increment(entropy[:]) {
			// Random part exhausted for this millisecond; borrow the next one.
			ms++
			_, _ = rand.Read(entropy[:])
		}
	} else {
		_, _ = rand.Read(entropy[:])
	}
	lastMs = ms

	var raw [16]byte
	for i := 0; i < 6; i++ {
		raw[i] = byte(ms >> (40 - 8*i))
	}
	copy(raw[6:], entropy[:])
	return encode(raw)
}

// increment adds one to b as a big-endian number and reports false on overflow.
func increment(b []byte) bool {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return true
		}
	}
	return false
}

// encode writes the 128 bits of raw as 26 base32 digits. The first digit
// carries two implicit leading zero bits.
func encode(raw [16]byte) string {
	var out [RunIDLen]byte
	for i := range out {
		var v byte
		for j := 0; j < 5; j++ {
			v <<= 1
			if p := i*5 + j - 2; p >= 0 && raw[p/8]>>(7-p%8)&1 == 1 {
				v |= 1
			}
		}
		out[i] = crockford[v]
	}
	return string(out[:])
}

// IsRunID reports whether s is a well-formed run id.
func IsRunID(s string) bool {
	if len(s) != RunIDLen || strings.IndexByte(crockford[:8], s[0]) < 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(crockford, s[i]) < 0 {
			return false
		}
	}
	return true
}

// RunTime returns the creation time encoded in a run id.
func RunTime(s string) (time.Time, error) {
	if !IsRunID(s) {
		return time.Time{}, fmt.Errorf("invalid run id %q", s)
	}
	var ms int64
	for i := 0; i < 10; i++ {
		ms = ms<<5 | int64(strings.IndexByte(crockford, s[i]))
	}
	return time.UnixMilli(ms), nil
}
