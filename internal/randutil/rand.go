package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG words are derived from the one seed so that every call site gets
// reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns a fresh seed from the operating system's entropy source.
func Seed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("randutil: read entropy: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Child derives an independent generator from parent, for handing each room
// its own source while the process stays reproducible from one seed.
func Child(parent *rand.Rand) *rand.Rand {
	return New(int64(parent.Uint64()))
}

// Sample returns k distinct elements of items chosen uniformly at random.
// items is not modified. If k exceeds len(items) every element is returned
// in random order.
func Sample[T any](rng *rand.Rand, items []T, k int) []T {
	if k <= 0 {
		return nil
	}
	k = min(k, len(items))
	idx := rng.Perm(len(items))[:k]
	out := make([]T, k)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
