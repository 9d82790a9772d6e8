package id

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrInvalid is returned by Parse for strings that are not 32 hex digits.
var ErrInvalid = errors.New("id: invalid identifier")

// ID is a delivery identifier.
type ID [16]byte

// String returns the 32-digit hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Time returns the mint time, truncated to the millisecond.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8])))
}

// Nonce returns the boot nonce of the Generator that minted i.
func (i ID) Nonce() uint32 { return binary.BigEndian.Uint32(i[8:12]) }

// Compare orders ids byte-wise.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	if len(s) != hex.EncodedLen(len(out)) {
		return ID{}, ErrInvalid
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return ID{}, ErrInvalid
	}
	return out, nil
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithNonce fixes the boot nonce instead of drawing it at random.
func WithNonce(n uint32) Option {
	return func(g *Generator) { g.nonce = n }
}

// Generator mints strictly increasing ids. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	nonce   uint32
	lastMs  int64
	counter uint32
}

// NewGenerator creates a Generator with a random boot nonce.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now, nonce: randomNonce()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next mints an id. A clock that goes backwards is ignored; the generator
// keeps its last millisecond. When the counter runs out inside one
// millisecond the generator moves its own clock forward one millisecond
// instead of waiting for the wall clock.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	switch {
	case ms > g.lastMs:
		g.lastMs = ms
		g.counter = 0
	case g.counter == math.MaxUint32:
		g.lastMs++
		g.counter = 0
	default:
		g.counter++
	}

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(g.lastMs))
	binary.BigEndian.PutUint32(out[8:12], g.nonce)
	binary.BigEndian.PutUint32(out[12:16], g.counter)
	return out
}

func randomNonce() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(b[:])
}
