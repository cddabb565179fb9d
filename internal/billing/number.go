package billing

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// NumberGenerator mints display invoice numbers of the form
// INV-<8 digits of epoch milliseconds>-<3-digit random suffix>.
//
// Numbers are labels, not keys: invoices are addressed by their
// store-assigned id, and collisions under concurrent generation are
// accepted.
type NumberGenerator struct {
	now  func() time.Time
	intn func(int) int
}

// NewNumberGenerator returns a generator backed by the wall clock and
// the default random source.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now, intn: rand.Intn}
}

// NewNumberGeneratorWith injects the clock and random source. Tests use
// this to pin the output.
func NewNumberGeneratorWith(now func() time.Time, intn func(int) int) *NumberGenerator {
	return &NumberGenerator{now: now, intn: intn}
}

// Next returns a fresh invoice number.
func (g *NumberGenerator) Next() string {
	ms := strconv.FormatInt(g.now().UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	for len(ms) < 8 {
		ms = "0" + ms
	}
	return fmt.Sprintf("INV-%s-%03d", ms, g.intn(1000))
}
