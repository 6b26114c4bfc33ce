// Package generator produces synthetic lift ticket purchases.
package generator

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// SeasonEnd is the expiration date printed on every ticket.
var SeasonEnd = civil.Date{Year: 2023, Month: time.June, Day: 1}

// Generator draws ticket fields from a fake-data source.
// A Generator is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes field draws reproducible. Transaction ids stay random.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.faker = gofakeit.New(seed)
	}
}

// WithClock overrides the purchase time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		faker: gofakeit.New(0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a lazy sequence of count tickets. Each range over the
// sequence produces fresh tickets; count <= 0 yields nothing.
func (g *Generator) Generate(count int) iter.Seq[tickets.LiftTicket] {
	return func(yield func(tickets.LiftTicket) bool) {
		for i := 0; i < count; i++ {
			if !yield(g.next()) {
				return
			}
		}
	}
}

func (g *Generator) next() tickets.LiftTicket {
	f := g.faker
	t := tickets.LiftTicket{
		TransactionID:  uuid.NewString(),
		DeviceID:       fmt.Sprintf("0x%08x%016x", f.Uint32(), f.Uint64()),
		Resort:         f.RandomString(tickets.Resorts),
		PurchaseTime:   g.now().UTC().Truncate(time.Microsecond),
		ExpirationTime: SeasonEnd,
		Days:           f.IntRange(1, 7),
		Name:           f.Name(),
	}

	if f.Bool() {
		state := stateAbbrs[f.IntRange(0, len(stateAbbrs)-1)]
		t.Address = tickets.Some(tickets.Address{
			Street:     f.Street(),
			City:       f.City(),
			State:      state,
			PostalCode: g.postalCodeIn(state),
		})
	}
	if f.Bool() {
		t.Phone = tickets.Some(f.Phone())
	}
	if f.Bool() {
		t.Email = tickets.Some(f.Email())
	}
	if f.Bool() {
		t.EmergencyContact = tickets.Some(tickets.EmergencyContact{
			Name:  f.Name(),
			Phone: f.Phone(),
		})
	}
	return t
}

// WriteTickets writes one encoded ticket per line followed by the blank-line sentinel.
// It returns the number of tickets written.
func WriteTickets(w io.Writer, seq iter.Seq[tickets.LiftTicket]) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for t := range seq {
		line, err := tickets.Encode(t)
		if err != nil {
			return n, err
		}
		if _, err := bw.Write(line); err != nil {
			return n, fmt.Errorf("failed to write ticket %d: %w", n+1, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return n, fmt.Errorf("failed to write ticket %d: %w", n+1, err)
		}
		n++
	}
	if err := bw.WriteByte('\n'); err != nil {
		return n, fmt.Errorf("failed to write end of stream: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush output: %w", err)
	}
	return n, nil
}
