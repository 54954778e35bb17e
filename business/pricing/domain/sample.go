// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	venue "github.com/fd1az/crosschain-arb/business/venue/domain"
)

// Sample is one polling cycle's worth of venue quotes. A sample may be
// partial: quotes that arrived are kept even when another venue failed,
// because a partial sample still has diagnostic value. Trading, however,
// requires a complete sample.
type Sample struct {
	Quotes    map[venue.VenueID]venue.Quote
	Errors    map[venue.VenueID]error
	SampledAt time.Time
}

// Complete reports whether every polled venue answered.
func (s *Sample) Complete() bool {
	return len(s.Errors) == 0
}

// Partial reports whether some but not all venues answered.
func (s *Sample) Partial() bool {
	return len(s.Errors) > 0 && len(s.Quotes) > 0
}

// Quote returns the quote for one venue.
func (s *Sample) Quote(id venue.VenueID) (venue.Quote, bool) {
	q, ok := s.Quotes[id]
	return q, ok
}
