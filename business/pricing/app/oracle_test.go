package app

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	venueapp "github.com/fd1az/crosschain-arb/business/venue/app"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// stubAdapter answers GetPrice with a fixed rate or error.
type stubAdapter struct {
	id   venuedomain.VenueID
	pair venuedomain.Pair
	rate string
	err  error
}

func (s *stubAdapter) ID() venuedomain.VenueID { return s.id }

func (s *stubAdapter) Pair() venuedomain.Pair { return s.pair }

func (s *stubAdapter) GetPrice(ctx context.Context, size asset.Amount) (*venuedomain.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	out, err := asset.ParseString(s.pair.Quote, s.rate)
	if err != nil {
		return nil, err
	}
	q := venuedomain.NewQuote(s.id, s.pair, size, out)
	return &q, nil
}

func (s *stubAdapter) SubmitTrade(ctx context.Context, order venuedomain.TradeOrder) (*venuedomain.TradeReceipt, error) {
	panic("oracle must not trade")
}

func (s *stubAdapter) ReconcileNonce(ctx context.Context) error { return nil }

func (s *stubAdapter) Healthy(ctx context.Context) (bool, string) { return true, "ok" }

func (s *stubAdapter) Close() {}

// capturingPublisher records events concurrently.
type capturingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, ev notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturingPublisher) count(kind notify.Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newOracle(t *testing.T, publisher *capturingPublisher, adapters ...venueapp.Adapter) *Oracle {
	t.Helper()
	o, err := NewOracle(OracleConfig{}, adapters, publisher, testLogger())
	if err != nil {
		t.Fatalf("NewOracle: %v", err)
	}
	return o
}

func TestOracle_CompleteSample(t *testing.T) {
	publisher := &capturingPublisher{}
	o := newOracle(t, publisher,
		&stubAdapter{id: venuedomain.VenueUniswapV3, pair: venuedomain.NewPair(asset.WETH, asset.USDC), rate: "2000"},
		&stubAdapter{id: venuedomain.VenuePancakeV2, pair: venuedomain.NewPair(asset.BETH, asset.BUSD), rate: "2030"},
	)

	sample, err := o.Sample(context.Background(), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if !sample.Complete() {
		t.Fatalf("sample incomplete: errors = %v", sample.Errors)
	}
	if len(sample.Quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(sample.Quotes))
	}

	q, ok := sample.Quote(venuedomain.VenueUniswapV3)
	if !ok {
		t.Fatal("missing uniswap quote")
	}
	if want := decimal.NewFromInt(2000); !q.Price.Rate().Equal(want) {
		t.Errorf("uniswap rate = %s, want %s", q.Price.Rate(), want)
	}

	if got := publisher.count(notify.KindPriceSampled); got != 2 {
		t.Errorf("published %d price events, want 2", got)
	}
}

func TestOracle_PartialSampleKeepsGoodQuote(t *testing.T) {
	publisher := &capturingPublisher{}
	o := newOracle(t, publisher,
		&stubAdapter{id: venuedomain.VenueUniswapV3, pair: venuedomain.NewPair(asset.WETH, asset.USDC), rate: "2000"},
		&stubAdapter{
			id:   venuedomain.VenuePancakeV2,
			pair: venuedomain.NewPair(asset.BETH, asset.BUSD),
			err:  apperror.New(apperror.CodeVenueRPCError),
		},
	)

	sample, err := o.Sample(context.Background(), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if !sample.Partial() {
		t.Fatal("sample should be partial")
	}
	if _, ok := sample.Quote(venuedomain.VenueUniswapV3); !ok {
		t.Error("surviving venue's quote was dropped")
	}
	if _, ok := sample.Errors[venuedomain.VenuePancakeV2]; !ok {
		t.Error("failed venue's error was not recorded")
	}

	// Only quotes that arrived get announced.
	if got := publisher.count(notify.KindPriceSampled); got != 1 {
		t.Errorf("published %d price events, want 1", got)
	}
}

func TestOracle_AllVenuesFailed(t *testing.T) {
	o := newOracle(t, &capturingPublisher{},
		&stubAdapter{
			id:   venuedomain.VenueUniswapV3,
			pair: venuedomain.NewPair(asset.WETH, asset.USDC),
			err:  apperror.New(apperror.CodeVenueRPCError),
		},
		&stubAdapter{
			id:   venuedomain.VenuePancakeV2,
			pair: venuedomain.NewPair(asset.BETH, asset.BUSD),
			err:  apperror.New(apperror.CodeServiceTimeout),
		},
	)

	_, err := o.Sample(context.Background(), decimal.NewFromInt(1))
	if apperror.GetCode(err) != apperror.CodeSampleFailed {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeSampleFailed)
	}
	if !apperror.IsRetryable(err) {
		t.Error("an all-venues-down sample should be retryable")
	}
}

func TestOracle_RequiresAdapters(t *testing.T) {
	if _, err := NewOracle(OracleConfig{}, nil, &capturingPublisher{}, testLogger()); err == nil {
		t.Fatal("NewOracle should reject an empty adapter list")
	}
}
