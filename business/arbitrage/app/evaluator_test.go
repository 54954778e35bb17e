package app

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/fd1az/crosschain-arb/business/pricing/domain"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/asset"
)

// quoteAt builds a one-base-token quote priced at the given rate.
func quoteAt(t *testing.T, id venuedomain.VenueID, pair venuedomain.Pair, rate string) venuedomain.Quote {
	t.Helper()

	amountIn, err := asset.ParseString(pair.Base, "1")
	if err != nil {
		t.Fatalf("parse amount in: %v", err)
	}
	amountOut, err := asset.ParseString(pair.Quote, rate)
	if err != nil {
		t.Fatalf("parse amount out: %v", err)
	}
	return venuedomain.NewQuote(id, pair, amountIn, amountOut)
}

func ethPair() venuedomain.Pair {
	return venuedomain.NewPair(asset.WETH, asset.USDC)
}

func bscPair() venuedomain.Pair {
	return venuedomain.NewPair(asset.BETH, asset.BUSD)
}

func sampleWith(quotes ...venuedomain.Quote) *pricingdomain.Sample {
	s := &pricingdomain.Sample{
		Quotes: make(map[venuedomain.VenueID]venuedomain.Quote),
		Errors: make(map[venuedomain.VenueID]error),
	}
	for _, q := range quotes {
		s.Quotes[q.Venue] = q
	}
	return s
}

func TestEvaluator_Evaluate(t *testing.T) {
	threshold := decimal.RequireFromString("1.0")

	tests := []struct {
		name           string
		uniswapRate    string
		pancakeRate    string
		wantProfitable bool
		wantBuyVenue   venuedomain.VenueID
		wantSellVenue  venuedomain.VenueID
	}{
		{
			name:           "spread above threshold trades",
			uniswapRate:    "1.000",
			pancakeRate:    "1.015",
			wantProfitable: true,
			wantBuyVenue:   venuedomain.VenueUniswapV3,
			wantSellVenue:  venuedomain.VenuePancakeV2,
		},
		{
			name:           "spread in the other direction trades",
			uniswapRate:    "1.020",
			pancakeRate:    "1.000",
			wantProfitable: true,
			wantBuyVenue:   venuedomain.VenuePancakeV2,
			wantSellVenue:  venuedomain.VenueUniswapV3,
		},
		{
			name:           "spread exactly at threshold does not trade",
			uniswapRate:    "1.00",
			pancakeRate:    "1.01",
			wantProfitable: false,
		},
		{
			name:           "spread below threshold does not trade",
			uniswapRate:    "1.000",
			pancakeRate:    "1.005",
			wantProfitable: false,
		},
		{
			name:           "equal prices do not trade",
			uniswapRate:    "2000",
			pancakeRate:    "2000",
			wantProfitable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := sampleWith(
				quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), tt.uniswapRate),
				quoteAt(t, venuedomain.VenuePancakeV2, bscPair(), tt.pancakeRate),
			)

			decision := NewEvaluator(threshold).Evaluate(sample)

			if decision.Profitable != tt.wantProfitable {
				t.Fatalf("Profitable = %v (reason %q), want %v",
					decision.Profitable, decision.Reason, tt.wantProfitable)
			}
			if !tt.wantProfitable {
				if decision.Reason == "" {
					t.Error("unprofitable decision must carry a reason")
				}
				return
			}
			if decision.BuyVenue != tt.wantBuyVenue {
				t.Errorf("BuyVenue = %s, want %s", decision.BuyVenue, tt.wantBuyVenue)
			}
			if decision.SellVenue != tt.wantSellVenue {
				t.Errorf("SellVenue = %s, want %s", decision.SellVenue, tt.wantSellVenue)
			}
		})
	}
}

func TestEvaluator_SpreadPct(t *testing.T) {
	sample := sampleWith(
		quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000"),
		quoteAt(t, venuedomain.VenuePancakeV2, bscPair(), "1.015"),
	)

	decision := NewEvaluator(decimal.RequireFromString("1.0")).Evaluate(sample)

	want := decimal.RequireFromString("1.5")
	if !decision.SpreadPct.Equal(want) {
		t.Errorf("SpreadPct = %s, want %s", decision.SpreadPct, want)
	}
}

func TestEvaluator_IncompleteSampleNeverTrades(t *testing.T) {
	// A huge spread on the one venue that answered must not trade: the
	// missing venue could hide an even bigger spread the other way.
	sample := sampleWith(quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000"))
	sample.Errors[venuedomain.VenuePancakeV2] = errors.New("rpc timeout")

	decision := NewEvaluator(decimal.RequireFromString("1.0")).Evaluate(sample)

	if decision.Profitable {
		t.Fatal("incomplete sample must not be profitable")
	}
	if decision.Reason != "incomplete sample" {
		t.Errorf("Reason = %q, want %q", decision.Reason, "incomplete sample")
	}
}

func TestEvaluator_SingleVenueNeverTrades(t *testing.T) {
	sample := sampleWith(quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000"))

	decision := NewEvaluator(decimal.RequireFromString("1.0")).Evaluate(sample)

	if decision.Profitable {
		t.Fatal("single-venue sample must not be profitable")
	}
}
