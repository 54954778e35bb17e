// Package uniswap implements the venue Adapter for Uniswap V3 on Ethereum.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/crosschain-arb/business/venue/app"
	"github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/business/venue/infra/evm"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/circuitbreaker"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/ratelimit"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"

	defaultGasLimit = 350000
)

// Ensure Adapter implements the venue port.
var _ app.Adapter = (*Adapter)(nil)

// AdapterConfig holds the Uniswap V3 adapter configuration.
type AdapterConfig struct {
	Quoter         common.Address
	Router         common.Address
	DefaultFeeTier int
	Pair           domain.Pair
	ReceiptTimeout time.Duration
	ReceiptPoll    time.Duration
	GasLimit       uint64 // fallback when estimation fails
	RPCPerMinute   int    // quote-path rate limit
}

// adapterMetrics holds OTEL metric instruments.
type adapterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
	tradesTotal  metric.Int64Counter
	tradeErrors  metric.Int64Counter
}

// Adapter implements the venue Adapter for Uniswap V3.
type Adapter struct {
	config    AdapterConfig
	client    evm.Client
	signer    *evm.Signer
	nonce     *evm.NonceManager
	gas       *evm.GasPricer
	quoterABI abi.ABI
	routerABI abi.ABI
	feeTiers  []int

	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *adapterMetrics
}

// NewAdapter creates a Uniswap V3 adapter. signer may be nil in dry-run
// mode; SubmitTrade then fails fast instead of signing.
func NewAdapter(cfg AdapterConfig, client evm.Client, signer *evm.Signer, log logger.LoggerInterface) (*Adapter, error) {
	quoterABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(SwapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	if cfg.GasLimit == 0 {
		cfg.GasLimit = defaultGasLimit
	}
	if cfg.RPCPerMinute == 0 {
		cfg.RPCPerMinute = 120
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 3 * time.Minute
	}
	if cfg.ReceiptPoll == 0 {
		cfg.ReceiptPoll = 3 * time.Second
	}

	a := &Adapter{
		config:    cfg,
		client:    client,
		signer:    signer,
		gas:       evm.NewGasPricer(client, string(domain.VenueUniswapV3), 12*time.Second, nil),
		quoterABI: quoterABI,
		routerABI: routerABI,
		feeTiers:  []int{cfg.DefaultFeeTier, FeeTier005, FeeTier030, FeeTier100},
		logger:    log,
		limiter:   ratelimit.New(cfg.RPCPerMinute),
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswap-quoter")),
		tracer:    otel.Tracer(tracerName),
	}

	if signer != nil {
		a.nonce = evm.NewNonceManager(client, signer.Address(), log)
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return a, nil
}

func (a *Adapter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &adapterMetrics{}

	a.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	a.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	a.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	a.metrics.tradesTotal, err = meter.Int64Counter(
		"uniswap_trades_total",
		metric.WithDescription("Total trade submissions"),
	)
	if err != nil {
		return err
	}

	a.metrics.tradeErrors, err = meter.Int64Counter(
		"uniswap_trade_errors_total",
		metric.WithDescription("Total trade failures"),
	)
	return err
}

// ID implements app.Adapter.
func (a *Adapter) ID() domain.VenueID {
	return domain.VenueUniswapV3
}

// Pair implements app.Adapter.
func (a *Adapter) Pair() domain.Pair {
	return a.config.Pair
}

// GetPrice implements app.Adapter. It probes every fee tier and returns
// the quote with the best output, the same way a router would route.
func (a *Adapter) GetPrice(ctx context.Context, size asset.Amount) (*domain.Quote, error) {
	ctx, span := a.tracer.Start(ctx, "uniswap.get_price",
		trace.WithAttributes(
			attribute.String("pair", a.config.Pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRateUnavailable, "uniswap rate limit")
	}

	start := time.Now()
	a.metrics.quotesTotal.Add(ctx, 1)

	tokenIn := a.config.Pair.Base.Address()
	tokenOut := a.config.Pair.Quote.Address()
	amountIn := size.Raw()

	var best *QuoteResult
	var bestTier int

	for _, feeTier := range a.feeTiers {
		result, err := a.quoteFeeTier(ctx, tokenIn, tokenOut, amountIn, feeTier)
		if err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", feeTier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}

		if best == nil || result.AmountOut.Cmp(best.AmountOut) > 0 {
			best = result
			bestTier = feeTier
		}
	}

	a.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if best == nil {
		a.metrics.quoteErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "no valid quote")
		return nil, apperror.New(apperror.CodeRateUnavailable,
			apperror.WithContext("no uniswap pool answered for "+a.config.Pair.String()))
	}

	amountOut := asset.NewAmount(a.config.Pair.Quote, best.AmountOut)
	quote := domain.NewQuote(domain.VenueUniswapV3, a.config.Pair, size, amountOut)
	// Execution must route to the pool that produced this price.
	quote.FeeTier = bestTier

	span.SetAttributes(
		attribute.String("amount_out", best.AmountOut.String()),
		attribute.Int("fee_tier", bestTier),
	)
	span.SetStatus(codes.Ok, "quote received")

	a.logger.Debug(ctx, "uniswap quote",
		"pair", a.config.Pair.String(),
		"amount_in", size.String(),
		"amount_out", amountOut.String(),
		"fee_tier", bestTier,
	)

	return &quote, nil
}

// quoteFeeTier calls QuoterV2.quoteExactInputSingle for a specific fee tier.
func (a *Adapter) quoteFeeTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	callData, err := a.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0), // No price limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, ethereum.CallMsg{
			To:   &a.config.Quoter,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := a.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

// SubmitTrade implements app.Adapter.
func (a *Adapter) SubmitTrade(ctx context.Context, order domain.TradeOrder) (*domain.TradeReceipt, error) {
	ctx, span := a.tracer.Start(ctx, "uniswap.submit_trade",
		trace.WithAttributes(
			attribute.String("side", string(order.Side)),
			attribute.String("amount_in", order.AmountIn.String()),
		),
	)
	defer span.End()

	a.metrics.tradesTotal.Add(ctx, 1)

	if a.signer == nil {
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithMessage("no signer configured, running in dry-run mode"),
			apperror.WithContext("uniswap submit"))
	}

	tokenIn, tokenOut := a.legTokens(order.Side)

	feeTier := order.FeeTier
	if feeTier == 0 {
		feeTier = a.config.DefaultFeeTier
	}

	callData, err := a.routerABI.Pack("exactInputSingle", ExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(feeTier)),
		Recipient:         a.signer.Address(),
		AmountIn:          order.AmountIn.Raw(),
		AmountOutMinimum:  order.MinAmountOut.Raw(),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithMessage("failed to encode swap"),
			apperror.WithCause(err))
	}

	gasPrice, err := a.gas.SuggestGasPrice(ctx)
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		return nil, err
	}

	gasLimit := a.estimateGas(ctx, callData)

	nonce, err := a.nonce.Next(ctx)
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &a.config.Router,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     callData,
	})

	signed, err := a.signer.SignTx(tx)
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		// Nothing was broadcast; the reserved nonce must be reusable.
		a.nonce.Invalidate()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("tx_hash", signed.Hash().Hex()),
		attribute.Int64("nonce", int64(nonce)),
	)

	if err := a.client.SendTransaction(ctx, signed); err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		a.nonce.Invalidate()
		span.SetStatus(codes.Error, err.Error())
		return nil, evm.ClassifySendError(err, "uniswap "+signed.Hash().Hex())
	}

	a.logger.Info(ctx, "uniswap trade submitted",
		"side", order.Side,
		"tx_hash", signed.Hash().Hex(),
		"nonce", nonce,
		"fee_tier", feeTier,
	)

	receipt, err := evm.WaitMined(ctx, a.client, signed.Hash(), a.config.ReceiptPoll, a.config.ReceiptTimeout)
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		// A reverted transaction still consumed its nonce; only unknown
		// outcomes invalidate the counter.
		if apperror.GetCode(err) != apperror.CodeTradeReverted {
			a.nonce.Invalidate()
		}
		return nil, err
	}

	span.SetStatus(codes.Ok, "trade confirmed")

	// The realized fill lives in the mined Transfer logs; the floor is
	// only a fallback for tokens that skip the event.
	amountOut := order.MinAmountOut
	if actual, ok := evm.TransferredTo(receipt, tokenOut, a.signer.Address()); ok {
		amountOut = asset.NewAmount(order.MinAmountOut.Asset(), actual)
	} else {
		a.logger.Warn(ctx, "no transfer log in receipt, recording slippage floor",
			"tx_hash", signed.Hash().Hex())
	}

	return &domain.TradeReceipt{
		Venue:       domain.VenueUniswapV3,
		Side:        order.Side,
		TxHash:      signed.Hash(),
		Nonce:       nonce,
		AmountIn:    order.AmountIn,
		AmountOut:   amountOut,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
		ConfirmedAt: time.Now(),
	}, nil
}

// ReconcileNonce implements app.Adapter.
func (a *Adapter) ReconcileNonce(ctx context.Context) error {
	if a.nonce == nil {
		return nil
	}
	return a.nonce.Reconcile(ctx)
}

// Healthy implements app.Adapter.
func (a *Adapter) Healthy(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := a.client.BlockNumber(ctx); err != nil {
		return false, "ethereum node unreachable: " + err.Error()
	}
	return true, ""
}

// Close implements app.Adapter. It stops the gas price cache.
func (a *Adapter) Close() {
	a.gas.Close()
}

// legTokens maps the trade side onto swap direction. Buys spend the quote
// token, sells spend the base token.
func (a *Adapter) legTokens(side domain.Side) (tokenIn, tokenOut common.Address) {
	if side == domain.SideBuy {
		return a.config.Pair.Quote.Address(), a.config.Pair.Base.Address()
	}
	return a.config.Pair.Base.Address(), a.config.Pair.Quote.Address()
}

// estimateGas asks the node for a gas estimate, falling back to the
// configured limit when estimation fails.
func (a *Adapter) estimateGas(ctx context.Context, callData []byte) uint64 {
	from := a.signer.Address()
	estimate, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &a.config.Router,
		Data: callData,
	})
	if err != nil || estimate == 0 {
		return a.config.GasLimit
	}
	// Headroom over the estimate; unused gas is refunded.
	return estimate + estimate/5
}
