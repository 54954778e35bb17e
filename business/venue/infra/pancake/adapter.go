// Package pancake implements the venue Adapter for PancakeSwap V2 on BSC.
package pancake

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
	tracerName = "pancake"
	meterName  = "pancake"

	defaultGasLimit = 250000
)

// Ensure Adapter implements the venue port.
var _ app.Adapter = (*Adapter)(nil)

// AdapterConfig holds the PancakeSwap V2 adapter configuration.
type AdapterConfig struct {
	Router         common.Address
	Pair           domain.Pair
	ReceiptTimeout time.Duration
	ReceiptPoll    time.Duration
	GasLimit       uint64
	RPCPerMinute   int
	SwapDeadline   time.Duration // passed to the router, not a local timeout
}

// adapterMetrics holds OTEL metric instruments.
type adapterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
	tradesTotal  metric.Int64Counter
	tradeErrors  metric.Int64Counter
}

// Adapter implements the venue Adapter for PancakeSwap V2.
type Adapter struct {
	config    AdapterConfig
	client    evm.Client
	signer    *evm.Signer
	nonce     *evm.NonceManager
	gas       *evm.GasPricer
	routerABI abi.ABI

	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *adapterMetrics
}

// NewAdapter creates a PancakeSwap V2 adapter. signer may be nil in
// dry-run mode.
func NewAdapter(cfg AdapterConfig, client evm.Client, signer *evm.Signer, log logger.LoggerInterface) (*Adapter, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
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
		cfg.ReceiptTimeout = 90 * time.Second
	}
	if cfg.ReceiptPoll == 0 {
		cfg.ReceiptPoll = 2 * time.Second
	}
	if cfg.SwapDeadline == 0 {
		cfg.SwapDeadline = 2 * time.Minute
	}

	a := &Adapter{
		config:    cfg,
		client:    client,
		signer:    signer,
		gas:       evm.NewGasPricer(client, string(domain.VenuePancakeV2), 3*time.Second, nil),
		routerABI: routerABI,
		logger:    log,
		limiter:   ratelimit.New(cfg.RPCPerMinute),
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pancake-router")),
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
		"pancake_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	a.metrics.quoteLatency, err = meter.Float64Histogram(
		"pancake_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	a.metrics.quoteErrors, err = meter.Int64Counter(
		"pancake_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	a.metrics.tradesTotal, err = meter.Int64Counter(
		"pancake_trades_total",
		metric.WithDescription("Total trade submissions"),
	)
	if err != nil {
		return err
	}

	a.metrics.tradeErrors, err = meter.Int64Counter(
		"pancake_trade_errors_total",
		metric.WithDescription("Total trade failures"),
	)
	return err
}

// ID implements app.Adapter.
func (a *Adapter) ID() domain.VenueID {
	return domain.VenuePancakeV2
}

// Pair implements app.Adapter.
func (a *Adapter) Pair() domain.Pair {
	return a.config.Pair
}

// GetPrice implements app.Adapter using the router's getAmountsOut, which
// prices the swap against actual pool reserves.
func (a *Adapter) GetPrice(ctx context.Context, size asset.Amount) (*domain.Quote, error) {
	ctx, span := a.tracer.Start(ctx, "pancake.get_price",
		trace.WithAttributes(
			attribute.String("pair", a.config.Pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRateUnavailable, "pancake rate limit")
	}

	start := time.Now()
	a.metrics.quotesTotal.Add(ctx, 1)

	path := []common.Address{a.config.Pair.Base.Address(), a.config.Pair.Quote.Address()}
	amounts, err := a.getAmountsOut(ctx, size.Raw(), path)

	a.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		a.metrics.quoteErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	amountOut := asset.NewAmount(a.config.Pair.Quote, amounts[len(amounts)-1])
	quote := domain.NewQuote(domain.VenuePancakeV2, a.config.Pair, size, amountOut)

	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quote received")

	a.logger.Debug(ctx, "pancake quote",
		"pair", a.config.Pair.String(),
		"amount_in", size.String(),
		"amount_out", amountOut.String(),
	)

	return &quote, nil
}

// getAmountsOut calls the router's view function through the breaker.
func (a *Adapter) getAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	callData, err := a.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, ethereum.CallMsg{
			To:   &a.config.Router,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("pancake getAmountsOut"))
	}

	outputs, err := a.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext("pancake pair has no liquidity path"))
	}

	return amounts, nil
}

// SubmitTrade implements app.Adapter.
func (a *Adapter) SubmitTrade(ctx context.Context, order domain.TradeOrder) (*domain.TradeReceipt, error) {
	ctx, span := a.tracer.Start(ctx, "pancake.submit_trade",
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
			apperror.WithContext("pancake submit"))
	}

	path := a.legPath(order.Side)
	deadline := big.NewInt(time.Now().Add(a.config.SwapDeadline).Unix())

	callData, err := a.routerABI.Pack("swapExactTokensForTokens",
		order.AmountIn.Raw(),
		order.MinAmountOut.Raw(),
		path,
		a.signer.Address(),
		deadline,
	)
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
		return nil, evm.ClassifySendError(err, "pancake "+signed.Hash().Hex())
	}

	a.logger.Info(ctx, "pancake trade submitted",
		"side", order.Side,
		"tx_hash", signed.Hash().Hex(),
		"nonce", nonce,
	)

	receipt, err := evm.WaitMined(ctx, a.client, signed.Hash(), a.config.ReceiptPoll, a.config.ReceiptTimeout)
	if err != nil {
		a.metrics.tradeErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		if apperror.GetCode(err) != apperror.CodeTradeReverted {
			a.nonce.Invalidate()
		}
		return nil, err
	}

	span.SetStatus(codes.Ok, "trade confirmed")

	// The realized fill lives in the mined Transfer logs; the floor is
	// only a fallback for tokens that skip the event.
	amountOut := order.MinAmountOut
	if actual, ok := evm.TransferredTo(receipt, path[len(path)-1], a.signer.Address()); ok {
		amountOut = asset.NewAmount(order.MinAmountOut.Asset(), actual)
	} else {
		a.logger.Warn(ctx, "no transfer log in receipt, recording slippage floor",
			"tx_hash", signed.Hash().Hex())
	}

	return &domain.TradeReceipt{
		Venue:       domain.VenuePancakeV2,
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
		return false, "bsc node unreachable: " + err.Error()
	}
	return true, ""
}

// Close implements app.Adapter. It stops the gas price cache.
func (a *Adapter) Close() {
	a.gas.Close()
}

// legPath maps the trade side onto the swap path.
func (a *Adapter) legPath(side domain.Side) []common.Address {
	if side == domain.SideBuy {
		return []common.Address{a.config.Pair.Quote.Address(), a.config.Pair.Base.Address()}
	}
	return []common.Address{a.config.Pair.Base.Address(), a.config.Pair.Quote.Address()}
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
	return estimate + estimate/5
}
