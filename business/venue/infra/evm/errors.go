package evm

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// ClassifySendError maps a SendTransaction failure onto the recovery
// taxonomy. The distinction that matters: did the node reject the
// transaction (it never entered the mempool, safe to re-plan) or did the
// transport fail (the transaction may be in flight, state unknown).
//
// Node rejections arrive as RPC error responses with recognizable
// messages. Anything else is treated as ambiguous: when in doubt, assume
// the transaction might land.
func ClassifySendError(err error, where string) *apperror.AppError {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "nonce too high"),
		strings.Contains(msg, "replacement transaction underpriced"),
		strings.Contains(msg, "already known"):
		return apperror.New(apperror.CodeNonceConflict,
			apperror.WithCause(err),
			apperror.WithContext(where))

	case strings.Contains(msg, "insufficient funds"):
		return apperror.New(apperror.CodeInsufficientFunds,
			apperror.WithCause(err),
			apperror.WithContext(where))

	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "intrinsic gas too low"),
		strings.Contains(msg, "gas required exceeds allowance"),
		strings.Contains(msg, "transaction underpriced"),
		strings.Contains(msg, "exceeds block gas limit"):
		return apperror.New(apperror.CodeTradeRejected,
			apperror.WithCause(err),
			apperror.WithContext(where))
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.New(apperror.CodeTradeAmbiguous,
			apperror.WithMessage("send interrupted, transaction may be in flight"),
			apperror.WithCause(err),
			apperror.WithContext(where))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperror.New(apperror.CodeTradeAmbiguous,
			apperror.WithMessage("network failure during send, transaction may be in flight"),
			apperror.WithCause(err),
			apperror.WithContext(where))
	}

	return apperror.New(apperror.CodeTradeAmbiguous,
		apperror.WithCause(err),
		apperror.WithContext(where))
}
