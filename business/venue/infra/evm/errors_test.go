package evm

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  apperror.Code
		wantClass apperror.Class
	}{
		{
			name:      "nonce too low",
			err:       errors.New("nonce too low"),
			wantCode:  apperror.CodeNonceConflict,
			wantClass: apperror.ClassVenueRejected,
		},
		{
			name:      "already known",
			err:       errors.New("already known"),
			wantCode:  apperror.CodeNonceConflict,
			wantClass: apperror.ClassVenueRejected,
		},
		{
			name:      "insufficient funds",
			err:       errors.New("insufficient funds for gas * price + value"),
			wantCode:  apperror.CodeInsufficientFunds,
			wantClass: apperror.ClassVenueRejected,
		},
		{
			name:      "execution reverted during estimation",
			err:       errors.New("execution reverted: UniswapV2: INSUFFICIENT_OUTPUT_AMOUNT"),
			wantCode:  apperror.CodeTradeRejected,
			wantClass: apperror.ClassVenueRejected,
		},
		{
			name:      "underpriced replacement stays a nonce conflict",
			err:       errors.New("replacement transaction underpriced"),
			wantCode:  apperror.CodeNonceConflict,
			wantClass: apperror.ClassVenueRejected,
		},
		{
			name:      "context deadline is ambiguous",
			err:       context.DeadlineExceeded,
			wantCode:  apperror.CodeTradeAmbiguous,
			wantClass: apperror.ClassAmbiguous,
		},
		{
			name:      "network error is ambiguous",
			err:       &net.OpError{Op: "write", Err: errors.New("broken pipe")},
			wantCode:  apperror.CodeTradeAmbiguous,
			wantClass: apperror.ClassAmbiguous,
		},
		{
			name:      "unknown error defaults to ambiguous",
			err:       errors.New("something unexpected"),
			wantCode:  apperror.CodeTradeAmbiguous,
			wantClass: apperror.ClassAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ClassifySendError(tt.err, "test send")

			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
			if got := apperror.ClassOf(appErr); got != tt.wantClass {
				t.Errorf("class = %s, want %s", got, tt.wantClass)
			}
		})
	}
}

func TestClassifySendError_Nil(t *testing.T) {
	if got := ClassifySendError(nil, "test"); got != nil {
		t.Fatalf("ClassifySendError(nil) = %v, want nil", got)
	}
}

func TestClassifySendError_WrappedTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	appErr := ClassifySendError(ctx.Err(), "test send")
	if apperror.ClassOf(appErr) != apperror.ClassAmbiguous {
		t.Errorf("class = %s, want %s", apperror.ClassOf(appErr), apperror.ClassAmbiguous)
	}
}
