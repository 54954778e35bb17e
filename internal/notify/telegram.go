package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/httpclient"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// APIBase overrides the Telegram API host. Empty means production.
	APIBase string
	// OutcomesOnly filters chatter: only attempt outcomes are sent.
	OutcomesOnly bool
}

// TelegramSink pushes human-readable alerts to a Telegram chat. Price
// samples are skipped; nobody wants one message every ten seconds.
type TelegramSink struct {
	config TelegramConfig
	client httpclient.Client
}

var _ Sink = (*TelegramSink)(nil)

// NewTelegramSink creates a Telegram sink.
func NewTelegramSink(cfg TelegramConfig, client httpclient.Client) (*TelegramSink, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithMessage("telegram bot token and chat id are required"),
			apperror.WithContext("notify.NewTelegramSink"))
	}
	if cfg.APIBase == "" {
		cfg.APIBase = telegramAPIBase
	}
	return &TelegramSink{config: cfg, client: client}, nil
}

// Name implements Sink.
func (s *TelegramSink) Name() string { return "telegram" }

// Notify implements Sink.
func (s *TelegramSink) Notify(ctx context.Context, ev Event) error {
	text := s.format(ev)
	if text == "" {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.config.APIBase, s.config.BotToken)

	resp, err := s.client.NewRequest().
		SetBody(map[string]string{
			"chat_id": s.config.ChatID,
			"text":    text,
		}).
		Post(ctx, url)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeServiceUnavailable, "telegram send")
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithMessage(fmt.Sprintf("telegram API returned %d", resp.StatusCode)),
			apperror.WithContext("telegram send"))
	}
	return nil
}

// format renders an event as a chat message, or "" to skip it.
func (s *TelegramSink) format(ev Event) string {
	switch p := ev.Payload.(type) {
	case DecisionMade:
		if s.config.OutcomesOnly || !p.Profitable {
			return ""
		}
		return fmt.Sprintf("📈 Opportunity: buy %s / sell %s, spread %s%%",
			p.BuyVenue, p.SellVenue, p.SpreadPct.StringFixed(4))
	case AttemptStarted:
		if s.config.OutcomesOnly {
			return ""
		}
		return fmt.Sprintf("▶️ Attempt %s: buy %s, sell %s, size %s",
			p.AttemptID, p.BuyVenue, p.SellVenue, p.Size.String())
	case AttemptSucceeded:
		return fmt.Sprintf("✅ Attempt %s succeeded, PnL %s (buy %s, sell %s)",
			p.AttemptID, formatPnL(p.RealizedPnL), p.BuyTxHash, p.SellTxHash)
	case AttemptPartiallyFailed:
		return fmt.Sprintf("⚠️ Attempt %s PARTIALLY FAILED: %s leg failed after buy %s confirmed (%s). Manual intervention may be required.",
			p.AttemptID, p.FailedLeg, p.BuyTxHash, p.Reason)
	case AttemptAborted:
		return fmt.Sprintf("⛔ Attempt %s aborted: %s", p.AttemptID, p.Reason)
	default:
		return ""
	}
}

func formatPnL(pnl decimal.Decimal) string {
	if pnl.IsNegative() {
		return pnl.StringFixed(6)
	}
	return "+" + pnl.StringFixed(6)
}
