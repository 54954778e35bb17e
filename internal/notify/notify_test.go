package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/internal/httpclient"
	"github.com/fd1az/crosschain-arb/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// recordingSink captures delivered events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{} // when non-nil, Notify waits on it first
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Notify(ctx context.Context, ev Event) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) delivered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}

	d, err := NewDispatcher(DefaultDispatcherConfig(), testLogger(), sink1, sink2)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	ctx := context.Background()
	d.Publish(ctx, NewEvent(KindDecisionMade, DecisionMade{
		BuyVenue:   "uniswap_v3",
		SellVenue:  "pancakeswap_v2",
		SpreadPct:  decimal.RequireFromString("1.5"),
		Profitable: true,
	}))
	d.Publish(ctx, NewEvent(KindAttemptStarted, AttemptStarted{AttemptID: "a1"}))

	d.Close()

	for _, sink := range []*recordingSink{sink1, sink2} {
		got := sink.delivered()
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Kind != KindDecisionMade || got[1].Kind != KindAttemptStarted {
			t.Errorf("events delivered out of order: %v, %v", got[0].Kind, got[1].Kind)
		}
	}
}

func TestDispatcher_DropsWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{block: block}

	cfg := DispatcherConfig{BufferSize: 1, DeliveryTimeout: 5 * time.Second}
	d, err := NewDispatcher(cfg, testLogger(), sink)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	ctx := context.Background()

	// First event occupies the delivery goroutine, second fills the buffer.
	d.Publish(ctx, NewEvent(KindPriceSampled, PriceSampled{Venue: "v1"}))
	time.Sleep(50 * time.Millisecond) // let delivery start and park on block
	d.Publish(ctx, NewEvent(KindPriceSampled, PriceSampled{Venue: "v2"}))
	d.Publish(ctx, NewEvent(KindPriceSampled, PriceSampled{Venue: "v3"})) // dropped

	close(block)
	d.Close()

	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("expected 2 delivered events (third dropped), got %d", len(got))
	}
}

func TestTelegramSink_SendsOutcomes(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("telegram"),
	)
	if err != nil {
		t.Fatalf("failed to create http client: %v", err)
	}

	sink, err := NewTelegramSink(TelegramConfig{
		BotToken: "testtoken",
		ChatID:   "42",
		APIBase:  server.URL,
	}, client)
	if err != nil {
		t.Fatalf("NewTelegramSink failed: %v", err)
	}

	ev := NewEvent(KindAttemptSucceeded, AttemptSucceeded{
		AttemptID:   "a1",
		BuyTxHash:   "0xbuy",
		SellTxHash:  "0xsell",
		RealizedPnL: decimal.RequireFromString("12.5"),
	})

	if err := sink.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if !strings.Contains(gotPath, "bottesttoken") {
		t.Errorf("expected bot token in path, got %s", gotPath)
	}
	if gotBody["chat_id"] != "42" {
		t.Errorf("expected chat_id=42, got %s", gotBody["chat_id"])
	}
	if !strings.Contains(gotBody["text"], "+12.500000") {
		t.Errorf("expected PnL in message, got %q", gotBody["text"])
	}
}

func TestTelegramSink_SkipsPriceSamples(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client, err := httpclient.NewInstrumentedClient()
	if err != nil {
		t.Fatalf("failed to create http client: %v", err)
	}

	sink, err := NewTelegramSink(TelegramConfig{
		BotToken: "t",
		ChatID:   "1",
		APIBase:  server.URL,
	}, client)
	if err != nil {
		t.Fatalf("NewTelegramSink failed: %v", err)
	}

	ev := NewEvent(KindPriceSampled, PriceSampled{Venue: "uniswap_v3"})
	if err := sink.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if called {
		t.Error("price samples should not reach Telegram")
	}
}

func TestTelegramSink_RequiresCredentials(t *testing.T) {
	client, err := httpclient.NewInstrumentedClient()
	if err != nil {
		t.Fatalf("failed to create http client: %v", err)
	}

	if _, err := NewTelegramSink(TelegramConfig{}, client); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
