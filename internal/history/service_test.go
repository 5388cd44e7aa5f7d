package history

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/config"
	"coinapi-go/internal/period"
	"coinapi-go/internal/store"
)

type mockSource struct {
	mu    sync.Mutex
	calls []string
	fail  map[coinapi.AssetName]error
}

func (m *mockSource) TimeseriesData(ctx context.Context, base, quote coinapi.AssetName, p period.Period, start, end time.Time, limit int) (coinapi.TimeseriesData, error) {
	m.mu.Lock()
	m.calls = append(m.calls, string(base)+"/"+string(quote)+"@"+p.String())
	m.mu.Unlock()

	if err := m.fail[base]; err != nil {
		return nil, err
	}

	data := make(coinapi.TimeseriesData, 0, 3)
	for i := 0; i < 3; i++ {
		begin := start.Add(time.Duration(i) * p.Duration())
		data = append(data, coinapi.TimeseriesDatum{
			TimePeriodStart: begin,
			TimePeriodEnd:   begin.Add(p.Duration()),
			RateOpen:        100,
			RateHigh:        110,
			RateLow:         90,
			RateClose:       100 + float64(i),
		})
	}
	return data, nil
}

func (m *mockSource) callList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newRepo(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFetch_ApproximatesPeriod(t *testing.T) {
	source := &mockSource{}
	repo := newRepo(t)
	svc := NewService(source, repo, 2, nil)

	res, err := svc.Fetch(context.Background(), Request{
		Base:     "btc",
		Quote:    "usd",
		Interval: 40 * time.Minute,
		Start:    testStart,
		End:      testStart.Add(3 * time.Hour),
		Limit:    3,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if !res.Approximated {
		t.Errorf("expected approximated result")
	}
	if res.Key.Period != period.New(period.Minute, 30) {
		t.Errorf("expected 30MIN, got %s", res.Key.Period)
	}
	if res.Requested != 40*time.Minute {
		t.Errorf("unexpected requested %s", res.Requested)
	}
	if calls := source.callList(); len(calls) != 1 || calls[0] != "BTC/USD@30MIN" {
		t.Errorf("unexpected calls %v", calls)
	}
	if res.Saved != 3 {
		t.Errorf("expected 3 rows saved, got %d", res.Saved)
	}

	stored, err := repo.LoadRates(context.Background(), res.Key, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("LoadRates returned error: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 stored rows, got %d", len(stored))
	}
}

func TestFetch_ExactPeriod(t *testing.T) {
	svc := NewService(&mockSource{}, nil, 1, nil)

	res, err := svc.Fetch(context.Background(), Request{Base: "ETH", Quote: "USD", Interval: 4 * time.Hour, Start: testStart})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Approximated {
		t.Errorf("expected exact result")
	}
	if res.Key.Period.String() != "4HRS" {
		t.Errorf("expected 4HRS, got %s", res.Key.Period)
	}
	if res.Saved != 0 {
		t.Errorf("expected nothing saved without repository")
	}
}

func TestFetch_StrictRejectsMismatch(t *testing.T) {
	source := &mockSource{}
	svc := NewService(source, nil, 1, nil)

	_, err := svc.Fetch(context.Background(), Request{Base: "BTC", Quote: "USD", Interval: 7*time.Hour + 6*time.Minute, Strict: true})
	var mismatch *period.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *period.MismatchError, got %v", err)
	}
	if mismatch.Closest != period.New(period.Hour, 8) {
		t.Errorf("expected closest 8HRS, got %s", mismatch.Closest)
	}
	if len(source.callList()) != 0 {
		t.Errorf("strict mismatch must not reach the API")
	}
}

func TestFetch_RejectsNegativeInterval(t *testing.T) {
	svc := NewService(&mockSource{}, nil, 1, nil)

	if _, err := svc.Fetch(context.Background(), Request{Base: "BTC", Quote: "USD", Interval: -time.Minute}); !errors.Is(err, period.ErrNegativeDuration) {
		t.Fatalf("expected ErrNegativeDuration, got %v", err)
	}
	if _, err := svc.Fetch(context.Background(), Request{Base: "", Quote: "USD", Interval: time.Minute}); err == nil {
		t.Fatalf("expected error for empty base")
	}
}

func TestFetchMany_CollectsErrors(t *testing.T) {
	source := &mockSource{fail: map[coinapi.AssetName]error{"XRP": coinapi.ErrRateLimited}}
	svc := NewService(source, newRepo(t), 2, nil)

	reqs := []Request{
		{Base: "BTC", Quote: "USD", Interval: time.Hour, Start: testStart},
		{Base: "XRP", Quote: "USD", Interval: time.Hour, Start: testStart},
		{Base: "ETH", Quote: "USD", Interval: 14 * 24 * time.Hour, Start: testStart},
	}

	results, err := svc.FetchMany(context.Background(), reqs)
	if !errors.Is(err, coinapi.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited in combined error, got %v", err)
	}
	if !strings.Contains(err.Error(), "XRP/USD") {
		t.Errorf("expected failing pair in error, got %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Err == nil || !errors.Is(results[1].Err, coinapi.ErrRateLimited) {
		t.Errorf("expected per-result error, got %v", results[1].Err)
	}
	if len(results[0].Data) != 3 || results[1].Data != nil || results[0].Err != nil {
		t.Errorf("unexpected results %+v", results)
	}
	if results[2].Key.Period != period.Largest() || !results[2].Approximated {
		t.Errorf("expected 14 days to clamp to 10DAY, got %s", results[2].Key.Period)
	}
	if len(source.callList()) != 3 {
		t.Errorf("expected 3 calls, got %v", source.callList())
	}
}

func TestSummarize(t *testing.T) {
	svc := NewService(&mockSource{}, nil, 1, nil)

	res, err := svc.Fetch(context.Background(), Request{Base: "BTC", Quote: "USD", Interval: time.Hour, Start: testStart})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	summary, err := svc.Summarize(res)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.Close != 102 || summary.Samples != 3 || summary.Period != res.Key.Period {
		t.Errorf("unexpected summary %+v", summary)
	}
}
