package search

import (
	"context"
	"errors"
	"testing"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/semantic"
)

func intp(v int) *int { return &v }

func tok(v string) domain.Token { return domain.Token{Value: v, Canonical: true} }

func TestThresholdRelaxesWithFilters(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.Threshold(domain.FilterSet{}); got != 0.50 {
		t.Errorf("zero filters: threshold = %v, want 0.50", got)
	}
	want := cfg.BaseThreshold - cfg.ThresholdStep
	if got := cfg.Threshold(domain.FilterSet{Model: "Camry"}); got != want {
		t.Errorf("one filter: threshold = %v, want %v", got, want)
	}

	// More filters never raise the cutoff.
	prev := cfg.Threshold(domain.FilterSet{})
	sets := []domain.FilterSet{
		{Model: "Camry"},
		{Model: "Camry", Color: tok("silver")},
		{Model: "Camry", Color: tok("silver"), City: tok("Алматы")},
		{Model: "Camry", Color: tok("silver"), City: tok("Алматы"), MaxPrice: intp(1)},
		{Model: "Camry", Color: tok("silver"), City: tok("Алматы"), MaxPrice: intp(1), MaxMileage: intp(1)},
		{Model: "Camry", Color: tok("silver"), City: tok("Алматы"), MaxPrice: intp(1), MaxMileage: intp(1), Year: 2020},
		{Model: "Camry", Color: tok("silver"), City: tok("Алматы"), MaxPrice: intp(1), MaxMileage: intp(1), Year: 2020, Engine: "2.5"},
	}
	for i, f := range sets {
		got := cfg.Threshold(f)
		if got > prev {
			t.Errorf("threshold rose from %v to %v at %d filters", prev, got, i+1)
		}
		if got < cfg.ThresholdFloor {
			t.Errorf("threshold %v below floor at %d filters", got, i+1)
		}
		prev = got
	}

	// Seven fields would put the raw value below the floor.
	if got := cfg.Threshold(sets[len(sets)-1]); got != cfg.ThresholdFloor {
		t.Errorf("threshold = %v, want floor %v", got, cfg.ThresholdFloor)
	}
}

func TestThresholdRangeCountsOnce(t *testing.T) {
	cfg := DefaultConfig()
	both := cfg.Threshold(domain.FilterSet{MinPrice: intp(1), MaxPrice: intp(2)})
	one := cfg.Threshold(domain.FilterSet{MaxPrice: intp(2)})
	if both != one {
		t.Errorf("price range should count as one field: both=%v one=%v", both, one)
	}
}

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		name string
		f    domain.FilterSet
		want domain.Strategy
	}{
		{"empty", domain.FilterSet{}, domain.StrategyVectorSearch},
		{"model only", domain.FilterSet{Model: "Toyota Camry"}, domain.StrategyVectorSearch},
		{"model plus exact", domain.FilterSet{Model: "Toyota Camry", Color: tok("silver"), City: tok("Алматы")}, domain.StrategyVectorSearch},
		{"exact only", domain.FilterSet{City: tok("Астана"), MaxPrice: intp(10000000)}, domain.StrategyFilteredScan},
		{"year pref only", domain.FilterSet{YearPref: domain.YearNewest}, domain.StrategyVectorSearch},
	}
	for _, tt := range tests {
		if got := Choose(tt.f); got != tt.want {
			t.Errorf("%s: Choose = %v, want %v", tt.name, got, tt.want)
		}
	}
}

type embedMock struct {
	vec   []float32
	err   error
	calls int
}

func (m *embedMock) Embedding(context.Context, string, string) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

type storeMock struct {
	searchResults []domain.SearchResult
	searchErr     error
	searchCalls   int

	scrollResults []domain.SearchResult
	scrollErr     error
	scrollCalls   int
	gotFilter     semantic.ScanFilter
}

func (m *storeMock) Search(_ context.Context, _ []float32, _ int) ([]domain.SearchResult, error) {
	m.searchCalls++
	return m.searchResults, m.searchErr
}

func (m *storeMock) Scroll(_ context.Context, f semantic.ScanFilter, _ int) ([]domain.SearchResult, error) {
	m.scrollCalls++
	m.gotFilter = f
	return m.scrollResults, m.scrollErr
}

func result(id, model, color, city string, year, price int, score float32) domain.SearchResult {
	return domain.SearchResult{
		Record: domain.VehicleRecord{ID: id, Model: model, Color: color, City: city, ModelYear: year, Price: price},
		Score:  score,
	}
}

func TestRetrieveVectorWithPostFilter(t *testing.T) {
	embed := &embedMock{vec: []float32{0.1, 0.2}}
	store := &storeMock{searchResults: []domain.SearchResult{
		result("a", "Toyota Camry 70", "silver", "Алматы", 2021, 17000000, 0.81),
		result("b", "Toyota Camry 70", "black", "Алматы", 2021, 16000000, 0.78), // wrong color
		result("c", "Toyota Camry 55", "silver", "Астана", 2018, 12000000, 0.70), // wrong city
		result("d", "Toyota Corolla", "silver", "Алматы", 2020, 11000000, 0.65),  // wrong model
		result("e", "Toyota Camry 70", "silver", "Алматы", 2022, 19000000, 0.10), // below cutoff
	}}
	r := NewRetriever(embed, store, "text-embedding-3-small", DefaultConfig(), nil)

	f := domain.FilterSet{Model: "Toyota Camry", Color: tok("silver"), City: tok("Алматы")}
	results, strategy, err := r.Retrieve(context.Background(), "silver toyota camry in almaty", f, 0.29)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if strategy != domain.StrategyVectorSearch {
		t.Errorf("strategy = %v", strategy)
	}
	if store.scrollCalls != 0 {
		t.Error("scan must not run on the vector branch")
	}
	if len(results) != 1 || results[0].Record.ID != "a" {
		t.Fatalf("post-filter kept %v, want only record a", ids(results))
	}
}

func TestRetrieveFilteredScan(t *testing.T) {
	embed := &embedMock{vec: []float32{0.1}}
	store := &storeMock{scrollResults: []domain.SearchResult{
		{Record: domain.VehicleRecord{ID: "x"}, Score: 1.0, Scanned: true},
	}}
	r := NewRetriever(embed, store, "m", DefaultConfig(), nil)

	f := domain.FilterSet{City: tok("Астана"), MaxPrice: intp(10000000)}
	results, strategy, err := r.Retrieve(context.Background(), "что-нибудь в Астане до 10 млн", f, 0.36)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if strategy != domain.StrategyFilteredScan {
		t.Errorf("strategy = %v", strategy)
	}
	if embed.calls != 0 {
		t.Error("scan branch must not call the embedder")
	}
	if store.gotFilter.City != "Астана" || store.gotFilter.MaxPrice == nil {
		t.Errorf("scan filter not forwarded: %+v", store.gotFilter)
	}
	if len(results) != 1 || !results[0].Scanned || results[0].Score != 1.0 {
		t.Errorf("scan results should carry maximal relevance: %+v", results)
	}
}

func TestRetrieveEmbedFailureFallsBackToScan(t *testing.T) {
	embed := &embedMock{err: errors.New("embedding api down")}
	store := &storeMock{scrollResults: []domain.SearchResult{
		{Record: domain.VehicleRecord{ID: "x"}, Score: 1.0, Scanned: true},
	}}
	r := NewRetriever(embed, store, "m", DefaultConfig(), nil)

	f := domain.FilterSet{Model: "Toyota Camry", City: tok("Алматы")}
	results, strategy, err := r.Retrieve(context.Background(), "camry in almaty", f, 0.36)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if strategy != domain.StrategyFilteredScan {
		t.Errorf("strategy = %v, want fallback scan", strategy)
	}
	if len(results) != 1 {
		t.Errorf("results = %v", ids(results))
	}
	if store.gotFilter.Model != "Toyota Camry" {
		t.Errorf("fallback scan should keep the model predicate, got %+v", store.gotFilter)
	}
}

func TestRetrieveEmbedFailureNoFilters(t *testing.T) {
	embed := &embedMock{err: errors.New("embedding api down")}
	store := &storeMock{}
	r := NewRetriever(embed, store, "m", DefaultConfig(), nil)

	_, _, err := r.Retrieve(context.Background(), "a comfortable family offroad car", domain.FilterSet{}, 0.50)
	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Errorf("err = %v, want ErrSearchUnavailable", err)
	}
	var stage *domain.StageError
	if !errors.As(err, &stage) || stage.Stage != domain.StageEmbed {
		t.Errorf("err should carry the embed stage, got %v", err)
	}
	if store.scrollCalls != 0 {
		t.Error("no filters means nothing to scan with")
	}
}

func TestRetrieveStoreFailure(t *testing.T) {
	embed := &embedMock{vec: []float32{0.1}}
	store := &storeMock{searchErr: errors.New("connection refused")}
	r := NewRetriever(embed, store, "m", DefaultConfig(), nil)

	_, _, err := r.Retrieve(context.Background(), "camry", domain.FilterSet{Model: "Camry"}, 0.43)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}

	store2 := &storeMock{scrollErr: errors.New("connection refused")}
	r2 := NewRetriever(embed, store2, "m", DefaultConfig(), nil)
	_, _, err = r2.Retrieve(context.Background(), "q", domain.FilterSet{City: tok("Алматы")}, 0.43)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("scan err = %v, want ErrStoreUnavailable", err)
	}
}

func TestRetrieveZeroResultsIsNotAnError(t *testing.T) {
	embed := &embedMock{vec: []float32{0.1}}
	store := &storeMock{}
	r := NewRetriever(embed, store, "m", DefaultConfig(), nil)

	results, _, err := r.Retrieve(context.Background(), "camry", domain.FilterSet{Model: "Camry"}, 0.43)
	if err != nil {
		t.Fatalf("zero results must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v", ids(results))
	}
}

func TestMatchRecordRanges(t *testing.T) {
	rec := domain.VehicleRecord{Model: "Kia Sportage", Price: 9000000, Mileage: 85000, Color: "white", City: "Астана", ModelYear: 2019}

	if !matchRecord(rec, domain.FilterSet{MinPrice: intp(9000000), MaxPrice: intp(9000000)}) {
		t.Error("inclusive bounds must admit the boundary value")
	}
	if matchRecord(rec, domain.FilterSet{MaxPrice: intp(8999999)}) {
		t.Error("price above max must be rejected")
	}
	if matchRecord(rec, domain.FilterSet{Year: 2020}) {
		t.Error("exact year mismatch must be rejected")
	}
	if !matchRecord(rec, domain.FilterSet{Model: "sportage"}) {
		t.Error("model match is loose and case-insensitive")
	}
}

func TestRankNewestFirst(t *testing.T) {
	results := []domain.SearchResult{
		result("a", "", "", "", 2018, 0, 0.9),
		result("b", "", "", "", 2022, 0, 0.5),
		result("c", "", "", "", 2022, 0, 0.7),
		result("d", "", "", "", 2020, 0, 0.8),
	}
	got := RankAndTrim(results, domain.YearNewest, 3)
	want := []string{"c", "b", "d"} // 2022 by score desc, then 2020
	for i, id := range want {
		if got[i].Record.ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func TestRankOldestFirst(t *testing.T) {
	results := []domain.SearchResult{
		result("a", "", "", "", 2021, 0, 0.9),
		result("b", "", "", "", 2015, 0, 0.5),
	}
	got := RankAndTrim(results, domain.YearOldest, 5)
	if got[0].Record.ID != "b" {
		t.Errorf("order = %v, want b first", ids(got))
	}
}

func TestRankDefaultScoreDescIDTiebreak(t *testing.T) {
	results := []domain.SearchResult{
		result("z", "", "", "", 0, 0, 0.7),
		result("a", "", "", "", 0, 0, 0.7),
		result("m", "", "", "", 0, 0, 0.9),
	}
	got := RankAndTrim(results, domain.YearAny, 0)
	want := []string{"m", "a", "z"}
	for i, id := range want {
		if got[i].Record.ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func TestRankTrimsToTopK(t *testing.T) {
	results := []domain.SearchResult{
		result("a", "", "", "", 0, 0, 0.9),
		result("b", "", "", "", 0, 0, 0.8),
		result("c", "", "", "", 0, 0, 0.7),
	}
	if got := RankAndTrim(results, domain.YearAny, 2); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.ID
	}
	return out
}
