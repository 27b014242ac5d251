package gate

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"calibra-hq/saturn/pkg/quota"
	"calibra-hq/saturn/pkg/storage"
)

func testGate(t *testing.T, quotas map[string]quota.QuotaConfig, costs map[string]int64) *Gate {
	t.Helper()

	g, err := New(Config{Quotas: quotas, Costs: costs})
	if err != nil {
		t.Fatalf("Failed to build gate: %v", err)
	}
	return g
}

func TestGate_AdmitBasic(t *testing.T) {
	g := testGate(t, map[string]quota.QuotaConfig{
		"per_day": {Tokens: 2, Interval: 24 * time.Hour},
	}, nil)

	ctx := context.Background()
	if !g.Admit(ctx, "list") {
		t.Error("Expected first admission")
	}
	if !g.Admit(ctx, "list") {
		t.Error("Expected second admission")
	}

	// Bucket exhausted; bounded context must deny
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if g.Admit(ctx, "list") {
		t.Error("Expected denial on exhausted quota")
	}
}

func TestGate_CostDifferentiation(t *testing.T) {
	g := testGate(t, map[string]quota.QuotaConfig{
		"per_day": {Tokens: 10000, Interval: 24 * time.Hour},
	}, map[string]int64{"list": 1, "search": 100})

	before := g.Status()["per_day"].AvailableTokens

	if !g.AdmitWait("search", 0) {
		t.Fatal("Expected search to be admitted")
	}
	afterSearch := g.Status()["per_day"].AvailableTokens
	if drop := before - afterSearch; drop < 99.5 || drop > 100.5 {
		t.Errorf("Expected search to cost ~100 tokens, dropped %f", drop)
	}

	if !g.AdmitWait("list", 0) {
		t.Fatal("Expected list to be admitted")
	}
	afterList := g.Status()["per_day"].AvailableTokens
	if drop := afterSearch - afterList; drop < 0.5 || drop > 1.5 {
		t.Errorf("Expected list to cost ~1 token, dropped %f", drop)
	}
}

func TestGate_AdmitWaitZeroTimeout(t *testing.T) {
	g := testGate(t, map[string]quota.QuotaConfig{
		"per_day": {Tokens: 1, Interval: 24 * time.Hour},
	}, nil)

	g.AdmitWait("op", 0)

	start := time.Now()
	if g.AdmitWait("op", 0) {
		t.Error("Expected denial on exhausted quota")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected immediate return, took %v", elapsed)
	}
}

func TestGate_UnknownOperationCostsOne(t *testing.T) {
	g := testGate(t, map[string]quota.QuotaConfig{
		"per_day": {Tokens: 3, Interval: 24 * time.Hour},
	}, map[string]int64{"search": 100})

	// Unregistered kinds cost 1 each
	for i := 0; i < 3; i++ {
		if !g.AdmitWait("unknown_kind", 0) {
			t.Errorf("Expected admission %d for default-cost operation", i+1)
		}
	}
	if g.AdmitWait("unknown_kind", 0) {
		t.Error("Expected denial once quota is drained")
	}
}

func TestGate_RecordsDecisions(t *testing.T) {
	store := storage.NewMemoryBackend()
	defer store.Close()

	g, err := New(Config{
		Quotas: map[string]quota.QuotaConfig{
			"per_day": {Tokens: 1, Interval: 24 * time.Hour},
		},
		Store: store,
	})
	if err != nil {
		t.Fatal(err)
	}

	g.AdmitWait("fetch", 0) // allowed
	g.AdmitWait("fetch", 0) // denied

	// Recording is async
	var decisions []*storage.Decision
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		decisions, err = store.List(context.Background(), time.Now().Add(-time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if len(decisions) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(decisions) != 2 {
		t.Fatalf("Expected 2 recorded decisions, got %d", len(decisions))
	}

	allowed, denied := 0, 0
	for _, d := range decisions {
		if d.Operation != "fetch" {
			t.Errorf("Unexpected operation %q", d.Operation)
		}
		if d.ID == "" {
			t.Error("Expected decision to carry an id")
		}
		if d.Allowed {
			allowed++
		} else {
			denied++
		}
	}
	if allowed != 1 || denied != 1 {
		t.Errorf("Expected 1 allowed + 1 denied, got %d/%d", allowed, denied)
	}
}

func TestGate_MetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()

	g, err := New(Config{
		Quotas: map[string]quota.QuotaConfig{
			"per_day": {Tokens: 1, Interval: 24 * time.Hour},
		},
		Metrics: NewMetricsWith(reg),
	})
	if err != nil {
		t.Fatal(err)
	}

	g.AdmitWait("op", 0)
	g.AdmitWait("op", 0)
	g.Status()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, want := range []string{
		"saturn_gate_admissions_total",
		"saturn_gate_denials_total",
		"saturn_gate_quota_available_tokens",
	} {
		if !found[want] {
			t.Errorf("Expected metric family %s to be registered", want)
		}
	}
}

func TestGate_StatusDoesNotConsume(t *testing.T) {
	g := testGate(t, DefaultQuotas(), nil)

	first := g.Status()
	second := g.Status()

	for name := range first {
		if second[name].AvailableTokens < first[name].AvailableTokens {
			t.Errorf("Status read consumed tokens from %s", name)
		}
	}
}

func TestGate_InvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error for missing quotas")
	}

	if _, err := New(Config{
		Quotas: DefaultQuotas(),
		Costs:  map[string]int64{"op": -1},
	}); err == nil {
		t.Error("Expected error for negative cost")
	}
}
