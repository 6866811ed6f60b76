package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("SALES_CHART_DAYS", "-3")

	cfg := Load()
	if cfg.SyncIntervalSeconds != 30 {
		t.Fatalf("expected sync interval fallback 30, got %d", cfg.SyncIntervalSeconds)
	}
	if cfg.SalesChartDays != 7 {
		t.Fatalf("expected chart days fallback 7, got %d", cfg.SalesChartDays)
	}
}
