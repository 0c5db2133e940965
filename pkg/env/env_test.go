package env

import "testing"

func TestGetPrefersPrefixedName(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("PRICESHEETS_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "json" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("PRICESHEETS_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected unprefixed value, got %q", got)
	}
	if got := Get("UNSET_SETTING_FOR_TEST", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
