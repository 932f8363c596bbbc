package utils

import (
	"testing"
	"time"
)

func TestSafeEnv(t *testing.T) {
	const key = "_MINDBRIDGE_TEST_SAFEENV"
	t.Setenv(key, "")
	if got := SafeEnv(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv(key, "  value ")
	if got := SafeEnv(key, "fallback"); got != "value" {
		t.Fatalf("expected 'value', got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	const key = "_MINDBRIDGE_TEST_BOOL"
	cases := []struct {
		raw      string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"1", false, true},
		{"YES", false, true},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv(key, tc.raw)
		if got := EnvBool(key, tc.fallback); got != tc.want {
			t.Fatalf("EnvBool(%q, %v)=%v, want %v", tc.raw, tc.fallback, got, tc.want)
		}
	}
}

func TestEnvNumbers(t *testing.T) {
	t.Setenv("_MB_INT", "12")
	t.Setenv("_MB_BADINT", "x")
	t.Setenv("_MB_FLOAT", "0.5")
	if EnvInt("_MB_INT", 1) != 12 || EnvInt("_MB_BADINT", 7) != 7 {
		t.Fatalf("EnvInt mismatch")
	}
	if EnvFloat("_MB_FLOAT", 1) != 0.5 || EnvFloat("_MB_MISSING", 2.5) != 2.5 {
		t.Fatalf("EnvFloat mismatch")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("_MB_DUR", "15m")
	if got := EnvDuration("_MB_DUR", time.Second); got != 15*time.Minute {
		t.Fatalf("got %v", got)
	}
	t.Setenv("_MB_DUR", "-5s")
	if got := EnvDuration("_MB_DUR", time.Second); got != time.Second {
		t.Fatalf("negative duration should fall back, got %v", got)
	}
}
