package logger

import (
	"os"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestEntryWithEnvChains(t *testing.T) {
	os.Setenv("BAZ", "qux")
	log := Logger()
	entry := log.WithComponent("archive").WithEnv("BAZ")
	if v, ok := entry.Entry.Data["BAZ"]; !ok || v != "qux" {
		t.Fatalf("env field not set on chained entry: %v", entry.Entry.Data)
	}
	if v, ok := entry.Entry.Data["component"]; !ok || v != "archive" {
		t.Fatalf("component lost while chaining: %v", entry.Entry.Data)
	}
}

func TestTierCounters(t *testing.T) {
	IncrementTierFiring("medium", 3)
	IncrementTierFiring("medium", 2)
	v, ok := tiers.Load("medium")
	if !ok {
		t.Fatal("medium tier stat not recorded")
	}
	ts := v.(*tierStat)
	if ts.firings < 2 || ts.txs < 5 {
		t.Fatalf("unexpected tier stat: firings=%d txs=%d", ts.firings, ts.txs)
	}
}
