package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
	t.Setenv("PORT", "")
	if p, err := Port("PORT", "8085"); err != nil || p != "8085" {
		t.Fatalf("expected fallback port, got %q (%v)", p, err)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("LIMIT", "")
	if n, err := Int("LIMIT", 30); err != nil || n != 30 {
		t.Fatalf("expected fallback, got %d (%v)", n, err)
	}
	t.Setenv("LIMIT", "0")
	if _, err := Int("LIMIT", 30); err == nil {
		t.Fatal("expected error for zero")
	}
	t.Setenv("LIMIT", " 12 ")
	if n, _ := Int("LIMIT", 30); n != 12 {
		t.Fatalf("expected 12, got %d", n)
	}
}

func TestBoolAndMinutes(t *testing.T) {
	t.Setenv("FLAG", "yes")
	if _, err := Bool("FLAG", false); err == nil {
		t.Fatal("expected error for non-boolean")
	}
	t.Setenv("FLAG", "true")
	if b, _ := Bool("FLAG", false); !b {
		t.Fatal("expected true")
	}

	t.Setenv("TTL", "15")
	if d, _ := Minutes("TTL", time.Hour); d != 15*time.Minute {
		t.Fatalf("expected 15m, got %s", d)
	}
}

func TestLocation(t *testing.T) {
	t.Setenv("TZ_NAME", "Not/AZone")
	if _, err := Location("TZ_NAME", "UTC"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
	t.Setenv("TZ_NAME", "")
	loc, err := Location("TZ_NAME", "UTC")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
}

func TestListAndOneOf(t *testing.T) {
	t.Setenv("ORIGINS", " https://a.example , ,https://b.example")
	got := List("ORIGINS")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %q", got)
	}

	t.Setenv("FORMAT", "FLAT")
	if v, err := OneOf("FORMAT", "objects", "objects", "flat"); err != nil || v != "flat" {
		t.Fatalf("expected flat, got %q (%v)", v, err)
	}
	t.Setenv("FORMAT", "csv")
	if _, err := OneOf("FORMAT", "objects", "objects", "flat"); err == nil {
		t.Fatal("expected error for unknown value")
	}
}
