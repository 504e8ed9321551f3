package config

import (
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"empty means zero", "", 0, false},
		{"blank means zero", "   ", 0, false},
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "10m", 10 * time.Minute, false},
		{"compound", "1h30m", 90 * time.Minute, false},
		{"negative rejected", "-5s", 0, true},
		{"garbage rejected", "soon", 0, true},
		{"bare number rejected", "30", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("test.field", tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseDurationField(%q) = %v, want error", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDurationField(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseDurationField(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("test.field", "", 30*time.Second)
	if err != nil || got != 30*time.Second {
		t.Fatalf("empty = (%v, %v), want default 30s", got, err)
	}
	got, err = ParseDurationOrDefault("test.field", "5s", 30*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("explicit = (%v, %v), want 5s", got, err)
	}
	if _, err := ParseDurationOrDefault("test.field", "nope", time.Second); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		hour    int
		minute  int
		wantErr bool
	}{
		{"00:01", 0, 1, false},
		{"23:59", 23, 59, false},
		{"7:05", 7, 5, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"-1:00", 0, 0, true},
		{"noonish", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			h, m, err := ParseHHMM("test.field", tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseHHMM(%q) = %d:%d, want error", tc.raw, h, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHHMM(%q): %v", tc.raw, err)
			}
			if h != tc.hour || m != tc.minute {
				t.Fatalf("ParseHHMM(%q) = %d:%d, want %d:%d", tc.raw, h, m, tc.hour, tc.minute)
			}
		})
	}
}
