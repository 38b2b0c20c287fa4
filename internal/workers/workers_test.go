package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{name: "CPU-bound", multiplier: 1.0, limit: 0, minExpect: 1, maxExpect: availableCPU},
		{name: "Half CPU", multiplier: 0.5, limit: 0, minExpect: 1, maxExpect: maxInt(1, availableCPU/2)},
		{name: "Limit lower than calculated", multiplier: 2.0, limit: 2, minExpect: 1, maxExpect: 2},
		{name: "Very low multiplier", multiplier: 0.01, limit: 0, minExpect: 1, maxExpect: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		limit int
		want  int
	}{
		{name: "override used", env: "3", limit: 0, want: 3},
		{name: "override capped", env: "10", limit: 4, want: 4},
		{name: "invalid override ignored", env: "abc", limit: 1, want: 1},
		{name: "zero override ignored", env: "0", limit: 1, want: 1},
		{name: "negative override ignored", env: "-2", limit: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.env)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	t.Setenv(EnvOverride, "")
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
}

func TestForTranscode(t *testing.T) {
	t.Setenv(EnvOverride, "")

	if got := ForTranscode(7); got != 7 {
		t.Errorf("ForTranscode(7) = %d, want 7", got)
	}

	got := ForTranscode(0)
	if got < 1 || got > TranscodeLimit {
		t.Errorf("ForTranscode(0) = %d, want in [1, %d]", got, TranscodeLimit)
	}

	t.Setenv(EnvOverride, "2")
	if got := ForTranscode(0); got != 2 {
		t.Errorf("ForTranscode(0) with override = %d, want 2", got)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
