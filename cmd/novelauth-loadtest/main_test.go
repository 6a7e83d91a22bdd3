package main

import (
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}

func TestRunSmallLoadKeepsEveryTrial(t *testing.T) {
	if testing.Short() {
		t.Skip("load run")
	}
	if err := run(4, 8, 60, "", ":memory:"); err != nil {
		t.Fatalf("run: %v", err)
	}
}
