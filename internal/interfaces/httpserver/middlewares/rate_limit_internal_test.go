package middlewares

import (
	"fmt"
	"testing"
	"time"
)

func TestSlidingWindow_SweepDropsIdleCallers(t *testing.T) {
	w := newSlidingWindow(5, time.Minute)
	base := time.Now()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256)
		if ok, _ := w.allow(key, base); !ok {
			t.Fatalf("first request for %s rejected", key)
		}
	}
	if got := len(w.history); got != 100 {
		t.Fatalf("history size = %d, want 100", got)
	}

	// One request a full window later triggers the sweep; every idle caller
	// is gone and only the fresh one remains.
	if ok, _ := w.allow("ip:10.9.9.9", base.Add(time.Minute+time.Second)); !ok {
		t.Fatal("fresh caller rejected after sweep")
	}
	if got := len(w.history); got != 1 {
		t.Fatalf("history size after sweep = %d, want 1", got)
	}
}

func TestSlidingWindow_SweepKeepsActiveCallers(t *testing.T) {
	w := newSlidingWindow(5, time.Minute)
	base := time.Now()

	w.allow("ip:10.0.0.1", base)
	w.allow("ip:10.0.0.2", base.Add(50*time.Second))

	// Sweep point: caller 1 is outside the window, caller 2 is not.
	w.allow("ip:10.0.0.3", base.Add(65*time.Second))
	if _, ok := w.history["ip:10.0.0.1"]; ok {
		t.Fatal("idle caller must be dropped by the sweep")
	}
	if _, ok := w.history["ip:10.0.0.2"]; !ok {
		t.Fatal("active caller must survive the sweep")
	}
	if _, ok := w.history["ip:10.0.0.3"]; !ok {
		t.Fatal("current caller must be recorded")
	}
}
