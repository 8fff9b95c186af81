package main

import (
	"context"
	"time"

	"github.com/smileynet/cubone/internal/itemfile"
)

// demoStatuses is the status cycle the demo walks each item through.
var demoStatuses = []string{"open", "active", "blocked", "done"}

// demoScript returns a loader that edits one item per call, round-robin.
// Every fourth call drops the last item and the next call restores it.
func demoScript(seed []itemfile.Record) func() ([]itemfile.Record, error) {
	current := make([]itemfile.Record, len(seed))
	copy(current, seed)
	var held *itemfile.Record
	step := 0

	return func() ([]itemfile.Record, error) {
		step++
		switch {
		case held != nil:
			current = append(current, *held)
			held = nil
		case step%4 == 0 && len(current) > 1:
			last := current[len(current)-1]
			held = &last
			current = current[:len(current)-1]
		case len(current) > 0:
			i := step % len(current)
			current[i].Status = nextStatus(current[i].Status)
		}
		out := make([]itemfile.Record, len(current))
		copy(out, current)
		return out, nil
	}
}

func nextStatus(status string) string {
	for i, s := range demoStatuses {
		if s == status {
			return demoStatuses[(i+1)%len(demoStatuses)]
		}
	}
	return demoStatuses[0]
}

// tick sends one change per interval and closes the channel after steps
// changes. A non-positive steps ticks until ctx is done.
func tick(ctx context.Context, interval time.Duration, steps int) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		t := time.NewTicker(interval)
		defer t.Stop()
		for n := 0; steps <= 0 || n < steps; n++ {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			select {
			case <-ctx.Done():
				return
			case ch <- struct{}{}:
			}
		}
	}()
	return ch
}
