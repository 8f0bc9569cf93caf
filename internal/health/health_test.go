package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePinger struct {
	failing atomic.Bool
}

func (f *fakePinger) HealthPing(ctx context.Context) error {
	if f.failing.Load() {
		return errors.New("down")
	}
	return nil
}

func TestCheckerTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePinger{}
	c := NewChecker("store", p, zerolog.Nop())
	go c.Start(ctx, 10*time.Millisecond)

	waitTrue(t, c.IsHealthy)

	p.failing.Store(true)
	waitTrue(t, func() bool { return !c.IsHealthy() })

	p.failing.Store(false)
	waitTrue(t, c.IsHealthy)
}

func TestServiceAggregates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ok := &fakePinger{}
	bad := &fakePinger{}
	bad.failing.Store(true)

	a := NewChecker("a", ok, zerolog.Nop())
	b := NewChecker("b", bad, zerolog.Nop())
	go a.Start(ctx, 10*time.Millisecond)
	go b.Start(ctx, 10*time.Millisecond)

	svc := NewService(a, b)
	waitTrue(t, func() bool { return !svc.IsHealthy() })

	bad.failing.Store(false)
	waitTrue(t, svc.IsHealthy)

	status := svc.Status()
	if len(status) != 2 {
		t.Fatalf("status entries: %d", len(status))
	}
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
