package cycle

import (
	"context"
	"sync"
	"testing"
	"time"
)

type params struct {
	Filter string
	Page   int
}

type snap struct {
	Filter string
	Page   int
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	c := New(func(ctx context.Context, p params) (snap, error) {
		return snap{Filter: p.Filter, Page: p.Page}, nil
	}, nil)

	got, refreshing, err := c.Refresh(context.Background(), params{Filter: "a", Page: 1})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshing {
		t.Fatal("no other cycle in flight, refreshing should be false")
	}
	if got.Filter != "a" {
		t.Fatalf("published %+v", got)
	}
}

func TestOverlappingCyclesNewestInitiatedWins(t *testing.T) {
	// Cycle 1 is issued first but finishes last; the published snapshot must
	// reflect cycle 2's parameters.
	release1 := make(chan struct{})
	started1 := make(chan struct{})

	c := New(func(ctx context.Context, p params) (snap, error) {
		if p.Filter == "first" {
			close(started1)
			<-release1
		}
		return snap{Filter: p.Filter}, nil
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = c.Refresh(context.Background(), params{Filter: "first"})
	}()

	<-started1
	if _, _, err := c.Refresh(context.Background(), params{Filter: "second"}); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	close(release1)
	wg.Wait()

	got, refreshing, ok := c.Current()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if refreshing {
		t.Fatal("no cycle in flight")
	}
	if got.Filter != "second" {
		t.Fatalf("stale cycle won: published filter %q, want %q", got.Filter, "second")
	}
}

func TestRefreshingFlagWhileCycleInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := New(func(ctx context.Context, p params) (snap, error) {
		if p.Filter == "slow" {
			close(started)
			<-release
		}
		return snap{Filter: p.Filter}, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = c.Refresh(context.Background(), params{Filter: "slow"})
	}()

	<-started
	if _, refreshing, _ := c.Current(); !refreshing {
		t.Fatal("expected refreshing flag while a cycle is in flight")
	}
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cycle did not finish")
	}
	if _, refreshing, _ := c.Current(); refreshing {
		t.Fatal("refreshing flag stuck")
	}
}

func TestFailedCycleKeepsPreviousSnapshot(t *testing.T) {
	fail := false
	c := New(func(ctx context.Context, p params) (snap, error) {
		if fail {
			return snap{}, context.DeadlineExceeded
		}
		return snap{Filter: p.Filter}, nil
	}, nil)

	if _, _, err := c.Refresh(context.Background(), params{Filter: "good"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fail = true
	got, _, err := c.Refresh(context.Background(), params{Filter: "bad"})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if got.Filter != "good" {
		t.Fatalf("failed cycle replaced snapshot: %+v", got)
	}
}

func TestNormalizeSeesPreviousParams(t *testing.T) {
	normalize := func(prev params, hasPrev bool, next params) params {
		if hasPrev && prev.Filter != next.Filter {
			next.Page = 1
		}
		return next
	}
	c := New(func(ctx context.Context, p params) (snap, error) {
		return snap{Filter: p.Filter, Page: p.Page}, nil
	}, normalize)

	if _, _, err := c.Refresh(context.Background(), params{Filter: "a", Page: 3}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, _, err := c.Refresh(context.Background(), params{Filter: "b", Page: 3})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Page != 1 {
		t.Fatalf("filter change must reset page, got %d", got.Page)
	}
}
