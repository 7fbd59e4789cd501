package password

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFloorWaitsRemainingTime(t *testing.T) {
	f := Floor{Min: 50 * time.Millisecond}
	start := time.Now()

	f.Wait(context.Background(), start)

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %s, expected at least 50ms", elapsed)
	}
}

func TestFloorDoesNotStackOnSlowWork(t *testing.T) {
	f := Floor{Min: 30 * time.Millisecond}
	start := time.Now()
	time.Sleep(40 * time.Millisecond)

	before := time.Now()
	f.Wait(context.Background(), start)

	if waited := time.Since(before); waited > 10*time.Millisecond {
		t.Fatalf("floor added %s on top of work that already exceeded it", waited)
	}
}

func TestFloorIsPerRequest(t *testing.T) {
	f := Floor{Min: 60 * time.Millisecond}
	const workers = 10

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Wait(context.Background(), time.Now())
		}()
	}
	wg.Wait()

	// Ten serialised waits would take 600ms.
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("concurrent waits took %s; floor must not act as a global throttle", elapsed)
	}
}

func TestFloorHonoursCancellation(t *testing.T) {
	f := Floor{Min: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	f.Wait(ctx, start)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("wait ignored cancellation, took %s", elapsed)
	}
}
