package telegraph

import (
	"sync"
	"testing"
	"time"
)

func TestSerialExecutor_PreservesOrderPerKey(t *testing.T) {
	e := newSerialExecutor()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		e.Submit("conv-1", func() {
			if i%7 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	e.Wait()

	if len(got) != 50 {
		t.Fatalf("ran %d tasks, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d (order not preserved)", i, v, i)
		}
	}
	if e.Pending() != 0 {
		t.Errorf("Pending = %d, want 0 after Wait", e.Pending())
	}
}

func TestSerialExecutor_NeverOverlapsSameKey(t *testing.T) {
	e := newSerialExecutor()

	var mu sync.Mutex
	active, maxActive := 0, 0
	for i := 0; i < 20; i++ {
		e.Submit("conv-1", func() {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(200 * time.Microsecond)
			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	e.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent tasks for one key = %d, want 1", maxActive)
	}
}

func TestSerialExecutor_KeysRunConcurrently(t *testing.T) {
	e := newSerialExecutor()

	release := make(chan struct{})
	done := make(chan struct{})
	e.Submit("slow", func() { <-release })
	e.Submit("fast", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("work for another key was blocked by a slow key")
	}
	close(release)
	e.Wait()
}
