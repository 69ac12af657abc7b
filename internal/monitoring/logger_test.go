package monitoring

import (
	"fmt"
	"sync"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil must mute rather than leave a nil func behind.
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Logf("msg %d", i)
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", r.Len())
	}
	seen := make(map[string]bool)
	for _, l := range r.Lines() {
		seen[l] = true
	}
	for i := 0; i < 50; i++ {
		if !seen[fmt.Sprintf("msg %d", i)] {
			t.Errorf("missing msg %d", i)
		}
	}
}
