package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{TracePrefix, SpanPrefix, ExecPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}
		if !IsValid(StripPrefix(id)) {
			t.Errorf("ULID part should be valid: %s", id)
		}
	}
}

func TestExecTokenIsLowercase(t *testing.T) {
	token := NewExecToken().String()

	if token != strings.ToLower(token) {
		t.Errorf("exec token should be lowercase, got %s", token)
	}
	if !strings.HasPrefix(token, ExecPrefix+"_") {
		t.Errorf("exec token should carry prefix, got %s", token)
	}
}

func TestConcurrentGenerationIsUnique(t *testing.T) {
	const workers = 16
	const perWorker = 200

	var (
		mu   sync.Mutex
		seen = make(map[ExecToken]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				token := NewExecToken()
				mu.Lock()
				seen[token] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique tokens, got %d", workers*perWorker, len(seen))
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	trace := NewTraceID()

	ts, err := Timestamp(trace.String())
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should not be before %v", ts, before)
	}
}

func TestIsValidRejectsGarbage(t *testing.T) {
	if IsValid("not-a-ulid") {
		t.Error("garbage should not be a valid ULID")
	}
}
