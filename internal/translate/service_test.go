package translate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend records every batch it receives and answers with
// "<target>:<text>" per position.
type fakeBackend struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeBackend) Translate(_ context.Context, texts []string, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = target + ":" + t
	}
	return out, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(backend Backend, debounce time.Duration) *Service {
	return NewService(backend, nil, time.Hour, debounce)
}

func TestTranslateCachesResult(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, time.Millisecond)
	ctx := context.Background()

	if got := svc.Translate(ctx, "Hello", "es"); got != "es:Hello" {
		t.Fatalf("first call = %q", got)
	}
	if got := backend.callCount(); got != 1 {
		t.Fatalf("backend calls after first request = %d, want 1", got)
	}

	// The repeat is served from cache without touching the backend.
	if got := svc.Translate(ctx, "Hello", "es"); got != "es:Hello" {
		t.Fatalf("second call = %q", got)
	}
	if got := backend.callCount(); got != 1 {
		t.Fatalf("backend calls after cached request = %d, want 1", got)
	}
}

func TestTranslateBatchesWithinDebounceWindow(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, 50*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, text := range []string{"Hello", "Goodbye"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.Translate(ctx, text, "fr")
		}()
	}
	wg.Wait()

	if results[0] != "fr:Hello" || results[1] != "fr:Goodbye" {
		t.Fatalf("unexpected results %v", results)
	}
	if got := backend.callCount(); got != 1 {
		t.Fatalf("backend calls = %d, want 1 coalesced batch", got)
	}
	backend.mu.Lock()
	batchSize := len(backend.calls[0])
	backend.mu.Unlock()
	if batchSize != 2 {
		t.Fatalf("batch size = %d, want 2", batchSize)
	}
}

func TestTranslateFallsBackOnBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("quota exceeded")}
	svc := newTestService(backend, time.Millisecond)

	if got := svc.Translate(context.Background(), "Hello", "de"); got != "Hello" {
		t.Fatalf("got %q, want the source text back", got)
	}
}

func TestTranslateSkipsSourceLanguage(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, time.Millisecond)

	if got := svc.Translate(context.Background(), "Hello", "en"); got != "Hello" {
		t.Fatalf("got %q", got)
	}
	if got := svc.Translate(context.Background(), "", "es"); got != "" {
		t.Fatalf("empty text translated to %q", got)
	}
	if got := backend.callCount(); got != 0 {
		t.Fatalf("backend calls = %d, want 0", got)
	}
}

func TestTranslateBatchUsesCachedEntries(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, time.Millisecond)
	ctx := context.Background()

	svc.Translate(ctx, "Hello", "es")

	got := svc.TranslateBatch(ctx, []string{"Hello", "Goodbye"}, "es")
	if got[0] != "es:Hello" || got[1] != "es:Goodbye" {
		t.Fatalf("unexpected results %v", got)
	}

	// Only the uncached text reaches the backend.
	backend.mu.Lock()
	last := backend.calls[len(backend.calls)-1]
	backend.mu.Unlock()
	if len(last) != 1 || last[0] != "Goodbye" {
		t.Fatalf("last backend batch = %v, want [Goodbye]", last)
	}
}

func TestTranslateBatchFallsBackOnError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("unreachable")}
	svc := newTestService(backend, time.Millisecond)

	got := svc.TranslateBatch(context.Background(), []string{"One", "Two"}, "it")
	if got[0] != "One" || got[1] != "Two" {
		t.Fatalf("got %v, want source texts back", got)
	}
}
