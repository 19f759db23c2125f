package translate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetbuddy/internal/cache"
)

const (
	cacheSize    = 1000
	flushTimeout = 10 * time.Second
)

// sourceLanguage is the language UI strings are authored in; requests
// targeting it bypass the backend entirely.
const sourceLanguage = "en"

type Service struct {
	backend  Backend
	cache    *cache.LRU[string]
	group    singleflight.Group
	debounce time.Duration

	mu      sync.Mutex
	batches map[string]*batch
}

type batch struct {
	items []batchItem
}

type batchItem struct {
	text string
	ch   chan result
}

type result struct {
	out string
	err error
}

// NewService builds the service around backend. The cache registers with
// manager (when given) for periodic expired-entry cleanup.
func NewService(backend Backend, manager *cache.Manager, ttl, debounce time.Duration) *Service {
	c := cache.NewLRU[string](cacheSize, ttl)
	if manager != nil {
		manager.Register(c)
	}
	return &Service{
		backend:  backend,
		cache:    c,
		debounce: debounce,
		batches:  make(map[string]*batch),
	}
}

func cacheKey(target, text string) string {
	return target + "\x00" + text
}

// Translate returns text in the target language. Single requests arriving
// within the debounce window are coalesced into one backend call, and
// concurrent requests for the same text share one in-flight result. Any
// failure falls back to the untranslated source text.
func (s *Service) Translate(ctx context.Context, text, target string) string {
	if text == "" || target == "" || target == sourceLanguage {
		return text
	}

	key := cacheKey(target, text)
	if v, ok := s.cache.Get(key); ok {
		return v
	}

	ch := s.group.DoChan(key, func() (any, error) {
		r := <-s.enqueue(target, text)
		return r.out, r.err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			slog.WarnContext(ctx, "Translation failed, returning source text", "target", target, "error", r.Err)
			return text
		}
		return r.Val.(string)
	case <-ctx.Done():
		return text
	}
}

// TranslateBatch translates texts positionally. Cached entries are served
// locally; the remainder goes to the backend in a single call. On failure
// every missing position falls back to its source text.
func (s *Service) TranslateBatch(ctx context.Context, texts []string, target string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	if target == "" || target == sourceLanguage {
		return out
	}

	var missing []int
	for i, t := range texts {
		if t == "" {
			continue
		}
		if v, ok := s.cache.Get(cacheKey(target, t)); ok {
			out[i] = v
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out
	}

	req := make([]string, len(missing))
	for j, i := range missing {
		req[j] = texts[i]
	}

	translated, err := s.backend.Translate(ctx, req, target)
	if err != nil {
		slog.WarnContext(ctx, "Batch translation failed, returning source texts", "target", target, "count", len(req), "error", err)
		return out
	}
	for j, i := range missing {
		out[i] = translated[j]
		s.cache.Set(cacheKey(target, texts[i]), translated[j])
	}
	return out
}

// CachedCount reports the number of live cache entries.
func (s *Service) CachedCount() int {
	return s.cache.Size()
}

// enqueue adds text to the open batch for target, opening one (and arming
// its flush timer) when none exists.
func (s *Service) enqueue(target, text string) <-chan result {
	ch := make(chan result, 1)

	s.mu.Lock()
	b, ok := s.batches[target]
	if !ok {
		b = &batch{}
		s.batches[target] = b
		time.AfterFunc(s.debounce, func() { s.flush(target) })
	}
	b.items = append(b.items, batchItem{text: text, ch: ch})
	s.mu.Unlock()

	return ch
}

func (s *Service) flush(target string) {
	s.mu.Lock()
	b := s.batches[target]
	delete(s.batches, target)
	s.mu.Unlock()

	if b == nil || len(b.items) == 0 {
		return
	}

	texts := make([]string, len(b.items))
	for i, it := range b.items {
		texts[i] = it.text
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	translated, err := s.backend.Translate(ctx, texts, target)
	if err == nil && len(translated) != len(texts) {
		err = fmt.Errorf("got %d translations for %d texts", len(translated), len(texts))
	}

	for i, it := range b.items {
		if err != nil {
			it.ch <- result{err: err}
			continue
		}
		s.cache.Set(cacheKey(target, it.text), translated[i])
		it.ch <- result{out: translated[i]}
	}
}
