// Package translate serves UI string translation through a TTL cache, a
// debounce batcher and an in-flight deduplicator in front of the Google
// Translate v2 API.
package translate

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"
)

// Backend translates a batch of texts into the target language. Results
// are positional: translation i corresponds to texts[i].
type Backend interface {
	Translate(ctx context.Context, texts []string, target string) ([]string, error)
}

// GoogleBackend is the production Backend over the Translate v2 REST API.
type GoogleBackend struct {
	svc *translatev2.Service
}

func NewGoogleBackend(ctx context.Context, apiKey string) (*GoogleBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google translate API key is not configured")
	}
	svc, err := translatev2.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create translate service: %w", err)
	}
	return &GoogleBackend{svc: svc}, nil
}

func (g *GoogleBackend) Translate(ctx context.Context, texts []string, target string) ([]string, error) {
	resp, err := g.svc.Translations.List(texts, target).Format("text").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("translate %d texts to %s: %w", len(texts), target, err)
	}
	if len(resp.Translations) != len(texts) {
		return nil, fmt.Errorf("got %d translations for %d texts", len(resp.Translations), len(texts))
	}

	out := make([]string, len(texts))
	for i, tr := range resp.Translations {
		out[i] = tr.TranslatedText
	}
	return out, nil
}
