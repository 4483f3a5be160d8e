package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

type fakeGenerator struct {
	calls    int
	requests []ports.GenerateRequest
	// failFirst makes only the first attempt fail; failAlways wins over it.
	failFirst  bool
	failAlways bool
	bundle     domain.ContentBundle
}

func (g *fakeGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (domain.ContentBundle, error) {
	g.calls++
	g.requests = append(g.requests, req)
	if g.failAlways || (g.failFirst && g.calls == 1) {
		return domain.ContentBundle{}, fmt.Errorf("generation failed")
	}
	return g.bundle, nil
}

type memoryCache struct {
	entries map[string]domain.ContentBundle
	flushes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.ContentBundle{}}
}

func (c *memoryCache) Get(key string) (domain.ContentBundle, bool) {
	b, ok := c.entries[key]
	return b, ok
}

func (c *memoryCache) Put(key string, bundle domain.ContentBundle) {
	c.entries[key] = bundle
}

func (c *memoryCache) Flush() error {
	c.flushes++
	return nil
}

func wellFormedBundle() domain.ContentBundle {
	cards := make([]domain.Card, 0, 5)
	for _, cat := range domain.CardCategories {
		cards = append(cards, domain.Card{Category: cat, Tone: domain.ToneSteady, Score: 55, Comment: "c", Tip: "t", Warning: "w"})
	}
	return domain.ContentBundle{
		MessageKO: "좋은 하루.",
		AI: domain.AIContent{
			Summary:     domain.Summary{Headline: "h", Body: "b", Tip: "t", Warning: "w"},
			Cards:       cards,
			LuckyPoints: domain.LuckyPoints{ColorName: "파랑", ColorHex: "#3FA7D6", Number: 3, Item: "i", Keyword: "k"},
		},
	}
}

func sampleRecord() domain.RankingRecord {
	return domain.RankingRecord{Rank: 1, SignKey: "aries", SignJP: "おひつじ座", MessageJP: "挑戦すると吉。"}
}

func newTestEnricher(gen ports.BundleGenerator, c ports.BundleCache) *Enricher {
	return NewEnricher(gen, c, EnricherConfig{}, nil)
}

func TestEnrichCacheHitSkipsGeneration(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	cached := wellFormedBundle()

	c := newMemoryCache()
	c.Put(domain.CacheKey("2026-08-25", record.SignKey, record.MessageJP), cached)

	gen := &fakeGenerator{bundle: wellFormedBundle()}
	enricher := newTestEnricher(gen, c)

	bundle, err := enricher.Enrich(context.Background(), "2026-08-25", record, domain.DefaultScores())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("cache hit still called generator %d times", gen.calls)
	}
	if bundle.MessageKO != cached.MessageKO {
		t.Fatalf("cached bundle not returned unchanged")
	}
}

func TestEnrichIdempotentWithinDay(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	gen := &fakeGenerator{bundle: wellFormedBundle()}
	enricher := newTestEnricher(gen, newMemoryCache())

	if _, err := enricher.Enrich(context.Background(), "2026-08-25", record, domain.DefaultScores()); err != nil {
		t.Fatalf("first Enrich: %v", err)
	}
	if _, err := enricher.Enrich(context.Background(), "2026-08-25", record, domain.DefaultScores()); err != nil {
		t.Fatalf("second Enrich: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly 1 generation call, got %d", gen.calls)
	}
}

func TestEnrichRetriesOnceWithCorrective(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{failFirst: true, bundle: wellFormedBundle()}
	enricher := newTestEnricher(gen, newMemoryCache())

	_, err := enricher.Enrich(context.Background(), "2026-08-25", sampleRecord(), domain.DefaultScores())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", gen.calls)
	}
	if gen.requests[0].Corrective != "" {
		t.Fatalf("first attempt must not carry the corrective instruction")
	}
	if gen.requests[1].Corrective == "" {
		t.Fatalf("retry must carry the corrective instruction")
	}
}

// stallingGenerator blocks until the per-call context expires.
type stallingGenerator struct {
	calls int
}

func (g *stallingGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (domain.ContentBundle, error) {
	g.calls++
	<-ctx.Done()
	return domain.ContentBundle{}, ctx.Err()
}

func TestEnrichCancelledContextIsNotPerSignFailure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{bundle: wellFormedBundle()}
	enricher := newTestEnricher(gen, newMemoryCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := enricher.Enrich(ctx, "2026-08-25", sampleRecord(), domain.DefaultScores())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var ee *domain.EnrichmentError
	if errors.As(err, &ee) {
		t.Fatalf("shutdown must not count against the sign: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("cancelled context still called generator %d times", gen.calls)
	}
}

func TestEnrichPerCallTimeoutStaysTransient(t *testing.T) {
	t.Parallel()

	gen := &stallingGenerator{}
	enricher := NewEnricher(gen, newMemoryCache(), EnricherConfig{CallTimeout: time.Millisecond}, nil)

	_, err := enricher.Enrich(context.Background(), "2026-08-25", sampleRecord(), domain.DefaultScores())

	var ee *domain.EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("per-call timeout must stay a per-sign failure, got %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected the timeout to be retried, got %d calls", gen.calls)
	}
}

func TestEnrichFailsAfterRetryExhaustion(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{failAlways: true}
	c := newMemoryCache()
	enricher := newTestEnricher(gen, c)

	_, err := enricher.Enrich(context.Background(), "2026-08-25", sampleRecord(), domain.DefaultScores())

	var ee *domain.EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
	if ee.SignKey != "aries" {
		t.Fatalf("unexpected sign key: %s", ee.SignKey)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", gen.calls)
	}
	if len(c.entries) != 0 {
		t.Fatalf("failed result must not be cached")
	}
}

func TestEnrichRepairsGeneratedBundle(t *testing.T) {
	t.Parallel()

	messy := wellFormedBundle()
	messy.MessageKO = "  번역문  "
	// Generated scores must never survive.
	messy.AI.Cards[0].Score = 99
	messy.AI.Cards[1].Tone = "폭등"
	messy.AI.Cards[1].Comment = " 들뜸 "
	// A duplicate love card replaces the study card; dedupe keeps the first
	// love card and study must be synthesized.
	messy.AI.Cards[2] = domain.Card{Category: domain.CategoryLove, Tone: domain.ToneRise, Score: 1, Comment: "dup", Tip: "t", Warning: "w"}
	messy.AI.LuckyPoints.ColorHex = "#abc"
	messy.AI.LuckyPoints.Number = 42

	gen := &fakeGenerator{bundle: messy}
	enricher := newTestEnricher(gen, newMemoryCache())

	scores := domain.Scores{Total: 10, Love: 20, Study: 30, Money: 40, Health: 50}
	bundle, err := enricher.Enrich(context.Background(), "2026-08-25", sampleRecord(), scores)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if bundle.MessageKO != "번역문" {
		t.Fatalf("free text not trimmed: %q", bundle.MessageKO)
	}

	if len(bundle.AI.Cards) != 5 {
		t.Fatalf("expected 5 cards, got %d", len(bundle.AI.Cards))
	}
	for i, card := range bundle.AI.Cards {
		if card.Category != domain.CardCategories[i] {
			t.Fatalf("card %d category %q, want %q", i, card.Category, domain.CardCategories[i])
		}
		if want := domain.ScoreForCategory(scores, card.Category); card.Score != want {
			t.Fatalf("card %s score %d, want input score %d", card.Category, card.Score, want)
		}
	}

	love := bundle.AI.Cards[1]
	if love.Tone != domain.ToneSteady {
		t.Fatalf("invalid tone not normalized: %q", love.Tone)
	}
	if love.Comment != "들뜸" {
		t.Fatalf("duplicate card won or comment not trimmed: %q", love.Comment)
	}

	study := bundle.AI.Cards[2]
	if study.Comment == "dup" || study.Comment == "" {
		t.Fatalf("missing study card not synthesized: %+v", study)
	}

	if bundle.AI.LuckyPoints.ColorHex != "#AABBCC" {
		t.Fatalf("short hex not expanded: %s", bundle.AI.LuckyPoints.ColorHex)
	}
	if bundle.AI.LuckyPoints.Number != 9 {
		t.Fatalf("lucky number not clamped: %d", bundle.AI.LuckyPoints.Number)
	}
}

func TestEnrichCacheHitTracksCurrentScores(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	c := newMemoryCache()
	c.Put(domain.CacheKey("2026-08-25", record.SignKey, record.MessageJP), wellFormedBundle())

	gen := &fakeGenerator{}
	enricher := newTestEnricher(gen, c)

	scores := domain.Scores{Total: 11, Love: 22, Study: 33, Money: 44, Health: 55}
	bundle, err := enricher.Enrich(context.Background(), "2026-08-25", record, scores)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("cache hit still called generator %d times", gen.calls)
	}
	for _, card := range bundle.AI.Cards {
		if want := domain.ScoreForCategory(scores, card.Category); card.Score != want {
			t.Fatalf("card %s score %d, want current input score %d", card.Category, card.Score, want)
		}
	}
}

func TestEnrichFlushesCacheAfterSuccess(t *testing.T) {
	t.Parallel()

	c := newMemoryCache()
	enricher := newTestEnricher(&fakeGenerator{bundle: wellFormedBundle()}, c)

	if _, err := enricher.Enrich(context.Background(), "2026-08-25", sampleRecord(), domain.DefaultScores()); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if c.flushes != 1 {
		t.Fatalf("expected 1 flush, got %d", c.flushes)
	}
}
