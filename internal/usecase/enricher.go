package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
	"FortuneScanner/internal/retry"
)

// Appended to the system prompt on the second attempt after a malformed
// first response.
const correctiveInstruction = "- 직전 응답이 요구한 스키마를 충족하지 못했다. 지정된 JSON 스키마와 정확히 일치하는 JSON 객체 하나만 출력하라."

// generateAttempts is the fixed budget per record: one call plus one retry.
const generateAttempts = 2

// EnricherConfig carries the tunables of the enrichment step.
type EnricherConfig struct {
	CallTimeout time.Duration
	RetryDelay  time.Duration
	RateDelay   time.Duration
}

// Enricher produces a content bundle per ranking record, consulting the
// cache first so each (date, sign, text) key costs at most one generation
// call per day.
type Enricher struct {
	generator ports.BundleGenerator
	cache     ports.BundleCache
	policy    retry.Policy
	timeout   time.Duration
	rateDelay time.Duration
	logger    *slog.Logger
}

// NewEnricher constructs the enrichment step.
func NewEnricher(generator ports.BundleGenerator, bundleCache ports.BundleCache, cfg EnricherConfig, logger *slog.Logger) *Enricher {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Enricher{
		generator: generator,
		cache:     bundleCache,
		policy:    retry.Policy{MaxAttempts: generateAttempts, Delay: cfg.RetryDelay},
		timeout:   timeout,
		rateDelay: cfg.RateDelay,
		logger:    logger,
	}
}

// Enrich returns the bundle for a record, from cache when possible. Failures
// after retry exhaustion come back as *domain.EnrichmentError; the caller
// decides whether that degrades or aborts the run.
func (e *Enricher) Enrich(ctx context.Context, dateKST string, record domain.RankingRecord, scores domain.Scores) (domain.ContentBundle, error) {
	key := domain.CacheKey(dateKST, record.SignKey, record.MessageJP)
	if bundle, ok := e.cache.Get(key); ok {
		e.debug("cache hit", "sign", record.SignKey)
		// Cached text is reused as-is, but card scores must track the
		// current input scores even when they changed since the entry was
		// written.
		return repairBundle(bundle, scores), nil
	}

	var bundle domain.ContentBundle
	err := e.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		req := ports.GenerateRequest{
			DateKST:   dateKST,
			SignKey:   record.SignKey,
			SignKO:    domain.KoreanName(record.SignKey),
			MessageJP: record.MessageJP,
			Scores:    scores,
		}
		if attempt > 1 {
			req.Corrective = correctiveInstruction
			e.debug("retrying generation", "sign", record.SignKey, "attempt", attempt)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		generated, genErr := e.generator.Generate(callCtx, req)
		if genErr != nil {
			return genErr
		}
		bundle = generated
		return nil
	})

	// Small fixed pause after hitting the API, pass or fail, to respect
	// rate limits across the 12 sequential calls.
	e.pause(ctx)

	if err != nil {
		// A done parent context is a run-level shutdown, never a per-sign
		// failure; only the per-call timeout on callCtx stays transient.
		if ctx.Err() != nil {
			return domain.ContentBundle{}, ctx.Err()
		}
		return domain.ContentBundle{}, &domain.EnrichmentError{SignKey: record.SignKey, Err: err}
	}

	bundle = repairBundle(bundle, scores)

	e.cache.Put(key, bundle)
	if flushErr := e.cache.Flush(); flushErr != nil {
		// The bundle is already in memory and in the document; losing the
		// cache entry only costs a regeneration on the next run.
		e.warn("cache flush failed", "error", flushErr)
	}

	return bundle, nil
}

func (e *Enricher) pause(ctx context.Context) {
	if e.rateDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.rateDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// repairBundle runs even on syntactically valid responses: generated scores
// are never trusted, cards are deduplicated and completed to the five fixed
// categories, and lucky metadata is normalized.
func repairBundle(b domain.ContentBundle, scores domain.Scores) domain.ContentBundle {
	b.MessageKO = strings.TrimSpace(b.MessageKO)
	b.AI.Summary = domain.Summary{
		Headline: strings.TrimSpace(b.AI.Summary.Headline),
		Body:     strings.TrimSpace(b.AI.Summary.Body),
		Tip:      strings.TrimSpace(b.AI.Summary.Tip),
		Warning:  strings.TrimSpace(b.AI.Summary.Warning),
	}

	byCategory := map[string]domain.Card{}
	for _, card := range b.AI.Cards {
		card.Category = strings.TrimSpace(card.Category)
		if _, dup := byCategory[card.Category]; dup {
			continue
		}
		byCategory[card.Category] = card
	}

	cards := make([]domain.Card, 0, len(domain.CardCategories))
	for _, category := range domain.CardCategories {
		score := domain.ScoreForCategory(scores, category)
		card, ok := byCategory[category]
		if !ok {
			cards = append(cards, domain.DefaultCard(category, score))
			continue
		}
		card.Score = score
		card.Tone = normalizeTone(card.Tone)
		card.Comment = strings.TrimSpace(card.Comment)
		card.Tip = strings.TrimSpace(card.Tip)
		card.Warning = strings.TrimSpace(card.Warning)
		cards = append(cards, card)
	}
	b.AI.Cards = cards

	lp := b.AI.LuckyPoints
	lp.ColorName = strings.TrimSpace(lp.ColorName)
	lp.ColorHex = domain.NormalizeHex(lp.ColorHex)
	lp.Number = domain.ClampLuckyNumber(lp.Number)
	lp.Item = strings.TrimSpace(lp.Item)
	lp.Keyword = strings.TrimSpace(lp.Keyword)
	b.AI.LuckyPoints = lp

	return b
}

func normalizeTone(tone string) string {
	switch strings.TrimSpace(tone) {
	case domain.ToneRise, domain.ToneSteady, domain.ToneFall:
		return strings.TrimSpace(tone)
	default:
		return domain.ToneSteady
	}
}

func (e *Enricher) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Enricher) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
