package ports

import (
	"context"
	"time"

	"FortuneScanner/internal/domain"
)

// RankingSource pulls the day's ranked sign list from the configured site.
type RankingSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.RankingRecord, error)
}

// ScoreProvider supplies the five per-category scores for a sign.
type ScoreProvider interface {
	ScoresFor(ctx context.Context, signKey string) (domain.Scores, error)
}

// GenerateRequest carries everything a generation call needs. Corrective is
// empty on the first attempt and holds the repair instruction on retries.
type GenerateRequest struct {
	DateKST    string
	SignKey    string
	SignKO     string
	MessageJP  string
	Scores     domain.Scores
	Corrective string
}

// BundleGenerator produces a content bundle via the external generation API.
type BundleGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (domain.ContentBundle, error)
}

// BundleCache avoids repeat generation calls for unchanged input.
type BundleCache interface {
	Get(key string) (domain.ContentBundle, bool)
	Put(key string, bundle domain.ContentBundle)
	Flush() error
}

// DocumentWriter persists the final document atomically.
type DocumentWriter interface {
	Write(doc domain.OutputDocument) error
}

// RunRecorder keeps a history of run outcomes for diagnostics.
type RunRecorder interface {
	SaveRun(ctx context.Context, doc domain.OutputDocument, failedKeys []string) error
	HasOKRun(ctx context.Context, dateKST string) (bool, error)
}

// Notifier reports run outcomes to an external channel.
type Notifier interface {
	ReportRun(ctx context.Context, doc domain.OutputDocument, failedKeys []string) error
}

// Scheduler controls when pipeline runs execute in daemon mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
