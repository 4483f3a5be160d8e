package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

// Fetch-failure output policies. Preserve leaves the last good file
// untouched; errordoc replaces it with an explicit error marker.
const (
	OnFetchFailurePreserve = "preserve"
	OnFetchFailureErrorDoc = "errordoc"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.RankingSource
	Scores   ports.ScoreProvider
	Enricher *Enricher
	Writer   ports.DocumentWriter
	Recorder ports.RunRecorder
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// PipelinePolicy groups the run-level policy choices.
type PipelinePolicy struct {
	SourceName        string
	OnFetchFailure    string
	StrictEnrichment  bool
	AllowUnknownSigns bool
	Location          *time.Location
}

// Pipeline implements the daily fetch-enrich-assemble-write workflow. One
// run is strictly sequential; any fatal error leaves the previous output
// file intact.
type Pipeline struct {
	source   ports.RankingSource
	scores   ports.ScoreProvider
	enricher *Enricher
	writer   ports.DocumentWriter
	recorder ports.RunRecorder
	notifier ports.Notifier
	logger   *slog.Logger
	policy   PipelinePolicy
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, policy PipelinePolicy) *Pipeline {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.OnFetchFailure == "" {
		policy.OnFetchFailure = OnFetchFailurePreserve
	}
	return &Pipeline{
		source:   deps.Source,
		scores:   deps.Scores,
		enricher: deps.Enricher,
		writer:   deps.Writer,
		recorder: deps.Recorder,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		policy:   policy,
		now:      time.Now,
	}
}

// ProcessDay runs the full pipeline for one day. A nil return means a valid
// ok or partial document was committed; any error maps to a non-zero exit.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) error {
	dateKST := day.In(p.policy.Location).Format("2006-01-02")
	updatedAt := p.now().In(p.policy.Location)

	p.info("run started", "date", dateKST)

	records, err := p.source.FetchDaily(ctx, day)
	if err != nil {
		p.error("fetch failed", "error", err)
		return p.failRun(ctx, dateKST, updatedAt, fmt.Sprintf("scrape failed: %v", err), err)
	}

	entries := make([]AssembleEntry, 0, len(records))
	for _, record := range records {
		scores := p.lookupScores(ctx, record.SignKey)
		entry := AssembleEntry{Record: record, Scores: scores}

		bundle, enrichErr := p.enricher.Enrich(ctx, dateKST, record, scores)
		if enrichErr != nil {
			var ee *domain.EnrichmentError
			if !errors.As(enrichErr, &ee) {
				// Not a per-sign failure (e.g. context cancellation):
				// abort the run without touching the output.
				return fmt.Errorf("enrich %s: %w", record.SignKey, enrichErr)
			}
			p.error("enrichment failed", "sign", record.SignKey, "error", enrichErr)
		} else {
			entry.Bundle = &bundle
		}
		entries = append(entries, entry)
	}

	assemblePolicy := AssemblePolicy{
		StrictEnrichment:  p.policy.StrictEnrichment,
		AllowUnknownSigns: p.policy.AllowUnknownSigns,
	}
	doc, failedKeys, err := Assemble(p.policy.SourceName, dateKST, updatedAt, entries, assemblePolicy)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			p.error("validation failed, write aborted", "error", err)
		} else {
			p.error("run aborted", "error", err)
		}
		return err
	}

	if doc.Status == domain.StatusError {
		p.error("ranking list unusable", "reason", doc.ErrorMessage)
		return p.publishFailure(ctx, doc, nil)
	}

	if err := p.writer.Write(doc); err != nil {
		p.error("write failed, previous output preserved", "error", err)
		return err
	}

	p.report(ctx, doc, failedKeys)
	p.info("run committed", "status", string(doc.Status), "failed", len(failedKeys))
	return nil
}

func (p *Pipeline) lookupScores(ctx context.Context, signKey string) domain.Scores {
	if p.scores == nil {
		return domain.DefaultScores()
	}
	s, err := p.scores.ScoresFor(ctx, signKey)
	if err != nil {
		p.warn("score lookup failed, using defaults", "sign", signKey, "error", err)
		return domain.DefaultScores()
	}
	return s
}

// failRun handles a whole-run fetch failure before assembly produced a
// document.
func (p *Pipeline) failRun(ctx context.Context, dateKST string, updatedAt time.Time, reason string, cause error) error {
	doc := domain.OutputDocument{
		Source:       p.policy.SourceName,
		DateKST:      dateKST,
		UpdatedAtKST: updatedAt.Format(time.RFC3339),
		Status:       domain.StatusError,
		ErrorMessage: reason,
		Rankings:     []domain.Ranking{},
	}
	if err := p.publishFailure(ctx, doc, cause); err != nil {
		return err
	}
	return nil
}

// publishFailure applies the configured fetch-failure policy to an error
// document, records it, and returns the fatal run error.
func (p *Pipeline) publishFailure(ctx context.Context, doc domain.OutputDocument, cause error) error {
	switch p.policy.OnFetchFailure {
	case OnFetchFailureErrorDoc:
		if err := p.writer.Write(doc); err != nil {
			p.error("error-document write failed", "error", err)
			return err
		}
		p.info("error document written")
	default:
		p.info("previous output preserved")
	}

	p.report(ctx, doc, nil)
	return &domain.FetchError{Reason: doc.ErrorMessage, Err: cause}
}

// report persists run history and sends the outcome notification. Both are
// diagnostics; failures are logged, never fatal.
func (p *Pipeline) report(ctx context.Context, doc domain.OutputDocument, failedKeys []string) {
	if p.recorder != nil {
		if err := p.recorder.SaveRun(ctx, doc, failedKeys); err != nil {
			p.warn("run history save failed", "error", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.ReportRun(ctx, doc, failedKeys); err != nil {
			p.warn("run report failed", "error", err)
		}
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
