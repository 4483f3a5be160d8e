package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"FortuneScanner/internal/domain"
)

// AssemblePolicy holds the explicit policy choices of the assembly step.
type AssemblePolicy struct {
	// StrictEnrichment escalates any enrichment failure to a fatal run
	// error instead of degrading the document to partial.
	StrictEnrichment bool
	// AllowUnknownSigns publishes records whose label could not be mapped.
	// Off by default: the frontend keys card assets by sign.
	AllowUnknownSigns bool
}

// AssembleEntry pairs a fetched record with its enrichment result. A nil
// Bundle marks an enrichment failure.
type AssembleEntry struct {
	Record domain.RankingRecord
	Scores domain.Scores
	Bundle *domain.ContentBundle
}

// Assemble merges fetched and enriched data into the final document and
// enforces its structural invariants.
//
// The returned error is fatal (strict-mode escalation or a validation
// failure) and means nothing may be written. A returned document with
// status error is a legitimate product; the caller applies the configured
// fetch-failure policy to it.
func Assemble(source, dateKST string, updatedAt time.Time, entries []AssembleEntry, policy AssemblePolicy) (domain.OutputDocument, []string, error) {
	doc := domain.OutputDocument{
		Source:       source,
		DateKST:      dateKST,
		UpdatedAtKST: updatedAt.Format(time.RFC3339),
		Status:       domain.StatusOK,
		Rankings:     []domain.Ranking{},
	}

	if len(entries) == 0 {
		return errorDocument(doc, "scrape returned empty rankings"), nil, nil
	}

	// A partial ranking list is never published; the frontend layout
	// assumes all twelve entries.
	if msg := checkCompleteness(entries); msg != "" {
		return errorDocument(doc, msg), nil, nil
	}

	if !policy.AllowUnknownSigns {
		if unknown := unknownLabels(entries); len(unknown) > 0 {
			return errorDocument(doc, "unmapped sign labels: "+strings.Join(unknown, ", ")), nil, nil
		}
	}

	var failedKeys []string
	rankings := make([]domain.Ranking, 0, len(entries))
	for _, entry := range entries {
		bundle := domain.FallbackBundle(entry.Scores)
		if entry.Bundle != nil {
			bundle = *entry.Bundle
		} else {
			failedKeys = append(failedKeys, entry.Record.SignKey)
		}

		rankings = append(rankings, domain.Ranking{
			Rank:      entry.Record.Rank,
			SignKey:   entry.Record.SignKey,
			SignJP:    entry.Record.SignJP,
			SignKO:    domain.KoreanName(entry.Record.SignKey),
			MessageJP: entry.Record.MessageJP,
			MessageKO: bundle.MessageKO,
			Scores:    entry.Scores,
			AI:        bundle.AI,
		})
	}
	sort.Slice(rankings, func(i, j int) bool { return rankings[i].Rank < rankings[j].Rank })
	doc.Rankings = rankings

	if len(failedKeys) > 0 {
		if policy.StrictEnrichment {
			return doc, failedKeys, fmt.Errorf("strict mode: enrichment failed for %s", strings.Join(failedKeys, ", "))
		}
		doc.Status = domain.StatusPartial
		doc.ErrorMessage = "enrichment failed for: " + strings.Join(failedKeys, ", ")
	}

	if err := doc.Validate(); err != nil {
		return doc, failedKeys, err
	}

	return doc, failedKeys, nil
}

func errorDocument(doc domain.OutputDocument, msg string) domain.OutputDocument {
	doc.Status = domain.StatusError
	doc.ErrorMessage = msg
	doc.Rankings = []domain.Ranking{}
	return doc
}

func checkCompleteness(entries []AssembleEntry) string {
	if len(entries) != domain.RankingCount {
		return fmt.Sprintf("incomplete ranking list: got %d records, want %d", len(entries), domain.RankingCount)
	}

	seen := map[int]bool{}
	for _, entry := range entries {
		rank := entry.Record.Rank
		if rank < 1 || rank > domain.RankingCount {
			return fmt.Sprintf("rank %d out of range", rank)
		}
		if seen[rank] {
			return fmt.Sprintf("duplicate rank %d", rank)
		}
		seen[rank] = true
	}
	return ""
}

func unknownLabels(entries []AssembleEntry) []string {
	var labels []string
	for _, entry := range entries {
		if entry.Record.SignKey == domain.UnknownSignKey {
			labels = append(labels, entry.Record.SignJP)
		}
	}
	return labels
}
