package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FortuneScanner/internal/config"
	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
	"FortuneScanner/internal/scanner"
)

// StrategySource implements RankingSource via registered scanner strategies.
// Sites are tried in configured order; the first successful scan wins, so
// later entries act as fallback mirrors.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.RankingSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchDaily returns the ranking list from the first site that scans
// successfully, or an error when every configured site fails.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.RankingRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}

	var lastErr error
	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Day:      day,
			SiteName: site.Name,
			URL:      site.URL,
			Options:  site.Options,
		}

		records, err := strategy.Scan(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("scan site %s: %w", site.Name, err)
			s.warn("site scan failed", "site", site.Name, "error", err)
			continue
		}

		s.debug("site produced records", "site", site.Name, "count", len(records))
		return records, nil
	}

	return nil, lastErr
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
