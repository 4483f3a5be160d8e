package parser

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/scanner"
)

// Default structural selectors of the ranking page. Overridable per site via
// config options when the markup shifts.
const (
	defaultListSelector = "ul.oa_horoscope_list > li"
	defaultRankSelector = ".horo_rank"
	defaultNameSelector = ".horo_name"
	defaultTextSelector = ".horo_txt"
)

var rankExpr = regexp.MustCompile(`(\d+)`)

// OhaasaScanner scrapes the daily 12-sign ranking list.
type OhaasaScanner struct {
	client *http.Client
}

// NewOhaasaScanner wires an HTTP client with a sane default timeout.
func NewOhaasaScanner(client *http.Client) *OhaasaScanner {
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	return &OhaasaScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (o *OhaasaScanner) Name() string {
	return "ohaasa"
}

// Scan fetches the ranking page and extracts one record per list item.
// Items missing a rank, a sign label, or the blurb text are skipped; the
// caller decides whether the remaining count is publishable.
func (o *OhaasaScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RankingRecord, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no url configured for site %s", req.SiteName)
	}

	doc, err := o.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	records := extractRecords(doc, selectorsFromOptions(req.Options))
	if len(records) == 0 {
		return nil, fmt.Errorf("ranking list not found at %s", req.URL)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return records, nil
}

func (o *OhaasaScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "FortuneScanner/1.0")
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9,en-US;q=0.7,en;q=0.6")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

type selectors struct {
	list string
	rank string
	name string
	text string
}

func selectorsFromOptions(options map[string]string) selectors {
	sel := selectors{
		list: defaultListSelector,
		rank: defaultRankSelector,
		name: defaultNameSelector,
		text: defaultTextSelector,
	}
	if v := options["listSelector"]; v != "" {
		sel.list = v
	}
	if v := options["rankSelector"]; v != "" {
		sel.rank = v
	}
	if v := options["nameSelector"]; v != "" {
		sel.name = v
	}
	if v := options["textSelector"]; v != "" {
		sel.text = v
	}
	return sel
}

func extractRecords(doc *goquery.Document, sel selectors) []domain.RankingRecord {
	var records []domain.RankingRecord

	doc.Find(sel.list).Each(func(i int, li *goquery.Selection) {
		record, ok := parseItem(li, sel)
		if !ok {
			return
		}
		records = append(records, record)
	})

	return records
}

func parseItem(li *goquery.Selection, sel selectors) (domain.RankingRecord, bool) {
	rankText := strings.TrimSpace(li.Find(sel.rank).First().Text())
	signJP := strings.TrimSpace(li.Find(sel.name).First().Text())
	messageJP := strings.TrimSpace(li.Find(sel.text).First().Text())

	// Rank indicators look like "1位"; take the first integer.
	match := rankExpr.FindString(rankText)
	if match == "" || signJP == "" || messageJP == "" {
		return domain.RankingRecord{}, false
	}
	rank, err := strconv.Atoi(match)
	if err != nil {
		return domain.RankingRecord{}, false
	}

	return domain.RankingRecord{
		Rank:      rank,
		SignKey:   domain.SignFromLabel(signJP),
		SignJP:    signJP,
		MessageJP: messageJP,
	}, true
}
