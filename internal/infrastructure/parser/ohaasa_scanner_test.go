package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FortuneScanner/internal/scanner"
)

const sampleListHTML = `
<ul class="oa_horoscope_list">
  <li>
    <span class="horo_rank">2位</span>
    <span class="horo_name">おうし座</span>
    <p class="horo_txt">落ち着いて過ごせる一日。</p>
  </li>
  <li>
    <span class="horo_rank">1位</span>
    <span class="horo_name">おひつじ座</span>
    <p class="horo_txt">新しいことに挑戦すると吉。</p>
  </li>
  <li>
    <span class="horo_rank"></span>
    <span class="horo_name">ふたご座</span>
    <p class="horo_txt">ランク表示が欠けている項目。</p>
  </li>
  <li>
    <span class="horo_rank">3位</span>
    <span class="horo_name">りゅう座</span>
    <p class="horo_txt">対応表にない星座。</p>
  </li>
</ul>`

func TestParseItem(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleListHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	sel := selectorsFromOptions(nil)
	li := doc.Find(sel.list).Eq(1)

	record, ok := parseItem(li, sel)
	if !ok {
		t.Fatalf("parseItem rejected a well-formed item")
	}
	if record.Rank != 1 {
		t.Fatalf("unexpected rank: %d", record.Rank)
	}
	if record.SignKey != "aries" {
		t.Fatalf("unexpected sign key: %s", record.SignKey)
	}
	if record.SignJP != "おひつじ座" {
		t.Fatalf("unexpected label: %s", record.SignJP)
	}
	if record.MessageJP != "新しいことに挑戦すると吉。" {
		t.Fatalf("unexpected message: %s", record.MessageJP)
	}
}

func TestExtractRecordsSkipsMalformedAndSorts(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleListHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	records := extractRecords(doc, selectorsFromOptions(nil))
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// The missing-rank item is dropped; the unmapped sign is kept under
	// the sentinel key.
	var keys []string
	for _, r := range records {
		keys = append(keys, r.SignKey)
	}
	if keys[2] != "unknown" {
		t.Fatalf("unmapped sign not carried as unknown: %v", keys)
	}
}

func TestOhaasaScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Language"); !strings.HasPrefix(got, "ja-JP") {
			t.Errorf("missing ja-JP accept-language, got %q", got)
		}
		_, _ = w.Write([]byte(sampleListHTML))
	}))
	defer server.Close()

	sc := NewOhaasaScanner(server.Client())

	records, err := sc.Scan(context.Background(), scanner.Request{
		Day:      time.Now(),
		SiteName: "ohaasa",
		URL:      server.URL,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Rank != 1 || records[1].Rank != 2 || records[2].Rank != 3 {
		t.Fatalf("records not sorted by rank: %+v", records)
	}
}

func TestOhaasaScannerScanEmptyPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>メンテナンス中</p></body></html>`))
	}))
	defer server.Close()

	sc := NewOhaasaScanner(server.Client())

	_, err := sc.Scan(context.Background(), scanner.Request{SiteName: "ohaasa", URL: server.URL})
	if err == nil {
		t.Fatalf("expected error for page without ranking list")
	}
}

func TestOhaasaScannerScanHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewOhaasaScanner(server.Client())

	_, err := sc.Scan(context.Background(), scanner.Request{SiteName: "ohaasa", URL: server.URL})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSelectorOverrides(t *testing.T) {
	t.Parallel()

	html := `
	<ol class="ranking">
	  <li>
	    <em class="rk">1</em>
	    <b class="nm">うお座</b>
	    <span class="tx">静かな一日。</span>
	  </li>
	</ol>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	sel := selectorsFromOptions(map[string]string{
		"listSelector": "ol.ranking > li",
		"rankSelector": ".rk",
		"nameSelector": ".nm",
		"textSelector": ".tx",
	})

	records := extractRecords(doc, sel)
	if len(records) != 1 || records[0].SignKey != "pisces" {
		t.Fatalf("selector overrides not applied: %+v", records)
	}
}
