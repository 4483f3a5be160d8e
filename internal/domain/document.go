package domain

import (
	"fmt"
	"regexp"
)

// Status reports the overall outcome of a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// RankingCount is the fixed number of entries a publishable document carries.
const RankingCount = 12

// Ranking is one merged entry of the output document. Field names are a
// compatibility contract with the frontend and must not change.
type Ranking struct {
	Rank      int       `json:"rank"`
	SignKey   string    `json:"sign_key"`
	SignJP    string    `json:"sign_jp"`
	SignKO    string    `json:"sign_ko"`
	MessageJP string    `json:"message_jp"`
	MessageKO string    `json:"message_ko"`
	Scores    Scores    `json:"scores"`
	AI        AIContent `json:"ai"`
}

// OutputDocument is the top-level JSON document consumed by the frontend.
type OutputDocument struct {
	Source       string    `json:"source"`
	DateKST      string    `json:"date_kst"`
	UpdatedAtKST string    `json:"updated_at_kst"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message"`
	Rankings     []Ranking `json:"rankings"`
}

var dateExpr = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var normalizedHexExpr = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// Validate enforces the structural invariants of a document about to be
// written. A failure here is a programming error upstream; the caller must
// abort the write and fail the run.
func (d OutputDocument) Validate() error {
	var problems []string

	if !dateExpr.MatchString(d.DateKST) {
		problems = append(problems, fmt.Sprintf("invalid date_kst %q", d.DateKST))
	}

	switch d.Status {
	case StatusOK, StatusPartial:
		problems = append(problems, d.validateRankings()...)
	case StatusError:
		if len(d.Rankings) != 0 {
			problems = append(problems, fmt.Sprintf("error document carries %d rankings", len(d.Rankings)))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown status %q", d.Status))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (d OutputDocument) validateRankings() []string {
	var problems []string

	if len(d.Rankings) != RankingCount {
		problems = append(problems, fmt.Sprintf("rankings length %d, want %d", len(d.Rankings), RankingCount))
	}

	seen := map[int]bool{}
	prev := 0
	for i, r := range d.Rankings {
		if r.Rank < 1 || r.Rank > RankingCount {
			problems = append(problems, fmt.Sprintf("rank %d out of range at index %d", r.Rank, i))
			continue
		}
		if seen[r.Rank] {
			problems = append(problems, fmt.Sprintf("duplicate rank %d", r.Rank))
		}
		seen[r.Rank] = true
		if r.Rank < prev {
			problems = append(problems, "rankings not sorted by rank")
		}
		prev = r.Rank

		problems = append(problems, validateScores(r.Rank, r.Scores)...)
		problems = append(problems, validateAI(r.Rank, r.AI)...)
	}

	if len(d.Rankings) == RankingCount && len(seen) != RankingCount {
		problems = append(problems, "ranks are not exactly 1..12")
	}

	return problems
}

func validateScores(rank int, s Scores) []string {
	var problems []string
	fields := map[string]int{
		"total":  s.Total,
		"love":   s.Love,
		"study":  s.Study,
		"money":  s.Money,
		"health": s.Health,
	}
	for name, v := range fields {
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Sprintf("score %s=%d out of range at rank %d", name, v, rank))
		}
	}
	return problems
}

func validateAI(rank int, ai AIContent) []string {
	var problems []string

	if len(ai.Cards) != len(CardCategories) {
		problems = append(problems, fmt.Sprintf("rank %d has %d cards, want %d", rank, len(ai.Cards), len(CardCategories)))
	}
	for _, card := range ai.Cards {
		if card.Score < 0 || card.Score > 100 {
			problems = append(problems, fmt.Sprintf("card %s score %d out of range at rank %d", card.Category, card.Score, rank))
		}
	}

	if !normalizedHexExpr.MatchString(ai.LuckyPoints.ColorHex) {
		problems = append(problems, fmt.Sprintf("rank %d lucky color %q not normalized", rank, ai.LuckyPoints.ColorHex))
	}
	if n := ai.LuckyPoints.Number; n < 1 || n > 9 {
		problems = append(problems, fmt.Sprintf("rank %d lucky number %d out of range", rank, n))
	}

	return problems
}
