package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Sign pairs a canonical key with the Japanese label scraped from the source
// page and the Korean display name shown by the frontend.
type Sign struct {
	Key string
	JP  string
	KO  string
}

// UnknownSignKey marks labels that could not be matched; such records are
// still carried through the pipeline for diagnostics.
const UnknownSignKey = "unknown"

// UnknownSignKO is the display name used for unmatched labels.
const UnknownSignKO = "알수없음"

// Signs lists the twelve zodiac signs in fixed order.
var Signs = [12]Sign{
	{Key: "aries", JP: "おひつじ座", KO: "양자리"},
	{Key: "taurus", JP: "おうし座", KO: "황소자리"},
	{Key: "gemini", JP: "ふたご座", KO: "쌍둥이자리"},
	{Key: "cancer", JP: "かに座", KO: "게자리"},
	{Key: "leo", JP: "しし座", KO: "사자자리"},
	{Key: "virgo", JP: "おとめ座", KO: "처녀자리"},
	{Key: "libra", JP: "てんびん座", KO: "천칭자리"},
	{Key: "scorpio", JP: "さそり座", KO: "전갈자리"},
	{Key: "sagittarius", JP: "いて座", KO: "사수자리"},
	{Key: "capricorn", JP: "やぎ座", KO: "염소자리"},
	{Key: "aquarius", JP: "みずがめ座", KO: "물병자리"},
	{Key: "pisces", JP: "うお座", KO: "물고기자리"},
}

var spaceExpr = regexp.MustCompile(`\s+`)

// SignFromLabel maps a scraped Japanese sign label to its canonical key.
// Exact match wins; substring matching covers minor label variations on the
// source page. Unmatched labels return UnknownSignKey, never an error.
func SignFromLabel(label string) string {
	s := spaceExpr.ReplaceAllString(label, "")
	if s == "" {
		return UnknownSignKey
	}
	for _, sign := range Signs {
		if sign.JP == s {
			return sign.Key
		}
	}
	for _, sign := range Signs {
		if strings.Contains(s, sign.JP) || strings.Contains(sign.JP, s) {
			return sign.Key
		}
	}
	return UnknownSignKey
}

// KoreanName resolves a sign key to its Korean display name.
func KoreanName(key string) string {
	for _, sign := range Signs {
		if sign.Key == key {
			return sign.KO
		}
	}
	return UnknownSignKO
}

// RankingRecord is one scraped entry of the daily ranking. Immutable after
// the fetch step.
type RankingRecord struct {
	Rank      int
	SignKey   string
	SignJP    string
	MessageJP string
}

// Scores holds the five per-category scores, each in [0,100]. The JSON field
// names are part of the frontend contract.
type Scores struct {
	Total  int `json:"total"`
	Love   int `json:"love"`
	Study  int `json:"study"`
	Money  int `json:"money"`
	Health int `json:"health"`
}

// DefaultScores returns the neutral placeholder used until detail-page score
// scraping is wired in.
func DefaultScores() Scores {
	return Scores{Total: 50, Love: 50, Study: 50, Money: 50, Health: 50}
}

// Card category labels, in the fixed order the frontend renders them.
const (
	CategoryOverall = "총운"
	CategoryLove    = "연애운"
	CategoryStudy   = "학업운"
	CategoryMoney   = "금전운"
	CategoryHealth  = "건강운"
)

// CardCategories lists the five card categories in canonical order.
var CardCategories = [5]string{
	CategoryOverall,
	CategoryLove,
	CategoryStudy,
	CategoryMoney,
	CategoryHealth,
}

// Card tones.
const (
	ToneRise   = "상승"
	ToneSteady = "안정"
	ToneFall   = "하락"
)

// Summary is the headline block of a bundle.
type Summary struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
	Tip      string `json:"tip"`
	Warning  string `json:"warning"`
}

// Card is one of the five per-category fortune cards.
type Card struct {
	Category string `json:"category"`
	Tone     string `json:"tone"`
	Score    int    `json:"score"`
	Comment  string `json:"comment"`
	Tip      string `json:"tip"`
	Warning  string `json:"warning"`
}

// LuckyPoints carries the short lucky metadata rendered in the mobile UI.
type LuckyPoints struct {
	ColorName string `json:"color_name"`
	ColorHex  string `json:"color_hex"`
	Number    int    `json:"number"`
	Item      string `json:"item"`
	Keyword   string `json:"keyword"`
}

// AIContent groups the generated sections of a bundle.
type AIContent struct {
	Summary     Summary     `json:"summary"`
	Cards       []Card      `json:"cards"`
	LuckyPoints LuckyPoints `json:"lucky_points"`
}

// ContentBundle is the enrichment output for one ranking record. Once cached
// under its key it is immutable for that key.
type ContentBundle struct {
	MessageKO string    `json:"message_ko"`
	AI        AIContent `json:"ai"`
}

// FallbackLuckyColor replaces malformed or missing lucky colors.
const FallbackLuckyColor = "#3FA7D6"

// FallbackLuckyNumber replaces non-numeric lucky numbers.
const FallbackLuckyNumber = 7

var hexExpr = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
var shortHexExpr = regexp.MustCompile(`^#[0-9A-Fa-f]{3}$`)

// NormalizeHex forces a color into 6-digit uppercase hex form. Short #RGB
// values are expanded; anything else becomes FallbackLuckyColor.
func NormalizeHex(color string) string {
	s := strings.TrimSpace(color)
	if hexExpr.MatchString(s) {
		return strings.ToUpper(s)
	}
	if shortHexExpr.MatchString(s) {
		r, g, b := s[1:2], s[2:3], s[3:4]
		return strings.ToUpper(fmt.Sprintf("#%s%s%s%s%s%s", r, r, g, g, b, b))
	}
	return FallbackLuckyColor
}

// ClampLuckyNumber forces a lucky number into [1,9].
func ClampLuckyNumber(n int) int {
	if n < 1 {
		return 1
	}
	if n > 9 {
		return 9
	}
	return n
}

// ScoreForCategory selects the input score backing a card category. The
// overall score is used for unrecognized categories.
func ScoreForCategory(s Scores, category string) int {
	switch category {
	case CategoryLove:
		return s.Love
	case CategoryStudy:
		return s.Study
	case CategoryMoney:
		return s.Money
	case CategoryHealth:
		return s.Health
	default:
		return s.Total
	}
}

// DefaultCard builds the safe placeholder card for a category.
func DefaultCard(category string, score int) Card {
	return Card{
		Category: category,
		Tone:     ToneSteady,
		Score:    score,
		Comment:  "콘텐츠를 준비하지 못했습니다.",
		Tip:      "잠시 후 다시 확인해 주세요.",
		Warning:  "",
	}
}

// FallbackBundle is the clearly-marked default bundle attached to a record
// whose enrichment failed. The native text is still published; card scores
// come from the input scores.
func FallbackBundle(scores Scores) ContentBundle {
	cards := make([]Card, 0, len(CardCategories))
	for _, cat := range CardCategories {
		cards = append(cards, DefaultCard(cat, ScoreForCategory(scores, cat)))
	}
	return ContentBundle{
		MessageKO: "",
		AI: AIContent{
			Summary: Summary{
				Headline: "오늘의 운세",
				Body:     "콘텐츠를 준비하지 못했습니다. 원문을 참고해 주세요.",
				Tip:      "",
				Warning:  "",
			},
			Cards: cards,
			LuckyPoints: LuckyPoints{
				ColorName: "하늘색",
				ColorHex:  FallbackLuckyColor,
				Number:    FallbackLuckyNumber,
				Item:      "-",
				Keyword:   "-",
			},
		},
	}
}

// CacheKey derives the stable enrichment cache key. Hashing the message text
// expires entries naturally when the source text changes within a day.
func CacheKey(dateKST, signKey, messageJP string) string {
	sum := sha1.Sum([]byte(messageJP))
	return fmt.Sprintf("%s:%s:%s", dateKST, signKey, hex.EncodeToString(sum[:]))
}
