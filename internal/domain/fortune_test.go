package domain

import (
	"strings"
	"testing"
)

func TestSignFromLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		want  string
	}{
		{"おひつじ座", "aries"},
		{" おひつじ座 ", "aries"},
		{"おひつじ\n座", "aries"},
		{"うお座", "pisces"},
		{"今日のてんびん座", "libra"},
		{"かに", "cancer"},
		{"ペガスス座", UnknownSignKey},
		{"", UnknownSignKey},
	}

	for _, tc := range cases {
		if got := SignFromLabel(tc.label); got != tc.want {
			t.Fatalf("SignFromLabel(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestKoreanName(t *testing.T) {
	t.Parallel()

	if got := KoreanName("aries"); got != "양자리" {
		t.Fatalf("unexpected name: %s", got)
	}
	if got := KoreanName(UnknownSignKey); got != UnknownSignKO {
		t.Fatalf("unexpected unknown name: %s", got)
	}
}

func TestNormalizeHex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"#a1b2c3", "#A1B2C3"},
		{" #A1B2C3 ", "#A1B2C3"},
		{"#abc", "#AABBCC"},
		{"#ABCD", FallbackLuckyColor},
		{"red", FallbackLuckyColor},
		{"", FallbackLuckyColor},
		{"#GGGGGG", FallbackLuckyColor},
	}

	for _, tc := range cases {
		if got := NormalizeHex(tc.in); got != tc.want {
			t.Fatalf("NormalizeHex(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClampLuckyNumber(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want int }{
		{0, 1}, {-3, 1}, {1, 1}, {5, 5}, {9, 9}, {10, 9}, {100, 9},
	}
	for _, tc := range cases {
		if got := ClampLuckyNumber(tc.in); got != tc.want {
			t.Fatalf("ClampLuckyNumber(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := CacheKey("2026-08-25", "aries", "いい一日になりそう")
	b := CacheKey("2026-08-25", "aries", "いい一日になりそう")
	if a != b {
		t.Fatalf("cache key not stable: %s vs %s", a, b)
	}

	c := CacheKey("2026-08-25", "aries", "別のメッセージ")
	if a == c {
		t.Fatalf("cache key ignores message text")
	}

	if !strings.HasPrefix(a, "2026-08-25:aries:") {
		t.Fatalf("unexpected key format: %s", a)
	}
}

func TestFallbackBundle(t *testing.T) {
	t.Parallel()

	scores := Scores{Total: 10, Love: 20, Study: 30, Money: 40, Health: 50}
	bundle := FallbackBundle(scores)

	if len(bundle.AI.Cards) != len(CardCategories) {
		t.Fatalf("expected %d cards, got %d", len(CardCategories), len(bundle.AI.Cards))
	}
	for i, card := range bundle.AI.Cards {
		if card.Category != CardCategories[i] {
			t.Fatalf("card %d category %q, want %q", i, card.Category, CardCategories[i])
		}
		if want := ScoreForCategory(scores, card.Category); card.Score != want {
			t.Fatalf("card %s score %d, want %d", card.Category, card.Score, want)
		}
	}
	if bundle.AI.LuckyPoints.ColorHex != FallbackLuckyColor {
		t.Fatalf("unexpected fallback color: %s", bundle.AI.LuckyPoints.ColorHex)
	}
	if n := bundle.AI.LuckyPoints.Number; n < 1 || n > 9 {
		t.Fatalf("fallback lucky number out of range: %d", n)
	}
}
