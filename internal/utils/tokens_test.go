package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/tabletalk/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"words", "hello world", 4},
		{"long word", strings.Repeat("a", 4000), 1000},
		{"number", "13300000", 3},
		{"csv header", "price,area", 4},
		{"csv row", "13300000,7420,4\n", 8},
		{"spaces only", "   \n\t", 0},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got != c.want {
			t.Errorf("%s: CountTokens(%q) = %d, want %d", c.name, c.in, got, c.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 || n == 0 {
		t.Fatalf("tokens=%d, want 1..300", n)
	}
	if !strings.HasPrefix(text, trunc) {
		t.Fatal("truncation must be a prefix")
	}
	if got := utils.TruncateToTokenLimit("short", 10); got != "short" {
		t.Fatalf("short text should be untouched, got %q", got)
	}
	if got := utils.TruncateToTokenLimit("anything", 0); got != "" {
		t.Fatalf("zero limit should be empty, got %q", got)
	}
}

func TestTruncateKeepsWholeRows(t *testing.T) {
	table := strings.Repeat("13300000,7420,4\n", 50)
	trunc := utils.TruncateToTokenLimit(table, 40)
	if !strings.HasSuffix(trunc, "\n") {
		t.Fatalf("expected cut at a row boundary, got %q", trunc)
	}
	if n := utils.CountTokens(trunc); n > 40 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"a": "", "b": strings.Repeat("x", 40)})
	if got["a"] != 0 || got["b"] != 10 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
}
