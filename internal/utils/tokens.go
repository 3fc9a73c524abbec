package utils

import (
	"strings"
	"unicode"
)

// Token estimates tuned for tabular prompts. Words cost about one token per
// four letters, numbers one per three digits (llama-family tokenizers split
// long numbers into short chunks), and every delimiter or symbol costs one.
// Whitespace is free.

type runKind uint8

const (
	runNone runKind = iota
	runLetters
	runDigits
)

type tokenCounter struct {
	done int
	kind runKind
	n    int
}

func runCost(kind runKind, n int) int {
	switch kind {
	case runLetters:
		return (n + 3) / 4
	case runDigits:
		return (n + 2) / 3
	}
	return 0
}

func (c *tokenCounter) add(r rune) {
	var k runKind
	switch {
	case unicode.IsLetter(r) || r == '_':
		k = runLetters
	case unicode.IsDigit(r):
		k = runDigits
	}
	if k != c.kind {
		c.done += runCost(c.kind, c.n)
		c.kind, c.n = k, 0
	}
	switch {
	case k != runNone:
		c.n++
	case !unicode.IsSpace(r):
		c.done++
	}
}

func (c *tokenCounter) total() int { return c.done + runCost(c.kind, c.n) }

// CountTokens estimates the number of tokens in text.
func CountTokens(text string) int {
	var c tokenCounter
	for _, r := range text {
		c.add(r)
	}
	return c.total()
}

// TruncateToTokenLimit returns the longest prefix of text whose estimate stays
// within limit, cut back to a line break when one falls in the second half.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	var c tokenCounter
	for i, r := range text {
		c.add(r)
		if c.total() <= limit {
			continue
		}
		cut := text[:i]
		if nl := strings.LastIndexByte(cut, '\n'); nl >= len(cut)/2 {
			cut = cut[:nl+1]
		}
		return cut
	}
	return text
}

// TokenBreakdown estimates each labeled prompt section.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
