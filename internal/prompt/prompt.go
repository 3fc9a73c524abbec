// Package prompt turns a table and a question into chat messages for the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/utils"
)

// DefaultMaxRows is the number of rows embedded before the table is truncated.
const DefaultMaxRows = 500

const roleInstruction = "You are an expert advisor. Below is a dataset loaded from a tabular file " +
	"and rendered as a text table. Use it to answer the question that follows."

const answerInstruction = "Answer the question based on that data. " +
	"The response must answer the question and be to the point."

// Policy bounds the size of a prompt.
type Policy struct {
	// MaxRows embeds at most this many rows; 0 embeds all of them.
	MaxRows int
	// MaxTokens rejects prompts estimated above this size; 0 disables the check.
	MaxTokens int
}

// Builder assembles prompts under a Policy.
type Builder struct {
	Policy Policy
}

// NewBuilder returns a builder with the given policy.
func NewBuilder(p Policy) *Builder { return &Builder{Policy: p} }

// Prompt is the assembled system and user message pair.
type Prompt struct {
	System string
	User   string

	Truncated       bool
	RowsIncluded    int
	RowsTotal       int
	EstimatedTokens int
	// Sections maps section names to their estimated token counts.
	Sections map[string]int
}

// Messages returns the prompt as chat messages.
func (p *Prompt) Messages() []ai.Message {
	return []ai.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

// Build embeds the table and the literal query. The query is not validated;
// an empty query produces a prompt with an empty question.
func (b *Builder) Build(t *dataset.Table, query string) (*Prompt, error) {
	if t == nil {
		return nil, apperr.New(apperr.KindDatasetLoad, "no data available")
	}
	total := t.Len()
	shown := t
	truncated := false
	if b.Policy.MaxRows > 0 && total > b.Policy.MaxRows {
		shown = t.Head(b.Policy.MaxRows)
		truncated = true
	}

	table := shown.Text()
	var summary string
	if truncated {
		summary = fmt.Sprintf("[NOTE]\nOnly the first %d of %d rows are shown above; %d rows were omitted. "+
			"The summary below is computed over all %d rows; use it for totals, averages and extremes.\n\n%s",
			shown.Len(), total, total-shown.Len(), total, t.Profile().Markdown())
	}

	var sb strings.Builder
	sb.WriteString(roleInstruction)
	sb.WriteString("\n\n[DATASET")
	if t.Name() != "" {
		sb.WriteString(": ")
		sb.WriteString(t.Name())
	}
	sb.WriteString("]\n")
	sb.WriteString(table)
	sb.WriteString("\n")
	if summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	sb.WriteString("[QUESTION]\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString(answerInstruction)

	p := &Prompt{
		System:       sb.String(),
		User:         query,
		Truncated:    truncated,
		RowsIncluded: shown.Len(),
		RowsTotal:    total,
		Sections: utils.TokenBreakdown(map[string]string{
			"instructions": roleInstruction + answerInstruction,
			"table":        table,
			"summary":      summary,
			"question":     query,
		}),
	}
	p.EstimatedTokens = utils.CountTokens(p.System) + utils.CountTokens(p.User)

	if b.Policy.MaxTokens > 0 && p.EstimatedTokens > b.Policy.MaxTokens {
		return nil, apperr.New(apperr.KindPromptTooLarge,
			"the prompt needs about %d tokens but the limit is %d; lower prompt_max_rows (now %d) or use a model with a larger context",
			p.EstimatedTokens, b.Policy.MaxTokens, b.Policy.MaxRows)
	}
	return p, nil
}
