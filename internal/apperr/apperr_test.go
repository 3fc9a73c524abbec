package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/ai"
)

func TestKindOfAndMessage(t *testing.T) {
	err := New(KindColumnMissing, "column %q not found", "sqft")
	wrapped := fmt.Errorf("plot: %w", err)
	if got := KindOf(wrapped); got != KindColumnMissing {
		t.Fatalf("KindOf = %s", got)
	}
	if got := Message(wrapped); got != `column "sqft" not found` {
		t.Fatalf("Message = %q", got)
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors should be internal")
	}
	if Wrap(nil, KindInternal, "x") != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}

func TestClassify(t *testing.T) {
	h := Hint{Provider: ai.ProviderOllama, Model: "llama3.2"}
	cases := []struct {
		name string
		in   error
		kind Kind
		want string
	}{
		{"timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout, "in time"},
		{"canceled", context.Canceled, KindCanceled, "canceled"},
		{"unreachable", &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, KindModelUnreachable, "127.0.0.1:11434"},
		{"not found", &ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}, KindModelNotFound, "ollama pull llama3.2"},
		{"rate", &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}, RetryAfter: 2 * time.Second}, KindRateLimited, "~2s"},
		{"server", &ai.ServerError{APIError: &ai.APIError{StatusCode: 500}}, KindModelError, "failed"},
		{"other", errors.New("boom"), KindInternal, "unexpected"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.in, h)
			if KindOf(got) != c.kind {
				t.Fatalf("kind = %s, want %s", KindOf(got), c.kind)
			}
			if !strings.Contains(Message(got), c.want) {
				t.Fatalf("message %q missing %q", Message(got), c.want)
			}
			if !errors.Is(got, c.in) {
				t.Fatalf("classified error must wrap the original")
			}
		})
	}
}

func TestClassifyPassesThroughKinded(t *testing.T) {
	orig := New(KindPromptTooLarge, "too big")
	if got := Classify(orig, Hint{}); got != error(orig) {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
