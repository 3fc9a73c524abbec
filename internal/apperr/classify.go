package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/KaramelBytes/tabletalk/internal/ai"
)

// Hint carries runtime context used to phrase actionable messages.
type Hint struct {
	Provider string
	Model    string
}

// Classify maps runtime and context errors to a kinded *Error with a message
// that tells the user what to do next. Errors already classified pass through.
func Classify(err error, h Hint) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	var (
		unreach *ai.UnreachableError
		nfErr   *ai.ModelNotFoundError
		rlErr   *ai.RateLimitError
		authErr *ai.AuthError
		brErr   *ai.BadRequestError
		sErr    *ai.ServerError
		apiErr  *ai.APIError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "the model did not answer in time; try a shorter question or raise query_timeout_sec", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Message: "the request was canceled", Err: err}
	case errors.As(err, &unreach):
		if h.Provider == ai.ProviderOllama || h.Provider == ai.ProviderOpenAI {
			return &Error{Kind: KindModelUnreachable, Message: fmt.Sprintf("model service not reachable at %s; ensure Ollama is running and the host is correct", unreach.Host), Err: err}
		}
		return &Error{Kind: KindModelUnreachable, Message: "model service unreachable; check network and provider settings", Err: err}
	case errors.As(err, &nfErr):
		if h.Provider == ai.ProviderOllama || h.Provider == ai.ProviderOpenAI {
			return &Error{Kind: KindModelNotFound, Message: fmt.Sprintf("model %q is not available; install it with 'ollama pull %s' or choose another model", h.Model, h.Model), Err: err}
		}
		return &Error{Kind: KindModelNotFound, Message: fmt.Sprintf("model %q not found", h.Model), Err: err}
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return &Error{Kind: KindRateLimited, Message: fmt.Sprintf("rate limited, try again in ~%ds", int(rlErr.RetryAfter.Seconds())), Err: err}
		}
		return &Error{Kind: KindRateLimited, Message: "rate limited, please retry", Err: err}
	case errors.As(err, &authErr):
		return &Error{Kind: KindModelError, Message: "authentication with the model provider failed; check the configured API key", Err: err}
	case errors.As(err, &brErr):
		return &Error{Kind: KindModelError, Message: "the model service rejected the request (the dataset may be too large for the model context)", Err: err}
	case errors.As(err, &sErr):
		return &Error{Kind: KindModelError, Message: "the model service failed to answer", Err: err}
	case errors.As(err, &apiErr):
		return &Error{Kind: KindModelError, Message: "the model service returned an error", Err: err}
	}
	return &Error{Kind: KindInternal, Message: "unexpected error", Err: err}
}
