package llm

import "strings"

// classifyStreamError turns a raw error from an eino ChatModel call into a
// StreamError. The eino provider adapters (claude, openai, ark) surface
// transport and API failures as plain errors rather than a typed
// hierarchy, so classification here is necessarily substring-based on the
// message text rather than a type switch; kept deliberately small and
// defaulting to Unknown (non-retryable) rather than guessing.
func classifyStreamError(rawType string, err error) *StreamError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	kind := ProviderErrUnknown
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		kind = ProviderErrRateLimitExceeded
	case strings.Contains(lower, "overloaded") || strings.Contains(lower, "529"):
		kind = ProviderErrOverloaded
	case strings.Contains(lower, "service unavailable") || strings.Contains(lower, "503"):
		kind = ProviderErrServiceUnavailable
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		kind = ProviderErrTimeout
	case strings.Contains(lower, "response") && strings.Contains(lower, "fail"):
		kind = ProviderErrResponseFailed
	}

	return &StreamError{
		Kind:         StreamErrProvider,
		ProviderKind: kind,
		RawType:      rawType,
		Message:      msg,
	}
}
