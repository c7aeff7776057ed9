package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stupiduntilnot/reportchat/internal/model"
)

// Kind classifies a BackendError.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNetwork         Kind = "network"
	KindUnauthorized    Kind = "unauthorized"
	KindPaymentRequired Kind = "payment_required"
	KindRateLimited     Kind = "rate_limited"
	KindNotFound        Kind = "not_found"
	KindHTTP            Kind = "http"
	KindResponse        Kind = "response"
)

// BackendError is returned by Adapter.Send. Message is safe to show to users.
type BackendError struct {
	Kind     Kind
	Provider model.ProviderID
	Status   int
	URL      string
	Message  string
	Err      error
}

func (e *BackendError) Error() string {
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// errorBody is the part of a backend error response we read. A body that
// cannot be decoded yields the zero value.
type errorBody struct {
	Message string
}

func decodeErrorBody(body []byte) errorBody {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return errorBody{}
	}
	switch e := raw["error"].(type) {
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			return errorBody{Message: m}
		}
	case string:
		return errorBody{Message: e}
	}
	if m, ok := raw["message"].(string); ok {
		return errorBody{Message: m}
	}
	return errorBody{}
}

// classifyCommon maps the status codes every backend shares.
func classifyCommon(provider model.ProviderID, status int, body errorBody, target string) *BackendError {
	e := &BackendError{Provider: provider, Status: status, URL: target}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = "Invalid or expired API key. Check the key in the settings."
	case http.StatusPaymentRequired:
		e.Kind = KindPaymentRequired
		e.Message = "Insufficient balance on the provider account."
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = "Rate limit reached. Wait a moment and try again."
	default:
		e.Kind = KindHTTP
		if body.Message != "" {
			e.Message = fmt.Sprintf("Backend error (%d): %s", status, body.Message)
		} else {
			e.Message = fmt.Sprintf("Request failed with status %d.", status)
		}
	}
	return e
}

func networkError(provider model.ProviderID, target, apiKey string, err error) *BackendError {
	safe := redactURL(target)
	cause := err.Error()
	if apiKey != "" {
		cause = strings.ReplaceAll(cause, url.QueryEscape(apiKey), "REDACTED")
		cause = strings.ReplaceAll(cause, apiKey, "REDACTED")
	}
	return &BackendError{
		Kind:     KindNetwork,
		Provider: provider,
		URL:      safe,
		Message:  fmt.Sprintf("Could not reach %s: %s", safe, cause),
		Err:      err,
	}
}

// redactURL hides the key query parameter some backends carry in the URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("key") {
		return raw
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
