// Package llm sends questions to the supported LLM backends.
//
// Every backend family is a wireFormat that builds the HTTP request, parses
// the answer and classifies error statuses. Issuing the request and checking
// the status are shared by all of them.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stupiduntilnot/reportchat/internal/model"
)

// DefaultTimeout bounds one backend call.
const DefaultTimeout = 60 * time.Second

const emptyAnswer = "(empty model response)"

type wireFormat interface {
	endpoint(s model.Settings) string
	buildRequest(ctx context.Context, target string, req model.Request) (*http.Request, error)
	parseResponse(body []byte) (string, error)
	classifyStatus(provider model.ProviderID, status int, body errorBody, target string) *BackendError
}

// Adapter dispatches requests to the wire format of the selected provider.
type Adapter struct {
	httpClient *http.Client
	formats    map[model.ProviderID]wireFormat
	log        logrus.FieldLogger
}

// NewAdapter creates an Adapter with the five catalog providers.
func NewAdapter(timeout time.Duration, log logrus.FieldLogger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		formats: map[model.ProviderID]wireFormat{
			model.ProviderOpenAI:    chatCompletions{},
			model.ProviderDeepSeek:  chatCompletions{},
			model.ProviderAnthropic: messages{},
			model.ProviderGemini:    generativeContent{},
			model.ProviderCustom:    chatCompletions{custom: true},
		},
		log: log,
	}
}

// Send asks the configured backend and returns the answer text. Failures are
// returned as *BackendError.
func (a *Adapter) Send(ctx context.Context, req model.Request) (string, error) {
	provider := req.Settings.LLMProvider
	if err := req.Settings.Validate(); err != nil {
		return "", &BackendError{Kind: KindValidation, Provider: provider, Message: err.Error(), Err: err}
	}
	wf, ok := a.formats[provider]
	if !ok {
		err := fmt.Errorf("%w: %q", model.ErrUnknownProvider, provider)
		return "", &BackendError{Kind: KindValidation, Provider: provider, Message: err.Error(), Err: err}
	}

	target := wf.endpoint(req.Settings)
	safeTarget := redactURL(target)
	log := a.log.WithFields(logrus.Fields{
		"provider": provider,
		"model":    req.Settings.ModelName,
		"url":      safeTarget,
		"history":  len(req.History),
	})

	httpReq, err := wf.buildRequest(ctx, target, req)
	if err != nil {
		return "", &BackendError{
			Kind:     KindValidation,
			Provider: provider,
			URL:      safeTarget,
			Message:  fmt.Sprintf("Could not build request for %s: %v", safeTarget, err),
			Err:      err,
		}
	}

	started := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		be := networkError(provider, target, req.Settings.APIKey, err)
		log.WithField(logrus.ErrorKey, be.Message).Warn("backend request failed")
		return "", be
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		be := networkError(provider, target, req.Settings.APIKey, err)
		log.WithField(logrus.ErrorKey, be.Message).Warn("failed reading backend response")
		return "", be
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started).Round(time.Millisecond)})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("body", truncate(string(body), 400)).Warn("backend returned non-success status")
		return "", wf.classifyStatus(provider, resp.StatusCode, decodeErrorBody(body), safeTarget)
	}

	text, err := wf.parseResponse(body)
	if err != nil {
		log.WithError(err).WithField("body", truncate(string(body), 400)).Warn("unexpected backend response")
		return "", &BackendError{
			Kind:     KindResponse,
			Provider: provider,
			Status:   resp.StatusCode,
			URL:      safeTarget,
			Message:  "The backend returned a response that could not be read.",
			Err:      err,
		}
	}
	log.Debug("backend answered")

	text = strings.TrimSpace(text)
	if text == "" {
		return emptyAnswer, nil
	}
	return text, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
