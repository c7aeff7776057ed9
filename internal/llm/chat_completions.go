package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/model"
)

const chatCompletionsSuffix = "/chat/completions"

// chatCompletions is the OpenAI-style wire format, shared by OpenAI,
// DeepSeek and custom self-hosted endpoints.
type chatCompletions struct {
	custom bool
}

type chatRequest struct {
	Model            string           `json:"model"`
	Messages         []ctxpkg.Message `json:"messages"`
	Temperature      float64          `json:"temperature"`
	MaxTokens        int              `json:"max_tokens"`
	TopP             float64          `json:"top_p"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (f chatCompletions) endpoint(s model.Settings) string {
	if f.custom {
		return NormalizeCustomEndpoint(s.APIEndpoint)
	}
	return s.Endpoint()
}

// NormalizeCustomEndpoint strips trailing slashes and appends
// /chat/completions unless already present.
func NormalizeCustomEndpoint(endpoint string) string {
	e := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.HasSuffix(e, chatCompletionsSuffix) {
		e += chatCompletionsSuffix
	}
	return e
}

func (f chatCompletions) buildRequest(ctx context.Context, target string, req model.Request) (*http.Request, error) {
	assembler := &ctxpkg.StandardAssembler{}
	reqBody := chatRequest{
		Model:            req.Settings.ModelName,
		Messages:         assembler.Assemble(req.SystemPrompt, req.History, req.UserMessage),
		Temperature:      0.1,
		MaxTokens:        800,
		TopP:             0.9,
		FrequencyPenalty: 0.3,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Settings.APIKey)
	return httpReq, nil
}

func (f chatCompletions) parseResponse(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

func (f chatCompletions) classifyStatus(provider model.ProviderID, status int, body errorBody, target string) *BackendError {
	if f.custom && status == http.StatusNotFound {
		return &BackendError{
			Kind:     KindNotFound,
			Provider: provider,
			Status:   status,
			URL:      target,
			Message:  fmt.Sprintf("Endpoint not found: %s. Check the API endpoint in the settings.", target),
		}
	}
	return classifyCommon(provider, status, body, target)
}
