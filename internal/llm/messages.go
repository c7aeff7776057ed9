package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/model"
)

const anthropicVersion = "2023-06-01"

// messages is the Anthropic wire format: the system prompt travels in its
// own field and the message list holds only user/assistant turns.
type messages struct{}

type messagesRequest struct {
	Model     string           `json:"model"`
	System    string           `json:"system"`
	Messages  []ctxpkg.Message `json:"messages"`
	MaxTokens int              `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (messages) endpoint(s model.Settings) string {
	return s.Endpoint()
}

func (messages) buildRequest(ctx context.Context, target string, req model.Request) (*http.Request, error) {
	assembler := &ctxpkg.TurnAssembler{}
	turns := assembler.Assemble(req.SystemPrompt, req.History, req.UserMessage)

	payload, err := json.Marshal(messagesRequest{
		Model:     req.Settings.ModelName,
		System:    req.SystemPrompt,
		Messages:  turns,
		MaxTokens: 1500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.Settings.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	return httpReq, nil
}

func (messages) parseResponse(body []byte) (string, error) {
	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse messages response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", nil
	}
	return parsed.Content[0].Text, nil
}

func (messages) classifyStatus(provider model.ProviderID, status int, body errorBody, target string) *BackendError {
	return classifyCommon(provider, status, body, target)
}
