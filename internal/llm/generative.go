package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stupiduntilnot/reportchat/internal/model"
)

// generativeContent is the Gemini wire format. The key travels in the URL and
// only the new question is sent; history is not mapped.
type generativeContent struct{}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (generativeContent) endpoint(s model.Settings) string {
	base := strings.TrimRight(s.Endpoint(), "/")
	return fmt.Sprintf("%s/%s:generateContent?key=%s",
		base, url.PathEscape(s.ModelName), url.QueryEscape(s.APIKey))
}

func (generativeContent) buildRequest(ctx context.Context, target string, req model.Request) (*http.Request, error) {
	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: req.SystemPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: req.UserMessage}}}},
		GenerationConfig:  generationConfig{Temperature: 0.1, MaxOutputTokens: 800, TopP: 0.9},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func (generativeContent) parseResponse(body []byte) (string, error) {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse generate response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (generativeContent) classifyStatus(provider model.ProviderID, status int, body errorBody, target string) *BackendError {
	return classifyCommon(provider, status, body, target)
}
