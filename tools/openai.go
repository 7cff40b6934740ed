package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSystemPrompt = "אתה בוט וואטסאפ עוזר, מנומס וענייני. ענה בעברית ובקצרה."

// AIResponder answers free-text messages of subscribed users through the OpenAI Responses API.
type AIResponder struct {
	ApiKey       string
	Model        string
	SystemPrompt string
	BaseURL      string // default https://api.openai.com
	HTTPClient   *http.Client
}

// Reply returns the assistant text for userText.
func (a AIResponder) Reply(ctx context.Context, _ string, userText string) (string, error) {
	apiKey := strings.TrimSpace(a.ApiKey)
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := a.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}
	systemPrompt := a.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	base := strings.TrimRight(a.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}

	reqBody := map[string]any{
		"model":        model,
		"instructions": systemPrompt,
		"input":        userText,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/responses", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(c.Text)
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}
	return out, nil
}
