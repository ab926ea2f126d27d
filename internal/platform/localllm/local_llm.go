package localllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"hashrecipe/internal/logging"
	"hashrecipe/internal/retrieval"
)

const (
	DefaultURL   = "http://localhost:1234/v1/chat/completions"
	DefaultModel = "gemma-3-12b-it:2"
)

// Client represents a client for an OpenAI-compatible local vision model.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
}

var _ retrieval.Describer = (*Client)(nil)

// NewClient creates a new client for the local LLM. Empty arguments fall
// back to the defaults.
func NewClient(apiURL, model string) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     apiURL,
		model:      model,
	}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends a prompt with an inline image and returns the
// model's reply.
func (c *Client) GenerateContent(ctx context.Context, text string, img retrieval.ImageRef) (string, error) {
	reqBody := Request{
		Model: c.model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					{
						Type: "text",
						Text: text,
					},
					{
						Type: "image_url",
						ImageURL: &ImageURL{
							URL: dataURL(img),
						},
					},
				},
			},
		},
		Temperature: 0.2,
		MaxTokens:   256,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) == 0 {
		return "", fmt.Errorf("no content found in response")
	}
	return llmResp.Choices[0].Message.Content, nil
}

// Describe asks the model for keywords describing the dish in the image.
// Images without food yield an empty caption.
func (c *Client) Describe(ctx context.Context, img retrieval.ImageRef, lang string) (string, error) {
	responseText, err := c.GenerateContent(ctx, prompt(lang), img)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	cleaned := strings.TrimSpace(responseText)
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) >= 2 && strings.EqualFold(cleaned[:2], "no") && (len(cleaned) == 2 || !isLetter(cleaned[2])) {
		logging.Debug().Str("response", cleaned).Msg("local llm: image does not contain food")
		return "", nil
	}
	return cleaned, nil
}

func prompt(lang string) string {
	language := "English"
	if strings.HasPrefix(lang, "zh") {
		language = "Simplified Chinese"
	}
	return "Analyze the provided image. If it contains food, respond only with up to 8 short comma-separated keywords " +
		"naming the dish, its main ingredients, cuisine and flavour, written in " + language + ". " +
		"If not, respond with 'NO' followed by a 5-word description of the image content."
}

func dataURL(img retrieval.ImageRef) string {
	mime := "image/png"
	switch strings.ToLower(filepath.Ext(img.Name)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
