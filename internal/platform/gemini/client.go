package gemini

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"hashrecipe/internal/logging"
	"hashrecipe/internal/retrieval"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// Client is a client for the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ retrieval.Describer = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: client.GenerativeModel(model)}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Describe asks Gemini for comma-separated keywords describing the dish in
// the image, written in lang. Images without food yield an empty caption.
func (c *Client) Describe(ctx context.Context, img retrieval.ImageRef, lang string) (string, error) {
	prompt := []genai.Part{
		genai.ImageData(imageFormat(img.Name), img.Data),
		genai.Text(Prompt(lang)),
	}

	resp, err := c.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	caption, food := ParseCaption(string(text))
	if !food {
		logging.Debug().Str("response", string(text)).Msg("gemini: image does not contain food")
	}
	return caption, nil
}

// Prompt builds the keyword prompt for lang.
func Prompt(lang string) string {
	return fmt.Sprintf("Analyze the provided image. If it contains food, respond only with up to 8 short comma-separated keywords "+
		"naming the dish, its main ingredients, cuisine and flavour, written in %s. "+
		"If not, respond with 'NO' followed by a 5-word description of the image content.", languageName(lang))
}

// ParseCaption strips markdown and reports whether the model saw food.
func ParseCaption(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	if lower == "no" || strings.HasPrefix(lower, "no ") || strings.HasPrefix(lower, "no,") || strings.HasPrefix(lower, "no.") {
		return "", false
	}
	return text, true
}

func languageName(lang string) string {
	if strings.HasPrefix(lang, "zh") {
		return "Simplified Chinese"
	}
	return "English"
}

func imageFormat(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	}
	return "png"
}
