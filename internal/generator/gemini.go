package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// infoSchema constrains the model output to the two fields of Info.
var infoSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description": {
			Type:        genai.TypeString,
			Description: "A concise technical description of the chemical.",
		},
		"safetyInfo": {
			Type:        genai.TypeString,
			Description: "Key safety information and handling precautions, formatted as a single string with bullet points starting with '* '.",
		},
	},
	Required: []string{"description", "safetyInfo"},
}

func prompt(identifier string) string {
	return fmt.Sprintf("Generate a concise technical description and key safety information for the chemical: %q. "+
		"The safety information should be a single string with bullet points denoted by '* '.", identifier)
}

func newGeminiClient(cfg Config) (*genai.Client, error) {
	return genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: "v1beta",
		},
	})
}

func (g *Generator) call(ctx context.Context, text string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   infoSchema,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: status=%d %s", ErrBadStatus, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	s := strings.TrimSpace(resp.Text())
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}

// parseInfo decodes the model's JSON text, requiring both schema fields.
func parseInfo(text string) (Info, error) {
	var raw struct {
		Description *string `json:"description"`
		SafetyInfo  *string `json:"safetyInfo"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if raw.Description == nil || raw.SafetyInfo == nil {
		return Info{}, fmt.Errorf("%w: missing required field", ErrBadPayload)
	}
	return Info{Description: *raw.Description, SafetyInfo: *raw.SafetyInfo}, nil
}
