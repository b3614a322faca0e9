// Package images generates slide illustrations through the Gemini image
// API.
package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/markoub/power-it-sub001/internal/infra/httpclient"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

type Service struct {
	apiKey     string
	model      string
	httpClient *httpclient.Client
	logger     *logger.Logger
}

func New(apiKey, model string, client *httpclient.Client, log *logger.Logger) *Service {
	return &Service{
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
		logger:     log,
	}
}

// GenerateImage produces one illustration for a prompt. sizeHint describes
// the intended placement ("full", "logo", ...) and shapes the style
// instructions only; the API picks the actual dimensions.
func (s *Service) GenerateImage(ctx context.Context, prompt, sizeHint string) ([]byte, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": buildImagePrompt(prompt, sizeHint)},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		s.model, s.apiKey)

	respBody, status, err := s.httpClient.PostJSONBytes(ctx, url, bodyBytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeImageGenAPI, "image generation API request failed")
	}
	if status != http.StatusOK {
		s.logger.Error("image gen API error", "status", status, "body", string(respBody))
		return nil, errors.Newf(errors.ErrCodeImageGenAPI, "image generation API returned %d", status)
	}

	return parseImageResponse(respBody)
}

func buildImagePrompt(prompt, sizeHint string) string {
	return fmt.Sprintf(`Generate a high-quality illustration for a PowerPoint slide.

Requirements:
- Aspect ratio: 16:9
- Placement: %s
- Professional, clean, high contrast
- NO text, letters, words, or numbers in the image
- Abstract, artistic interpretation suitable for a business presentation

Description: %s`, sizeHint, prompt)
}

func parseImageResponse(body []byte) ([]byte, error) {
	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text,omitempty"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData,omitempty"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeImageGenAPI, "failed to parse image gen response")
	}
	if len(response.Candidates) == 0 {
		return nil, errors.New(errors.ErrCodeImageGenAPI, "empty response from image generation")
	}

	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			imageBytes, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeImageGenAPI, "failed to decode image data")
			}
			return imageBytes, nil
		}
	}

	return nil, errors.New(errors.ErrCodeImageGenAPI, "no image in response")
}
