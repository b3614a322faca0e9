// Package content generates research text and slide decks through the
// Gemini text API.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/markoub/power-it-sub001/internal/deck"
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

// GenerateResearch produces the research payload for a topic.
func (s *Service) GenerateResearch(ctx context.Context, topic string) (*deck.Research, error) {
	text, err := s.generate(ctx, buildResearchPrompt(topic))
	if err != nil {
		return nil, err
	}

	var research deck.Research
	if err := json.Unmarshal([]byte(text), &research); err != nil {
		s.logger.Error("failed to parse research payload", "text", text, "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeContentAPI, "failed to parse research JSON")
	}
	if research.Content == "" {
		return nil, errors.New(errors.ErrCodeContentAPI, "research response has no content")
	}
	return &research, nil
}

// GenerateSlides turns research into a typed slide deck of roughly
// targetCount slides. The response may arrive in the legacy flat slide
// shape; normalization pins both forms to the catalog before validation.
func (s *Service) GenerateSlides(ctx context.Context, research *deck.Research, targetCount int, author string) (*deck.SlideDeck, error) {
	text, err := s.generate(ctx, buildSlidesPrompt(research.Content, targetCount, author))
	if err != nil {
		return nil, err
	}

	var raw struct {
		Title  string           `json:"title"`
		Author string           `json:"author"`
		Slides []map[string]any `json:"slides"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		s.logger.Error("failed to parse slides payload", "text", text, "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeContentAPI, "failed to parse slides JSON")
	}

	d := &deck.SlideDeck{
		Title:  raw.Title,
		Author: raw.Author,
		Slides: deck.NormalizeSlides(raw.Slides),
	}
	if d.Author == "" {
		d.Author = author
	}
	if len(d.Slides) == 0 {
		return nil, errors.New(errors.ErrCodeContentAPI, "slides response has no slides")
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeContentAPI, "generated deck failed validation")
	}
	return d, nil
}

// generate runs one text completion and returns the model's JSON text with
// any code fences stripped.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.7,
			"maxOutputTokens":  8192,
			"responseMimeType": "application/json",
		},
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		s.model, s.apiKey)

	respBody, status, err := s.httpClient.PostJSONBytes(ctx, url, bodyBytes)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeContentAPI, "content API request failed")
	}
	if status != http.StatusOK {
		s.logger.Error("content API error", "status", status, "body", string(respBody))
		return "", errors.Newf(errors.ErrCodeContentAPI, "content API returned %d", status)
	}

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeContentAPI, "failed to parse content API response")
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.ErrCodeContentAPI, "empty response from content API")
	}

	text := response.Candidates[0].Content.Parts[0].Text
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), nil
}

func buildResearchPrompt(topic string) string {
	return fmt.Sprintf(`You are a presentation research assistant. Research the topic below and output JSON:
{
  "content": "thorough research notes in markdown, organized by theme",
  "links": [{"href": "https://...", "title": "source title"}]
}
Cover the key facts, context and notable viewpoints. Keep content factual and citable.
Topic: %s
Output must be valid JSON.`, topic)
}

func buildSlidesPrompt(research string, targetCount int, author string) string {
	return fmt.Sprintf(`You are a presentation designer. Turn the research below into a slide deck of about %d slides. Output JSON:
{
  "title": "deck title",
  "author": "%s",
  "slides": [{"type": "...", "fields": {...}}]
}
Slide types and their fields:
- welcome: title, subtitle, author
- tableofcontents: sections (list of section titles)
- section: title, number
- content: title, content (list of bullet strings; **bold** and *italic* markers allowed)
- contentimage: title, content, image (boolean: true to generate an illustration)
- contentwithlogos: title, content, logo1, logo2, logo3 (booleans)
- imagefull: title, image (boolean), explanation
- thankyou: title, subtitle
Rules: start with one welcome slide, then a tableofcontents slide listing the sections, then a section slide before each group of content slides, and end with a thankyou slide. Image-named fields must be booleans, never text.
Research:
%s
Output must be valid JSON.`, targetCount, author, research)
}
