package api

import (
	"encoding/json"
	"time"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/store"
)

type CreatePresentationRequest struct {
	Name   string `json:"name" binding:"required"`
	Topic  string `json:"topic" binding:"required"`
	Author string `json:"author"`
}

type UpdateTopicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type ManualResearchRequest struct {
	Content string      `json:"content" binding:"required"`
	Links   []deck.Link `json:"links"`
}

type StepStatusResponse struct {
	Step         string          `json:"step"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type PresentationResponse struct {
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	Topic     string               `json:"topic"`
	Author    string               `json:"author,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Steps     []StepStatusResponse `json:"steps,omitempty"`
}

type RunStepResponse struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func presentationDTO(p *store.Presentation, steps []*store.StepRecord) PresentationResponse {
	resp := PresentationResponse{
		ID:        p.ID,
		Name:      p.Name,
		Topic:     p.Topic,
		Author:    p.Author,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, rec := range steps {
		resp.Steps = append(resp.Steps, stepDTO(rec))
	}
	return resp
}

func stepDTO(rec *store.StepRecord) StepStatusResponse {
	return StepStatusResponse{
		Step:         string(rec.Step),
		Status:       string(rec.Status),
		Result:       json.RawMessage(rec.Result),
		ErrorMessage: rec.ErrorMessage,
		UpdatedAt:    rec.UpdatedAt,
	}
}
