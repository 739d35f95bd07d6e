// Package advisor provides farming advice: the mentor service contract and its
// HTTP client, the local fallback tip, rule-based recommendations and the
// success-probability estimator.
package advisor

import (
	"context"
	"strings"

	"github.com/talgya/valley-farm/internal/agronomy"
)

// FallbackTip is returned when no mentor service answers.
const FallbackTip = "Try compost, mulching, and drip irrigation to improve soil health and conserve water."

// OfflineTip is the mentor endpoint's answer when no language model is configured.
const OfflineTip = "Tip: Prioritize natural fertilizers (compost, green manure), maintain pH 6.0–7.0, " +
	"use drip irrigation to conserve groundwater, and rotate crops (e.g., legumes) " +
	"to restore soil health. Monitor weather; pause fertilizer before heavy rain."

// ErrorTip is the mentor endpoint's answer when the language model fails.
const ErrorTip = "Use compost and mulching; adjust irrigation to maintain optimal moisture and prevent runoff."

// DefaultQuestion replaces an empty question.
const DefaultQuestion = "Give sustainable farming advice for alluvial soil today."

// Context is the farm state sent along with a question.
type Context struct {
	Soil      string             `json:"soil"`
	Params    agronomy.Params    `json:"params"`
	Practices agronomy.Practices `json:"practices"`
}

// Request is a mentor question.
type Request struct {
	Question string  `json:"question"`
	Context  Context `json:"context"`
}

// Normalize fills defaults for a blank question or soil.
func (r *Request) Normalize() {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		r.Question = DefaultQuestion
	}
	if r.Context.Soil == "" {
		r.Context.Soil = "alluvial"
	}
	if r.Context.Params.Weather == "" {
		r.Context.Params.Weather = agronomy.Normal
	}
}

// Response is a mentor answer.
type Response struct {
	Answer string `json:"answer"`
}

// Service answers mentor questions.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

// Static always answers with the same text.
type Static string

// Ask returns the fixed answer.
func (s Static) Ask(context.Context, Request) (Response, error) {
	return Response{Answer: string(s)}, nil
}
