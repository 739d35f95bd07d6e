package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/talgya/valley-farm/internal/advisor"
)

const mentorMaxTokens = 300

// Mentor answers farm questions with the LLM. It implements advisor.Service.
type Mentor struct {
	client *Client
}

// NewMentor returns a mentor backed by client, or nil when the client is disabled.
func NewMentor(client *Client) *Mentor {
	if !client.Enabled() {
		return nil
	}
	return &Mentor{client: client}
}

// Ask sends the question and the farm's conditions to the model.
func (m *Mentor) Ask(ctx context.Context, req advisor.Request) (advisor.Response, error) {
	if m == nil {
		return advisor.Response{}, fmt.Errorf("mentor not configured")
	}
	req.Normalize()
	text, err := m.client.Complete(ctx, mentorSystemPrompt, buildMentorPrompt(req), mentorMaxTokens)
	if err != nil {
		return advisor.Response{}, fmt.Errorf("mentor: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return advisor.Response{}, fmt.Errorf("mentor: blank answer")
	}
	return advisor.Response{Answer: text}, nil
}

const mentorSystemPrompt = `You are an experienced agronomist mentoring a smallholder farmer in the Indian plains and hills.
Give practical, sustainable advice: natural fertilizers, water conservation, soil pH management, crop choice.
Answer in at most three short sentences. Do not mention that you are an AI.`

func buildMentorPrompt(req advisor.Request) string {
	var b strings.Builder
	c := req.Context
	fmt.Fprintf(&b, "Soil type: %s. Weather: %s.\n", c.Soil, c.Params.Weather)
	fmt.Fprintf(&b, "Soil health %.2f, groundwater %.2f, pH %.1f.\n", c.Params.SoilHealth, c.Params.Groundwater, c.Params.PH)

	var practices []string
	if c.Practices.Mulching {
		practices = append(practices, "mulching")
	}
	if c.Practices.DripIrrigation {
		practices = append(practices, "drip irrigation")
	}
	if c.Practices.Compost {
		practices = append(practices, "compost")
	}
	if c.Practices.ExcessChemicalFertilizer {
		practices = append(practices, "heavy chemical fertilizer")
	}
	if len(practices) == 0 {
		b.WriteString("Current practices: none.\n")
	} else {
		fmt.Fprintf(&b, "Current practices: %s.\n", strings.Join(practices, ", "))
	}
	fmt.Fprintf(&b, "\nQuestion: %s", req.Question)
	return b.String()
}
