// Package agent integrates an external LLM agent service as a decision
// provider. The agent is advisory: every decision it returns is validated,
// and any transport or validation failure falls back to the deterministic
// engine so routing never depends on agent availability.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/engine"
)

// Client calls the agent service and implements engine.DecisionProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   *engine.Engine
	logger     zerolog.Logger
}

// NewClient creates an agent-backed provider with a deterministic
// fallback.
func NewClient(baseURL string, fallback *engine.Engine, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fallback:   fallback,
		logger:     logger.With().Str("component", "agent").Logger(),
	}
}

type decideRequest struct {
	Text    string   `json:"text"`
	Channel string   `json:"channel"`
	Tools   []string `json:"tools"`
}

type decideResponse struct {
	Category   string   `json:"category"`
	Escalate   bool     `json:"escalate"`
	Reasons    []string `json:"reasons"`
	Priority   string   `json:"priority"`
	Confidence float64  `json:"confidence"`
}

// toolSurface is the fixed set of actions the agent may request. The
// service executes them server-side; the names travel with every request
// so the agent knows its capabilities.
var toolSurface = []string{
	"search_knowledge_base",
	"create_ticket",
	"get_customer_history",
	"escalate_to_human",
	"send_response",
}

// Decide asks the agent for a routing decision, falling back to the
// deterministic engine on any failure. The MustEscalate override is
// applied after either path, so hard constraints hold regardless of
// which provider answered.
func (c *Client) Decide(ctx context.Context, in engine.DecisionInput) (engine.Result, error) {
	res, err := c.decideRemote(ctx, in)
	if err != nil {
		c.logger.Warn().Err(err).Msg("agent decision failed, using deterministic engine")
		res = c.fallback.Classify(in.Text)
	}
	if in.MustEscalate {
		res.Escalate = true
	}
	return res, nil
}

func (c *Client) decideRemote(ctx context.Context, in engine.DecisionInput) (engine.Result, error) {
	body, err := json.Marshal(decideRequest{
		Text:    in.Text,
		Channel: in.Channel,
		Tools:   toolSurface,
	})
	if err != nil {
		return engine.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/decide", bytes.NewReader(body))
	if err != nil {
		return engine.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return engine.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return engine.Result{}, fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var out decideResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return engine.Result{}, err
	}
	return validate(out)
}

// validate rejects agent answers that fall outside the decision schema.
// A malformed answer is treated like an unavailable agent.
func validate(out decideResponse) (engine.Result, error) {
	category := engine.Category(out.Category)
	switch category {
	case engine.CategoryBilling, engine.CategoryTechnical, engine.CategoryGeneral:
	default:
		return engine.Result{}, fmt.Errorf("unknown category %q", out.Category)
	}

	priority := engine.Priority(out.Priority)
	switch priority {
	case engine.PriorityP1, engine.PriorityP2, engine.PriorityP3:
	default:
		return engine.Result{}, fmt.Errorf("unknown priority %q", out.Priority)
	}

	if out.Confidence < 0 || out.Confidence > 1 {
		return engine.Result{}, fmt.Errorf("confidence %v out of range", out.Confidence)
	}

	return engine.Result{
		Category:   category,
		Escalate:   out.Escalate,
		Reasons:    out.Reasons,
		Priority:   priority,
		Confidence: out.Confidence,
	}, nil
}
