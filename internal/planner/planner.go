// File: internal/planner/planner.go
// Package planner is the HTTP client for the external planning service. The
// service owns the reasoning loop; this client sends the user's message plus
// conversation context and turns the returned step list into a typed batch
// the orchestrator can run.
package planner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// legacyKinds maps older planner tool names onto the current action set, so
// an engine upgrade does not strand a deployed planning service.
var legacyKinds = map[string]schemas.ActionKind{
	"create_doc":              schemas.ActionCreateRecord,
	"click_button":            schemas.ActionClickControl,
	"search_doctype":          schemas.ActionSearchRecords,
	"get_doctype_list":        schemas.ActionListRecords,
	"validate_doctype_exists": schemas.ActionValidateRecordExists,
}

// Client talks to the planning service. It rate limits outbound calls so a
// chatty session cannot hammer the service.
type Client struct {
	endpoint  string
	authToken string
	httpc     *http.Client
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewClient builds a planner client from configuration.
func NewClient(cfg config.PlannerConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		httpc:     &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		log:       log,
	}
}

// wire shapes ---------------------------------------------------------------

type planWire struct {
	Message string              `json:"message"`
	Context schemas.PlanContext `json:"context"`
	History []historyWire       `json:"history"`
}

type historyWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// envelope: some deployments wrap the result under "message", some return it
// bare.
type envelope struct {
	Message jsoniter.RawMessage `json:"message"`
}

type resultWire struct {
	Error       string                `json:"error"`
	Content     jsoniter.RawMessage   `json:"content"`
	AgentSteps  []stepWire            `json:"agent_steps"`
	SessionData *schemas.SessionStats `json:"session_data"`
}

type stepWire struct {
	Type    string              `json:"type"`
	Tool    string              `json:"tool"`
	Args    map[string]any      `json:"args"`
	Content jsoniter.RawMessage `json:"content"`
}

// Plan sends one planning round trip and decodes the returned batch.
func (c *Client) Plan(ctx context.Context, req schemas.PlanRequest) (*schemas.PlanResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("planner rate limit: %w", err)
	}

	wire := planWire{
		Message: req.Message,
		Context: req.Context,
		History: make([]historyWire, 0, len(req.History)),
	}
	for _, m := range req.History {
		wire.History = append(wire.History, historyWire{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding plan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building plan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling planner: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading planner response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planner returned status %d", resp.StatusCode)
	}

	return c.decode(raw)
}

func (c *Client) decode(raw []byte) (*schemas.PlanResponse, error) {
	// Unwrap the optional {"message": ...} envelope.
	var env envelope
	payload := raw
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Message) > 0 && string(env.Message) != "null" {
		payload = env.Message
	}

	var result resultWire
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding planner response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("planner error: %s", result.Error)
	}

	batch := schemas.Batch{ID: uuid.NewString()}
	for _, sw := range result.AgentSteps {
		switch sw.Type {
		case "tool_call":
			batch.Steps = append(batch.Steps, c.decodeStep(sw))
		case "response":
			if text := UnwrapContent(sw.Content); text != "" {
				batch.FinalContent = text
			}
		}
		// "tool_result" entries carry no work for this engine.
	}

	// A top-level content field is the planner's authoritative final word.
	if text := UnwrapContent(result.Content); text != "" {
		batch.FinalContent = text
	}

	c.log.Debug("decoded plan",
		zap.Int("steps", len(batch.Steps)),
		zap.Bool("has_content", batch.FinalContent != ""))

	return &schemas.PlanResponse{
		Content:     batch.FinalContent,
		Batch:       batch,
		SessionData: result.SessionData,
	}, nil
}

func (c *Client) decodeStep(sw stepWire) schemas.Step {
	kind := schemas.ActionKind(sw.Tool)
	if mapped, ok := legacyKinds[sw.Tool]; ok {
		kind = mapped
	}
	if !schemas.IsKnownAction(kind) {
		// Dispatch reduces this to its "Unknown tool" failure outcome.
		return schemas.Step{Kind: kind, Visibility: schemas.DefaultVisibility(kind)}
	}

	step, err := schemas.NewStep(kind, sw.Args)
	if err != nil {
		c.log.Warn("planner sent malformed step args",
			zap.String("tool", sw.Tool), zap.Error(err))
		return schemas.InvalidStep(kind, err)
	}
	return step
}
