// Package ai wraps the external generative-model API used to draft
// treatment-plan text and knowledge graphs. The model is an opaque
// collaborator: prompts are fixed templates, responses are passed through
// verbatim for a doctor to review. A circuit breaker keeps a flapping
// upstream from tying up request handlers; the deterministic risk scorer
// never depends on this package.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/config"
	"github.com/oncohub/oncohub/pkg/metrics"
)

var (
	ErrDisabled    = errors.New("ai integration is not configured")
	ErrUnavailable = errors.New("ai service unavailable")
	ErrEmptyReply  = errors.New("ai service returned an empty reply")
)

// CaseContext is the redacted slice of case data handed to the model.
// Identifiers never leave the service; only clinical values do.
type CaseContext struct {
	CancerType     string
	Stage          string
	TumorSizeCm    float64
	BiomarkerNotes string
	RiskLevel      string
	ExtractedText  string
}

// Generator produces AI-drafted artifacts for a case.
type Generator interface {
	GenerateTreatmentPlan(ctx context.Context, cc CaseContext) (string, error)
	GenerateKnowledgeGraph(ctx context.Context, cc CaseContext) (string, error)
}

type Client struct {
	cfg     config.AIConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	log     *zap.Logger
}

func NewClient(cfg config.AIConfig, collector *metrics.Collector, log *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "generative-api",
		Timeout: cfg.MaxOpenMs,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen && collector != nil {
				collector.AIBreakerOpenedTotal.Inc()
			}
			log.Warn("ai breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		log:     log,
	}
}

const treatmentPlanPrompt = `You are assisting an oncologist. Draft a concise,
structured treatment plan outline for the following case. Use numbered
sections for staging workup, first-line therapy options, and follow-up
schedule. Do not invent laboratory values.

Cancer type: %s
Stage: %s
Tumor size (cm): %.1f
Biomarkers: %s
Risk tier: %s
Relevant extracted notes:
%s`

const knowledgeGraphPrompt = `Produce a JSON knowledge graph (nodes, edges)
relating the diagnosis, biomarkers, candidate therapies, and follow-up
actions for this case. Respond with JSON only.

Cancer type: %s
Stage: %s
Tumor size (cm): %.1f
Biomarkers: %s
Risk tier: %s
Relevant extracted notes:
%s`

func (c *Client) GenerateTreatmentPlan(ctx context.Context, cc CaseContext) (string, error) {
	prompt := fmt.Sprintf(treatmentPlanPrompt,
		cc.CancerType, cc.Stage, cc.TumorSizeCm, cc.BiomarkerNotes, cc.RiskLevel, cc.ExtractedText)
	return c.generate(ctx, prompt)
}

func (c *Client) GenerateKnowledgeGraph(ctx context.Context, cc CaseContext) (string, error) {
	prompt := fmt.Sprintf(knowledgeGraphPrompt,
		cc.CancerType, cc.Stage, cc.TumorSizeCm, cc.BiomarkerNotes, cc.RiskLevel, cc.ExtractedText)
	return c.generate(ctx, prompt)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if !c.cfg.Enabled {
		return "", ErrDisabled
	}

	start := time.Now()
	text, err := c.breaker.Execute(func() (string, error) {
		return c.call(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrUnavailable
		}
		return "", err
	}

	c.log.Debug("ai generation completed", zap.Duration("duration", time.Since(start)))
	return text, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generative api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Body is read to keep the connection reusable; content discarded.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generative api returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
