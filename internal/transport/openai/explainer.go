package openai

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

// DefaultSystemPrompt frames the model as an assessment advisor.
const DefaultSystemPrompt = "You are an expert HR assessment consultant. " +
	"You explain why pre-selected assessments fit a hiring need. " +
	"Be specific and practical, and never invent assessments."

// ExplainerConfig holds the chat completion settings.
type ExplainerConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// Timeout bounds one completion call; zero leaves the caller's deadline.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Explainer writes one short justification per recommended item via chat completion.
type Explainer struct {
	client      *openai.Client
	model       string
	system      string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewExplainer creates a chat-completion explainer.
func NewExplainer(cfg *ExplainerConfig) *Explainer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	return &Explainer{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		system:      system,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Explain returns explanations aligned with results. The model is asked for a
// numbered list; any item it skips makes the whole answer unusable.
func (e *Explainer) Explain(ctx context.Context, q query.Canonical, results []recommendation.Result) ([]string, error) {
	if len(results) == 0 {
		return []string{}, nil
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.system},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(q, results)},
		},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("chat completion: %w", ctx.Err())
		}
		return nil, apiError("completion", err, domain.ErrExplanationProvider)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response: %w", domain.ErrExplanationProvider)
	}

	out, err := parseNumbered(resp.Choices[0].Message.Content, len(results))
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Explanations generated",
		zap.String("model", e.model),
		zap.Int("items", len(results)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func buildPrompt(q query.Canonical, results []recommendation.Result) string {
	var b strings.Builder
	b.WriteString("Hiring need:\n")
	b.WriteString(q.Text)
	b.WriteString("\n\nSelected assessments:\n")
	for i := range results {
		it := &results[i].Item
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, it.Name(), it.Category())
		if d := it.Duration(); d != "" {
			fmt.Fprintf(&b, ", duration %s", d)
		}
		if desc := it.Description(); desc != "" {
			fmt.Fprintf(&b, ": %s", desc)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nFor each of the %d assessments, write one sentence on why it fits this hiring need "+
		"and which competencies it measures. Answer with exactly %d lines formatted as \"N. explanation\", "+
		"in the same order, with no other text.\n", len(results), len(results))
	return b.String()
}

var numbered = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+?)\s*$`)

// parseNumbered extracts "N. text" lines into a slice of length n.
// Continuation lines are appended to the preceding item.
func parseNumbered(content string, n int) ([]string, error) {
	out := make([]string, n)
	current := -1

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if m := numbered.FindStringSubmatch(line); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err == nil && idx >= 1 && idx <= n {
				current = idx - 1
				out[current] = strings.Trim(m[2], "* ")
				continue
			}
		}
		if current >= 0 {
			out[current] += " " + line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read completion: %w", err)
	}

	for i, s := range out {
		if s == "" {
			return nil, fmt.Errorf("missing explanation for item %d: %w", i+1, domain.ErrExplanationProvider)
		}
	}
	return out, nil
}
