package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StubMessage is the fixed explanatory response used whenever no provider
// endpoint is configured.
const StubMessage = "(Stub mode) Local LLM is not configured yet.\n\n" +
	"To enable a local model, start an OpenAI-compatible server " +
	"(e.g. LM Studio), then set OPENAI_BASE_URL (e.g. http://localhost:1234/v1) " +
	"and OPENAI_MODEL in .env."

// EmptyContentPlaceholder replaces an empty completion rather than surfacing
// an empty string to the caller.
const EmptyContentPlaceholder = "(No content returned from model.)"

const (
	requestTimeout = 60 * time.Second
	dataPrefix     = "data: "
	doneToken      = "[DONE]"
)

var defaultSuggestions = []string{
	"Can you give me another example that is slightly more challenging than my last question?",
	"What are common mistakes students make with this type of problem?",
	"How can I check if I truly understand this concept on my own?",
}

const suggestionInstructions = "You are now helping to design the next practice questions for the learner.\n" +
	"Given the learner's latest question, propose a few SHORT follow-up questions that:\n" +
	"- stay on the same topic,\n" +
	"- gradually increase difficulty or explore related angles,\n" +
	"- encourage understanding, not just memorisation.\n" +
	"Output each question on its own line, with no bullets, numbering, or extra explanation."

// OpenAI is a Provider backed by an OpenAI-compatible chat-completions
// endpoint. An empty base URL selects stub mode.
type OpenAI struct {
	baseURL    string // normalized, empty in stub mode
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(baseURL, apiKey, model string, logger *zap.Logger) *OpenAI {
	return &OpenAI{
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// normalizeBaseURL accepts either http://host:port or http://host:port/v1.
func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = strings.TrimSuffix(raw, "/")
	if !strings.HasSuffix(raw, "/v1") {
		raw += "/v1"
	}
	return raw
}

func (p *OpenAI) configured() bool { return p.baseURL != "" }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (p *OpenAI) newRequest(ctx context.Context, systemPrompt string, history []Message, maxTokens int, temperature float64, stream bool) (*http.Request, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	payload, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return req, nil
}

func (p *OpenAI) Complete(ctx context.Context, systemPrompt string, history []Message, maxTokens int, temperature float64) (Result, error) {
	if !p.configured() {
		return Result{Content: StubMessage, Model: p.model, Stub: true}, nil
	}

	req, err := p.newRequest(ctx, systemPrompt, history, maxTokens, temperature, false)
	if err != nil {
		return Result{}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed reading completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("provider returned status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse completion response: %s", truncate(string(body), 400))
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = strings.TrimSpace(parsed.Choices[0].Message.Content)
	}
	if content == "" {
		content = EmptyContentPlaceholder
	}
	return Result{Content: content, Model: p.model, Stub: false}, nil
}

// CompleteStream opens a chunked completion and emits one fragment per
// server-sent event carrying delta content. A malformed event is skipped, the
// [DONE] token ends the sequence without error, and consumer cancellation
// aborts the upstream request via ctx.
func (p *OpenAI) CompleteStream(ctx context.Context, systemPrompt string, history []Message, maxTokens int, temperature float64) (<-chan string, <-chan error) {
	fragments := make(chan string, 16)
	errs := make(chan error, 1)

	if !p.configured() {
		go func() {
			defer close(fragments)
			defer close(errs)
			select {
			case fragments <- StubMessage:
			case <-ctx.Done():
			}
		}()
		return fragments, errs
	}

	go func() {
		defer close(fragments)
		defer close(errs)

		req, err := p.newRequest(ctx, systemPrompt, history, maxTokens, temperature, true)
		if err != nil {
			errs <- err
			return
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			errs <- fmt.Errorf("streaming completion request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			errs <- fmt.Errorf("provider returned status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}
			payload := strings.TrimSpace(line[len(dataPrefix):])
			if payload == doneToken {
				return
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				// One malformed event is not fatal to the stream.
				p.logger.Debug("skipping malformed stream event", zap.String("payload", truncate(payload, 200)))
				continue
			}
			if len(event.Choices) == 0 {
				continue
			}
			content := event.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			select {
			case fragments <- content:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("reading completion stream: %w", err)
		}
	}()

	return fragments, errs
}

func (p *OpenAI) Suggest(ctx context.Context, lastUserQuestion, systemPrompt string, maxCount int) ([]string, error) {
	if maxCount <= 0 {
		maxCount = 3
	}

	if !p.configured() {
		suggestions := defaultSuggestions
		if len(suggestions) > maxCount {
			suggestions = suggestions[:maxCount]
		}
		return suggestions, nil
	}

	prompt := systemPrompt + "\n\n" + suggestionInstructions
	history := []Message{{
		Role: "user",
		Content: fmt.Sprintf("The learner's latest question was:\n\n%s\n\nPlease propose up to %d follow-up questions.",
			lastUserQuestion, maxCount),
	}}

	result, err := p.Complete(ctx, prompt, history, 256, 0.7)
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	if result.Content == EmptyContentPlaceholder {
		return nil, nil
	}

	var questions []string
	for _, line := range strings.Split(result.Content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	if len(questions) > maxCount {
		questions = questions[:maxCount]
	}
	return questions, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
