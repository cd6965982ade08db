package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const runPollInterval = 500 * time.Millisecond

// OpenAI drives a configured assistant through the threads API. The thread id
// doubles as the conversation token: a request without one creates a thread,
// a request with one posts into it. All response-shape probing lives here so
// the engine only ever sees the normalized Response.
type OpenAI struct {
	client *openai.Client
	logger *slog.Logger
}

func NewOpenAI(apiKey string, logger *slog.Logger) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), logger)
}

// NewOpenAIWithConfig accepts a prebuilt client config, which lets tests and
// gateway deployments point BaseURL at a different endpoint.
func NewOpenAIWithConfig(cfg openai.ClientConfig, logger *slog.Logger) *OpenAI {
	return &OpenAI{client: openai.NewClientWithConfig(cfg), logger: logger}
}

func (o *OpenAI) Call(ctx context.Context, req Request) (Response, error) {
	threadID := req.ConversationID
	if threadID == "" {
		thread, err := o.client.CreateThread(ctx, openai.ThreadRequest{})
		if err != nil {
			return Response{}, fmt.Errorf("create thread: %w", err)
		}
		threadID = thread.ID
	}

	if _, err := o.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	}); err != nil {
		return Response{}, fmt.Errorf("post message: %w", err)
	}

	runReq := openai.RunRequest{AssistantID: req.AgentID}
	if req.Instructions != "" {
		runReq.Instructions = req.Instructions
	}
	if req.MaxOutputTokens > 0 {
		runReq.MaxCompletionTokens = req.MaxOutputTokens
	}
	if req.Temperature > 0 {
		t := req.Temperature
		runReq.Temperature = &t
	}

	run, err := o.client.CreateRun(ctx, threadID, runReq)
	if err != nil {
		return Response{}, fmt.Errorf("create run: %w", err)
	}

	if err := o.waitForRun(ctx, threadID, run.ID); err != nil {
		return Response{}, err
	}

	text, err := o.latestAssistantText(ctx, threadID)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text, ConversationID: threadID}, nil
}

func (o *OpenAI) waitForRun(ctx context.Context, threadID, runID string) error {
	for {
		run, err := o.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return fmt.Errorf("retrieve run: %w", err)
		}
		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			select {
			case <-ctx.Done():
				return fmt.Errorf("run wait: %w", ctx.Err())
			case <-time.After(runPollInterval):
			}
		default:
			msg := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				msg = run.LastError.Message
			}
			return fmt.Errorf("run %s: %s", run.Status, msg)
		}
	}
}

// latestAssistantText scans the thread newest-first for the most recent
// assistant (or agent) message with a non-empty text part. A completed run
// with no assistant text returns empty without error; the engine treats that
// as a parse failure, not a transport failure.
func (o *OpenAI) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 20
	order := "desc"
	list, err := o.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range list.Messages {
		if msg.Role != "assistant" && msg.Role != "agent" {
			continue
		}
		for _, part := range msg.Content {
			if part.Text == nil {
				continue
			}
			if v := strings.TrimSpace(part.Text.Value); v != "" {
				return v, nil
			}
		}
	}
	o.logger.Warn("thread has no assistant text", "thread_id", threadID)
	return "", nil
}
