// Package insight turns an account and a month into a guarded natural
// language summary produced by the agent loop.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/agent"
	"github.com/MrJamesThe3rd/spendsight/internal/audit"
	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
	"github.com/MrJamesThe3rd/spendsight/internal/memory"
)

var ErrEmptyQuery = errors.New("query must not be empty")

// GenerationError is the only error callers see when the agent run fails.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "insight generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Message is the root cause without the prefix.
func (e *GenerationError) Message() string {
	return e.Err.Error()
}

type Runner interface {
	Run(ctx context.Context, in agent.Input) (*agent.Result, error)
}

type Service struct {
	guard   *guardrail.Enforcer
	runner  Runner
	store   memory.Store
	emitter audit.Emitter
	logger  *slog.Logger
	timeout time.Duration
}

// NewService wires the orchestrator. store may be nil to run without memory;
// a zero timeout leaves the deadline to the caller's context.
func NewService(guard *guardrail.Enforcer, runner Runner, store memory.Store, emitter audit.Emitter, logger *slog.Logger, timeout time.Duration) *Service {
	if emitter == nil {
		emitter = audit.Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		guard:   guard,
		runner:  runner,
		store:   store,
		emitter: emitter,
		logger:  logger,
		timeout: timeout,
	}
}

// Generate validates the request, runs the agent and applies the output
// guardrails. Validation failures are returned as is; everything that goes
// wrong afterwards is a *GenerationError.
func (s *Service) Generate(ctx context.Context, sessionID, accountID string, year, month int) (string, error) {
	if err := s.guard.ValidateRequest(accountID, year, month); err != nil {
		return "", err
	}

	s.logger.Info("generating insight", "session_id", sessionID, "year", year, "month", month)

	ctx, cancel := s.withTimeout(audit.WithSession(ctx, sessionID))
	defer cancel()

	conv := s.conversation(ctx, sessionID)
	prompt := taskPrompt(accountID, year, month)

	res, err := s.runner.Run(ctx, agent.Input{
		System:       systemInstructions(s.guard.Limits().MaxWords),
		Prompt:       prompt,
		Conversation: conv,
	})
	if err != nil {
		return "", s.fail(ctx, err)
	}

	text := guardrail.DiscloseFailures(res.Text, res.Failures())
	text = guardrail.Redact(text, accountID)
	text = s.checkLength(ctx, text)

	s.remember(ctx, conv, guardrail.Redact(prompt, accountID), text)

	s.emitter.Emit(ctx, audit.Event{
		Type:   audit.InsightGenerated,
		Detail: fmt.Sprintf("iterations=%d calls=%d failures=%d exhausted=%t", res.Iterations, len(res.Calls), len(res.Failures()), res.Exhausted),
	})
	s.logger.Info("insight generated", "session_id", sessionID, "iterations", res.Iterations, "chars", len(text))

	return text, nil
}

// Analyse sends a free text query straight to the agent. None of the output
// guardrails run on this path.
func (s *Service) Analyse(ctx context.Context, sessionID, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	s.logger.Warn("serving unguarded query", "session_id", sessionID)

	ctx, cancel := s.withTimeout(audit.WithSession(ctx, sessionID))
	defer cancel()

	s.emitter.Emit(ctx, audit.Event{Type: audit.RawQuery, Detail: fmt.Sprintf("%d chars", len(query))})

	conv := s.conversation(ctx, sessionID)

	res, err := s.runner.Run(ctx, agent.Input{
		System:       persona,
		Prompt:       query,
		Conversation: conv,
	})
	if err != nil {
		return "", s.fail(ctx, err)
	}

	s.remember(ctx, conv, query, res.Text)

	return res.Text, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) conversation(ctx context.Context, sessionID string) memory.Conversation {
	if s.store == nil || sessionID == "" {
		return nil
	}

	return s.store.Conversation(memory.Key(ctx, sessionID))
}

// remember stores the turn as the caller saw it. Tool exchanges stay out so a
// trimmed window never splits one.
func (s *Service) remember(ctx context.Context, conv memory.Conversation, prompt, answer string) {
	if conv == nil {
		return
	}

	err := conv.Append(context.WithoutCancel(ctx),
		llm.Message{Role: llm.RoleUser, Content: prompt},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	if err != nil {
		s.logger.Warn("failed to save conversation", "error", err)
	}
}

func (s *Service) checkLength(ctx context.Context, text string) string {
	check := s.guard.CheckLength(text)
	if !check.Exceeded {
		return text
	}

	s.logger.Warn("insight exceeds word limit",
		"words", check.Words,
		"limit", s.guard.Limits().MaxWords,
		"truncated", check.Truncated,
	)
	s.emitter.Emit(ctx, audit.Event{
		Type:   audit.LengthExceeded,
		Detail: fmt.Sprintf("words=%d limit=%d truncated=%t", check.Words, s.guard.Limits().MaxWords, check.Truncated),
	})

	return check.Text
}

func (s *Service) fail(ctx context.Context, err error) error {
	s.logger.Error("failed to generate insight", "error", err)
	s.emitter.Emit(context.WithoutCancel(ctx), audit.Event{Type: audit.InsightFailed, Detail: err.Error()})

	return &GenerationError{Err: err}
}
