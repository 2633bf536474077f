package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agent-relay/internal/audit"
	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/ashureev/agent-relay/internal/identity"
	"github.com/ashureev/agent-relay/internal/session"
)

// replyWindow is how many of the newest messages are searched for the reply.
const replyWindow = 2

// ServiceConfig configures a Service.
type ServiceConfig struct {
	AgentID      string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// ChatResult is the outcome of one relayed message.
type ChatResult struct {
	Response  string
	SessionID string
	ThreadID  string
}

// ThreadHistory is a thread's messages oldest first plus its runs.
type ThreadHistory struct {
	ThreadID string
	Messages []domain.Message
	Runs     []domain.Run
}

// Service relays chat messages between browser sessions and the agent.
type Service struct {
	client       Client
	agentID      string
	sessions     *session.Resolver
	recorder     audit.Recorder
	pollInterval time.Duration
	runTimeout   time.Duration
	now          func() time.Time
}

// NewService creates a relay service. A nil recorder disables auditing.
func NewService(client Client, sessions *session.Resolver, recorder audit.Recorder, cfg ServiceConfig) *Service {
	if recorder == nil {
		recorder = audit.Disabled()
	}
	return &Service{
		client:       client,
		agentID:      cfg.AgentID,
		sessions:     sessions,
		recorder:     recorder,
		pollInterval: cfg.PollInterval,
		runTimeout:   cfg.RunTimeout,
		now:          time.Now,
	}
}

// Chat posts message to the session's thread, runs the agent, and returns the
// newest assistant reply. An empty sessionID starts a new session.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = identity.NewSessionID()
	}

	threadID, created, err := s.sessions.Resolve(ctx, sessionID, s.createThread)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}
	log := slog.With("session_id", sessionID, "thread_id", threadID)
	if created {
		log.Info("Created new thread for session")
	}

	msg, err := s.client.CreateMessage(ctx, threadID, domain.RoleUser, message)
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	s.recorder.Record(threadID, domain.LogTypeMessage, audit.NewMessageEntry(*msg, s.now()))

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	run, err := ProcessRun(runCtx, s.client, threadID, s.agentID, s.pollInterval)
	if err != nil {
		return nil, fmt.Errorf("process run: %w", err)
	}
	s.recorder.Record(threadID, domain.LogTypeRun, audit.NewRunEntry(*run, s.now()))

	if run.Status == domain.RunStatusFailed {
		log.Error("Agent run failed", "run_id", run.ID, "last_error", run.LastError.String())
		return nil, &RunFailedError{Run: run}
	}

	recent, err := s.client.ListMessages(ctx, threadID, ListOptions{Order: SortDescending, Limit: replyWindow})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	reply, ok := latestReply(recent)
	if !ok {
		log.Warn("Run finished without an assistant reply", "run_id", run.ID, "status", run.Status)
		return nil, ErrNoResponse
	}
	s.recorder.Record(threadID, domain.LogTypeMessage, audit.NewMessageEntry(*reply, s.now()))

	return &ChatResult{
		Response:  reply.LastText(),
		SessionID: sessionID,
		ThreadID:  threadID,
	}, nil
}

func (s *Service) createThread(ctx context.Context, sessionID string) (string, error) {
	thread, err := s.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	created := thread.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	s.recorder.Record(thread.ID, domain.LogTypeThreadCreated, audit.ThreadCreatedEntry{
		SessionID: sessionID,
		CreatedAt: domain.FormatTimestamp(created),
	})
	return thread.ID, nil
}

// latestReply returns the first assistant message with text content.
func latestReply(msgs []domain.Message) (*domain.Message, bool) {
	for i := range msgs {
		m := &msgs[i]
		if m.IsAssistant() && len(m.TextBlocks()) > 0 {
			return m, true
		}
	}
	return nil, false
}

// Lookup returns the thread bound to sessionID, if any.
func (s *Service) Lookup(ctx context.Context, sessionID string) (string, bool, error) {
	return s.sessions.Lookup(ctx, sessionID)
}

// History fetches a thread's full message and run history from the agent.
func (s *Service) History(ctx context.Context, threadID string) (*ThreadHistory, error) {
	msgs, err := s.client.ListMessages(ctx, threadID, ListOptions{Order: SortAscending})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	runs, err := s.client.ListRuns(ctx, threadID, ListOptions{Order: SortAscending})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return &ThreadHistory{ThreadID: threadID, Messages: msgs, Runs: runs}, nil
}
