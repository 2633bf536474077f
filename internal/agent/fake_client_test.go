package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
)

// fakeClient is an in-memory agent service. Each run walks through statuses
// and, on completion, appends reply as an assistant message.
type fakeClient struct {
	mu       sync.Mutex
	threads  int
	messages map[string][]domain.Message
	runs     map[string][]domain.Run
	cancels  int
	// cancelCtxErr is the context error seen by the last CancelRun.
	cancelCtxErr error

	statuses []domain.RunStatus
	runError *domain.RunError
	reply    []string
	polls    map[string]int

	createThreadErr error
}

func newFakeClient(reply ...string) *fakeClient {
	return &fakeClient{
		messages: make(map[string][]domain.Message),
		runs:     make(map[string][]domain.Run),
		polls:    make(map[string]int),
		statuses: []domain.RunStatus{domain.RunStatusInProgress, domain.RunStatusCompleted},
		reply:    reply,
	}
}

func (f *fakeClient) GetAgent(_ context.Context, agentID string) (*domain.Agent, error) {
	return &domain.Agent{ID: agentID, Name: "test-agent", Model: "gpt-4o"}, nil
}

func (f *fakeClient) CreateThread(_ context.Context) (*domain.Thread, error) {
	if f.createThreadErr != nil {
		return nil, f.createThreadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads++
	return &domain.Thread{ID: fmt.Sprintf("thread_%d", f.threads), CreatedAt: time.Unix(1700000000, 0)}, nil
}

func (f *fakeClient) CreateMessage(_ context.Context, threadID string, role domain.Role, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(threadID, role, content), nil
}

func (f *fakeClient) appendLocked(threadID string, role domain.Role, texts ...string) *domain.Message {
	msg := domain.Message{
		ID:        fmt.Sprintf("msg_%d", len(f.messages[threadID])+1),
		Role:      role,
		CreatedAt: time.Unix(1700000000+int64(len(f.messages[threadID])), 0),
	}
	for _, t := range texts {
		msg.Content = append(msg.Content, domain.ContentBlock{Type: "text", Text: t})
	}
	f.messages[threadID] = append(f.messages[threadID], msg)
	return &msg
}

func (f *fakeClient) CreateRun(_ context.Context, threadID, _ string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := domain.Run{
		ID:        fmt.Sprintf("run_%d", len(f.runs[threadID])+1),
		ThreadID:  threadID,
		Status:    domain.RunStatusQueued,
		Model:     "gpt-4o",
		CreatedAt: time.Unix(1700000000, 0),
	}
	f.runs[threadID] = append(f.runs[threadID], run)
	return &run, nil
}

func (f *fakeClient) GetRun(_ context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := threadID + "/" + runID
	step := f.polls[key]
	if step >= len(f.statuses) {
		step = len(f.statuses) - 1
	}
	f.polls[key]++

	runs := f.runs[threadID]
	for i := range runs {
		if runs[i].ID != runID {
			continue
		}
		if runs[i].Status.IsTerminal() {
			r := runs[i]
			return &r, nil
		}
		runs[i].Status = f.statuses[step]
		switch runs[i].Status {
		case domain.RunStatusCompleted:
			done := time.Unix(1700000010, 0)
			runs[i].CompletedAt = &done
			if len(f.reply) > 0 {
				f.appendLocked(threadID, domain.RoleAssistant, f.reply...)
			}
		case domain.RunStatusFailed:
			runs[i].LastError = f.runError
		}
		r := runs[i]
		return &r, nil
	}
	return nil, &APIError{StatusCode: 404, Message: "run not found"}
}

func (f *fakeClient) CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.cancelCtxErr = ctx.Err()
	runs := f.runs[threadID]
	for i := range runs {
		if runs[i].ID == runID && !runs[i].Status.IsTerminal() {
			runs[i].Status = domain.RunStatusCancelling
		}
	}
	return &domain.Run{ID: runID, ThreadID: threadID, Status: domain.RunStatusCancelling}, nil
}

func (f *fakeClient) cancelState() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels, f.cancelCtxErr
}

func (f *fakeClient) ListMessages(_ context.Context, threadID string, opts ListOptions) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.messages[threadID]
	out := make([]domain.Message, 0, len(src))
	if opts.Order == SortDescending {
		for i := len(src) - 1; i >= 0; i-- {
			out = append(out, src[i])
		}
	} else {
		out = append(out, src...)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeClient) ListRuns(_ context.Context, threadID string, _ ListOptions) ([]domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Run(nil), f.runs[threadID]...), nil
}

func (f *fakeClient) threadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads
}

// recordingRecorder captures audit entries synchronously.
type recordingRecorder struct {
	mu      sync.Mutex
	entries []recordedEntry
}

type recordedEntry struct {
	threadID string
	logType  domain.LogType
	data     any
}

func (r *recordingRecorder) Record(threadID string, logType domain.LogType, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedEntry{threadID: threadID, logType: logType, data: data})
}

func (r *recordingRecorder) types() []domain.LogType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LogType, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.logType)
	}
	return out
}
