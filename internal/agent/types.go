// Package agent relays chat messages to a remote Azure AI Foundry agent.
package agent

import (
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
)

// SortOrder orders list results by creation time.
type SortOrder string

const (
	// SortAscending lists oldest first.
	SortAscending SortOrder = "asc"
	// SortDescending lists newest first.
	SortDescending SortOrder = "desc"
)

// ListOptions controls list calls. A zero Limit fetches every page.
type ListOptions struct {
	Order SortOrder
	Limit int
}

type wireAgent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

type wireThread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

type wireFileCitation struct {
	FileID string `json:"file_id"`
}

type wireAnnotation struct {
	Type         string            `json:"type"`
	Text         string            `json:"text"`
	FileCitation *wireFileCitation `json:"file_citation,omitempty"`
}

type wireText struct {
	Value       string           `json:"value"`
	Annotations []wireAnnotation `json:"annotations"`
}

type wireContent struct {
	Type string    `json:"type"`
	Text *wireText `json:"text,omitempty"`
}

type wireMessage struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Role      string        `json:"role"`
	Content   []wireContent `json:"content"`
	CreatedAt int64         `json:"created_at"`
}

type wireRun struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	AssistantID string           `json:"assistant_id"`
	Status      string           `json:"status"`
	Model       string           `json:"model"`
	CreatedAt   int64            `json:"created_at"`
	CompletedAt *int64           `json:"completed_at"`
	LastError   *domain.RunError `json:"last_error"`
}

type wireList[T any] struct {
	Data    []T    `json:"data"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}

type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (a wireAgent) toDomain() *domain.Agent {
	return &domain.Agent{ID: a.ID, Name: a.Name, Model: a.Model}
}

func (t wireThread) toDomain() *domain.Thread {
	return &domain.Thread{ID: t.ID, CreatedAt: unixTime(t.CreatedAt)}
}

func (m wireMessage) toDomain() domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		Role:      domain.Role(m.Role),
		CreatedAt: unixTime(m.CreatedAt),
	}
	for _, c := range m.Content {
		if c.Type != "text" || c.Text == nil {
			msg.Content = append(msg.Content, domain.ContentBlock{Type: c.Type})
			continue
		}
		msg.Content = append(msg.Content, domain.ContentBlock{Type: "text", Text: c.Text.Value})
		for _, a := range c.Text.Annotations {
			if a.FileCitation != nil && a.FileCitation.FileID != "" {
				msg.FileCitations = append(msg.FileCitations, domain.FileCitation{FileID: a.FileCitation.FileID})
			}
		}
	}
	return msg
}

func (r wireRun) toDomain() *domain.Run {
	run := &domain.Run{
		ID:        r.ID,
		ThreadID:  r.ThreadID,
		Status:    domain.RunStatus(r.Status),
		Model:     r.Model,
		CreatedAt: unixTime(r.CreatedAt),
		LastError: r.LastError,
	}
	if r.CompletedAt != nil && *r.CompletedAt != 0 {
		t := unixTime(*r.CompletedAt)
		run.CompletedAt = &t
	}
	return run
}
