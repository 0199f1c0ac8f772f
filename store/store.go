// Package store provides the memory stores used by the memory agent.
//
// A store keeps the exchanged messages of a user and returns the ones
// relevant to a query. Relevance is the share of query tokens found in the
// stored text, see Rank.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

//go:generate mockgen -source=store.go -destination=../mocks/mockstore/store_mock.gen.go -package mockstore

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "store")

const (
	// DefaultLimit is the number of memories returned by Search when limit is not positive
	DefaultLimit = 5
	// DefaultMaxMemories is the number of memories kept per user
	DefaultMaxMemories = 1000
)

// ErrInvalidUser is returned when the user id is empty.
var ErrInvalidUser = errors.New("invalid user id")

// TimeNowFn returns the current time
var TimeNowFn = time.Now

// Memory is a stored message.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	// Score is the relevance to the searched query
	Score float64 `json:"score,omitempty"`
}

// MemoryStore persists messages per user.
type MemoryStore interface {
	// Search returns up to limit memories of the user relevant to the query,
	// most relevant first.
	Search(ctx context.Context, query, userID string, limit int) ([]*Memory, error)
	// AddMessages stores the text of the messages.
	AddMessages(ctx context.Context, msgs []llms.Message, userID string) error
	// Reset removes all memories of the user.
	Reset(ctx context.Context, userID string) error
}

// NewMemories returns the records to store for the messages,
// messages with no text are skipped.
func NewMemories(msgs []llms.Message, userID string) ([]*Memory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.WithStack(ErrInvalidUser)
	}

	now := TimeNowFn().UTC()
	var list []*Memory
	for i, msg := range msgs {
		text := strings.TrimSpace(msg.Text())
		if text == "" {
			continue
		}
		list = append(list, &Memory{
			ID:      uuid.NewString(),
			UserID:  userID,
			Role:    string(msg.Role),
			Content: text,
			// keep the order of the batch
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return list, nil
}

type formattedMemory struct {
	Memory string  `json:"memory"`
	Role   string  `json:"role,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// FormatMemories returns the memories as JSON text for a prompt,
// in the form {"results":[{"memory":"...","role":"user","score":0.5}]}.
func FormatMemories(list []*Memory) string {
	res := struct {
		Results []formattedMemory `json:"results"`
	}{
		Results: make([]formattedMemory, 0, len(list)),
	}
	for _, m := range list {
		res.Results = append(res.Results, formattedMemory{
			Memory: m.Content,
			Role:   m.Role,
			Score:  m.Score,
		})
	}
	return llmutils.ToJSON(res)
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.WithStack(ErrInvalidUser)
	}
	return nil
}

func searchFailed(ctx context.Context, store string, err error) error {
	metricskey.StatsMemorySearchFailed.IncrCounter(1, store)
	logger.ContextKV(ctx, xlog.ERROR, "store", store, "reason", "search", "err", err.Error())
	return err
}

func addFailed(ctx context.Context, store string, err error) error {
	metricskey.StatsMemoryAddFailed.IncrCounter(1, store)
	logger.ContextKV(ctx, xlog.ERROR, "store", store, "reason", "add", "err", err.Error())
	return err
}
