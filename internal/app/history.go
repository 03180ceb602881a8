package app

import (
	"context"

	"github.com/samber/lo"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/identity"
)

// History appends to and replays room histories, attaching author names.
type History struct {
	messages    core.MessageStore
	identity    core.IdentityResolver
	placeholder string
	replayLimit int
}

// NewHistory builds a History. replayLimit <= 0 replays the whole room.
func NewHistory(messages core.MessageStore, resolver core.IdentityResolver, placeholder string, replayLimit int) *History {
	return &History{
		messages:    messages,
		identity:    resolver,
		placeholder: placeholder,
		replayLimit: replayLimit,
	}
}

// Append persists one message. Nothing is returned unless the write committed.
func (h *History) Append(ctx context.Context, roomID domain.RoomID, author domain.UserID, text string) (domain.EnrichedMessage, error) {
	msg, err := h.messages.AppendMessage(ctx, roomID, author, text)
	if err != nil {
		return domain.EnrichedMessage{}, err
	}
	return domain.EnrichedMessage{
		Message:    msg,
		AuthorName: identity.NameOrPlaceholder(ctx, h.identity, author, h.placeholder),
	}, nil
}

func (h *History) Replay(ctx context.Context, roomID domain.RoomID) ([]domain.EnrichedMessage, error) {
	msgs, err := h.messages.Messages(ctx, roomID, h.replayLimit)
	if err != nil {
		return nil, err
	}
	return h.enrich(ctx, msgs), nil
}

func (h *History) enrich(ctx context.Context, msgs []domain.Message) []domain.EnrichedMessage {
	authors := lo.Uniq(lo.Map(msgs, func(m domain.Message, _ int) domain.UserID { return m.Author }))
	names := make(map[domain.UserID]string, len(authors))
	for _, a := range authors {
		names[a] = identity.NameOrPlaceholder(ctx, h.identity, a, h.placeholder)
	}
	return lo.Map(msgs, func(m domain.Message, _ int) domain.EnrichedMessage {
		return domain.EnrichedMessage{Message: m, AuthorName: names[m.Author]}
	})
}
