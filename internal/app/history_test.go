package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/mocks"
	"go.uber.org/mock/gomock"
)

func TestHistory_AppendThenReplay(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStack(t)
	s.putUser(t, "alice", "Alice")
	s.putUser(t, "bob", "Bob")
	dir := newDirectory(t, s, nil)
	h := NewHistory(s.messages, s.resolver, "Unknown user", 0)

	room, err := dir.CreateRoom(ctx, "Algebra", "alice")
	req.NoError(err)

	m1, err := h.Append(ctx, room.ID, "alice", "hello")
	req.NoError(err)
	req.Equal("Alice", m1.AuthorName)
	_, err = h.Append(ctx, room.ID, "bob", "hi")
	req.NoError(err)

	got, err := h.Replay(ctx, room.ID)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("hello", got[0].Text)
	req.Equal("Alice", got[0].AuthorName)
	req.Equal("hi", got[1].Text)
	req.Equal("Bob", got[1].AuthorName)
	req.False(got[1].CreatedAt.Before(got[0].CreatedAt))
}

func TestHistory_Replay_EmptyRoom(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStack(t)
	room, err := newDirectory(t, s, nil).CreateRoom(ctx, "Empty", "alice")
	req.NoError(err)

	got, err := NewHistory(s.messages, s.resolver, "Unknown user", 0).Replay(ctx, room.ID)
	req.NoError(err)
	req.Empty(got)
}

func TestHistory_Replay_LimitKeepsNewest(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStack(t)
	room, err := newDirectory(t, s, nil).CreateRoom(ctx, "Busy", "alice")
	req.NoError(err)
	h := NewHistory(s.messages, s.resolver, "Unknown user", 2)
	for i := 1; i <= 5; i++ {
		_, err := h.Append(ctx, room.ID, "alice", fmt.Sprintf("m%d", i))
		req.NoError(err)
	}

	got, err := h.Replay(ctx, room.ID)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("m4", got[0].Text)
	req.Equal("m5", got[1].Text)
}

func TestHistory_UnresolvedAuthor_UsesPlaceholder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageStore(ctrl)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	h := NewHistory(messages, resolver, "Unknown user", 0)

	msg := domain.Message{Seq: 1, RoomID: "r1", Author: "ghost", Text: "boo", CreatedAt: time.Now()}
	messages.EXPECT().AppendMessage(gomock.Any(), domain.RoomID("r1"), domain.UserID("ghost"), "boo").Return(msg, nil)
	resolver.EXPECT().DisplayName(gomock.Any(), domain.UserID("ghost")).Return("", domain.ErrIdentityUnresolved)

	got, err := h.Append(context.Background(), "r1", "ghost", "boo")
	req.NoError(err)
	req.Equal("Unknown user", got.AuthorName)
	req.Equal(msg, got.Message)
}

func TestHistory_Replay_ResolvesEachAuthorOnce(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageStore(ctrl)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	h := NewHistory(messages, resolver, "Unknown user", 0)

	messages.EXPECT().Messages(gomock.Any(), domain.RoomID("r1"), 0).Return([]domain.Message{
		{Seq: 1, Author: "alice", Text: "a"},
		{Seq: 2, Author: "bob", Text: "b"},
		{Seq: 3, Author: "alice", Text: "c"},
	}, nil)
	resolver.EXPECT().DisplayName(gomock.Any(), domain.UserID("alice")).Return("Alice", nil).Times(1)
	resolver.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("Bob", nil).Times(1)

	got, err := h.Replay(context.Background(), "r1")
	req.NoError(err)
	req.Equal([]string{"Alice", "Bob", "Alice"}, []string{got[0].AuthorName, got[1].AuthorName, got[2].AuthorName})
}

func TestHistory_Append_FailureReturnsNothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageStore(ctrl)
	h := NewHistory(messages, mocks.NewMockIdentityResolver(ctrl), "Unknown user", 0)

	messages.EXPECT().AppendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Message{}, domain.ErrPersistence)

	got, err := h.Append(context.Background(), "r1", "alice", "lost")
	req.True(errors.Is(err, domain.ErrPersistence))
	req.Zero(got)
}
