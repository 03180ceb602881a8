package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"github.com/studyhall/server/internal/adapters/storage"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/identity"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return ""
	}
	return string(c.frames[len(c.frames)-1])
}

func session(uid string, conn core.SignalConnection) core.MemberSession {
	var u *domain.User
	if uid != "" {
		u = &domain.User{ID: domain.UserID(uid), Username: uid}
	}
	return core.NewMemberSession(domain.NewMember(u)).UpdateSignal(conn)
}

type testStack struct {
	db       *badger.DB
	rooms    *storage.RoomRepository
	messages *storage.MessageRepository
	users    *storage.UserRepository
	resolver core.IdentityResolver
}

func newTestStack(t *testing.T) testStack {
	t.Helper()
	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	users := storage.NewUserRepository(db)
	return testStack{
		db:       db,
		rooms:    storage.NewRoomRepository(db),
		messages: storage.NewMessageRepository(db, nil),
		users:    users,
		resolver: identity.NewLocal(users),
	}
}

func (s testStack) putUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, s.users.PutUser(context.Background(), domain.User{ID: domain.UserID(id), Username: name}))
}
