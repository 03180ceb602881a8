package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/mocks"
	"go.uber.org/mock/gomock"
)

func TestLocal_DisplayName(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	local := NewLocal(users)
	ctx := context.Background()

	users.EXPECT().GetUser(gomock.Any(), domain.UserID("alice")).Return(domain.User{ID: "alice", Username: "Alice"}, nil)
	users.EXPECT().GetUser(gomock.Any(), domain.UserID("ghost")).Return(domain.User{}, domain.ErrIdentityUnresolved)
	users.EXPECT().GetUser(gomock.Any(), domain.UserID("blank")).Return(domain.User{ID: "blank"}, nil)

	name, err := local.DisplayName(ctx, "alice")
	req.NoError(err)
	req.Equal("Alice", name)

	_, err = local.DisplayName(ctx, "ghost")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)

	_, err = local.DisplayName(ctx, "blank")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)
}

func TestChain_FirstHitWins(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	first := mocks.NewMockIdentityResolver(ctrl)
	second := mocks.NewMockIdentityResolver(ctrl)
	chain := Chain{first, second}

	// Given the first resolver misses and the second knows the user
	first.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("", errors.New("miss"))
	second.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("Bob", nil)

	name, err := chain.DisplayName(context.Background(), "bob")
	req.NoError(err)
	req.Equal("Bob", name)

	// Given nobody knows the user
	first.EXPECT().DisplayName(gomock.Any(), domain.UserID("ghost")).Return("", errors.New("miss"))
	second.EXPECT().DisplayName(gomock.Any(), domain.UserID("ghost")).Return("", errors.New("miss"))

	_, err = chain.DisplayName(context.Background(), "ghost")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)
}

func TestNameOrPlaceholder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	r := mocks.NewMockIdentityResolver(ctrl)

	r.EXPECT().DisplayName(gomock.Any(), domain.UserID("ghost")).Return("", domain.ErrIdentityUnresolved)
	req.Equal("Unknown user", NameOrPlaceholder(context.Background(), r, "ghost", "Unknown user"))

	r.EXPECT().DisplayName(gomock.Any(), domain.UserID("alice")).Return("Alice", nil)
	req.Equal("Alice", NameOrPlaceholder(context.Background(), r, "alice", "Unknown user"))
}

func TestCached_MemoizesHits(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	next := mocks.NewMockIdentityResolver(ctrl)
	cached, err := NewCached(next, time.Minute, 100)
	req.NoError(err)
	defer cached.Close()

	// Only one call reaches the underlying resolver
	next.EXPECT().DisplayName(gomock.Any(), domain.UserID("alice")).Return("Alice", nil).Times(1)

	name, err := cached.DisplayName(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice", name)
	cached.Wait()

	name, err = cached.DisplayName(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice", name)
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	next := mocks.NewMockIdentityResolver(ctrl)
	cached, err := NewCached(next, time.Minute, 100)
	req.NoError(err)
	defer cached.Close()

	gomock.InOrder(
		next.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("", domain.ErrIdentityUnresolved),
		next.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("Bob", nil),
	)

	_, err = cached.DisplayName(context.Background(), "bob")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)

	name, err := cached.DisplayName(context.Background(), "bob")
	req.NoError(err)
	req.Equal("Bob", name)
}

func TestCached_Forget(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	next := mocks.NewMockIdentityResolver(ctrl)
	cached, err := NewCached(next, time.Minute, 100)
	req.NoError(err)
	defer cached.Close()

	gomock.InOrder(
		next.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("Bob", nil),
		next.EXPECT().DisplayName(gomock.Any(), domain.UserID("bob")).Return("Robert", nil),
	)

	name, err := cached.DisplayName(context.Background(), "bob")
	req.NoError(err)
	req.Equal("Bob", name)
	cached.Wait()

	cached.Forget("bob")
	name, err = cached.DisplayName(context.Background(), "bob")
	req.NoError(err)
	req.Equal("Robert", name)
}

type slowResolver struct {
	calls atomic.Int32
}

func (s *slowResolver) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	s.calls.Add(1)
	time.Sleep(50 * time.Millisecond)
	return "Slow", nil
}

func TestCached_CollapsesConcurrentLookups(t *testing.T) {
	req := require.New(t)
	next := &slowResolver{}
	cached, err := NewCached(next, time.Minute, 100)
	req.NoError(err)
	defer cached.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := cached.DisplayName(context.Background(), "carol")
			require.NoError(t, err)
			require.Equal(t, "Slow", name)
		}()
	}
	wg.Wait()

	req.Equal(int32(1), next.calls.Load())
}

func TestRemote_DisplayName(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/alice":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Alice"}`))
		case "/api/users/nameless":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL+"/", time.Second)

	name, err := remote.DisplayName(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice", name)

	_, err = remote.DisplayName(context.Background(), "ghost")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)

	_, err = remote.DisplayName(context.Background(), "nameless")
	req.ErrorIs(err, domain.ErrIdentityUnresolved)
}
