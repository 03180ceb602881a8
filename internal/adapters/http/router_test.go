package http

import (
	"bytes"
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/studyhall/server/internal/adapters/signal"
	"github.com/studyhall/server/internal/adapters/storage"
	"github.com/studyhall/server/internal/app"
	"github.com/studyhall/server/internal/app/orch"
	"github.com/studyhall/server/internal/auth"
	"github.com/studyhall/server/internal/config"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/identity"
)

type forgetter struct{ forgotten []domain.UserID }

func (f *forgetter) Forget(id domain.UserID) { f.forgotten = append(f.forgotten, id) }

type fixture struct {
	engine   *gin.Engine
	verifier *auth.Verifier
	names    *forgetter
	users    *storage.UserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("", true)
	require.NoError(t, err)
	users := storage.NewUserRepository(db)
	resolver := identity.NewLocal(users)
	messages := storage.NewMessageRepository(db, nil)
	reg := app.NewRegistry()
	channels := app.NewRoomManager()
	o := &orch.Orchestrator{
		Registry:  reg,
		Rooms:     channels,
		Directory: app.NewDirectory(storage.NewRoomRepository(db), messages, resolver, channels, reg, "Unknown user"),
		History:   app.NewHistory(messages, resolver, "Unknown user", 0),
		Policy:    app.SimplePolicy{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = db.Close()
	})

	verifier := auth.NewVerifier("jwt-secret")
	names := &forgetter{}
	cfg := &config.Config{Mode: "test", Secret: "cookie-secret", StaticPath: t.TempDir()}
	engine := SetupRouter(ctx, cfg, Deps{
		Orch:     o,
		Verifier: verifier,
		Users:    users,
		Names:    names,
		WS:       signal.DefaultOptions(),
	})
	return fixture{engine: engine, verifier: verifier, names: names, users: users}
}

func (f fixture) token(t *testing.T, uid, name string) string {
	t.Helper()
	tok, err := f.verifier.Issue(uid, name, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestCreateRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	tok := f.token(t, "alice", "Alice")

	w := f.do(nethttp.MethodPost, "/api/chat/rooms", tok, map[string]string{"roomName": " Algebra Help "})
	req.Equal(nethttp.StatusCreated, w.Code)
	var room domain.Room
	req.NoError(json.Unmarshal(w.Body.Bytes(), &room))
	req.Equal(domain.RoomName("Algebra Help"), room.Name)
	req.Equal([]domain.UserID{"alice"}, room.Participants)

	w = f.do(nethttp.MethodPost, "/api/chat/rooms", f.token(t, "bob", ""), map[string]string{"roomName": "Algebra Help"})
	req.Equal(nethttp.StatusConflict, w.Code)
	req.JSONEq(`{"error":"room already exists"}`, w.Body.String())

	w = f.do(nethttp.MethodPost, "/api/chat/rooms", tok, map[string]string{"roomName": "   "})
	req.Equal(nethttp.StatusBadRequest, w.Code)

	w = f.do(nethttp.MethodPost, "/api/chat/rooms", tok, map[string]string{})
	req.Equal(nethttp.StatusBadRequest, w.Code)
	req.Contains(w.Body.String(), "RoomName")
}

func TestRoutes_RequireToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	w := f.do(nethttp.MethodGet, "/api/chat/rooms", "", nil)
	req.Equal(nethttp.StatusUnauthorized, w.Code)

	w = f.do(nethttp.MethodGet, "/api/chat/rooms", "not-a-jwt", nil)
	req.Equal(nethttp.StatusUnauthorized, w.Code)
}

func TestToken_FillsUserReplica(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	w := f.do(nethttp.MethodGet, "/api/chat/rooms", f.token(t, "alice", "Alice A."), nil)
	req.Equal(nethttp.StatusOK, w.Code)

	u, err := f.users.GetUser(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice A.", u.Username)
	req.Equal([]domain.UserID{"alice"}, f.names.forgotten)
}

func TestListRooms_AndMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.token(t, "alice", "Alice")
	bob := f.token(t, "bob", "Bob")

	w := f.do(nethttp.MethodPost, "/api/chat/rooms", alice, map[string]string{"roomName": "Algebra"})
	req.Equal(nethttp.StatusCreated, w.Code)
	var room domain.Room
	req.NoError(json.Unmarshal(w.Body.Bytes(), &room))

	w = f.do(nethttp.MethodGet, "/api/chat/rooms", bob, nil)
	req.Equal(nethttp.StatusOK, w.Code)
	var all []domain.RoomSummary
	req.NoError(json.Unmarshal(w.Body.Bytes(), &all))
	req.Len(all, 1)
	req.Equal("Alice", all[0].CreatorName)

	w = f.do(nethttp.MethodGet, "/api/chat/rooms?scope=mine", bob, nil)
	req.Equal(nethttp.StatusOK, w.Code)
	req.JSONEq(`[]`, w.Body.String())

	w = f.do(nethttp.MethodGet, "/api/chat/rooms/"+string(room.ID)+"/messages", bob, nil)
	req.Equal(nethttp.StatusOK, w.Code)
	req.JSONEq(`[]`, w.Body.String())

	w = f.do(nethttp.MethodGet, "/api/chat/rooms/nope/messages", bob, nil)
	req.Equal(nethttp.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	w := f.do(nethttp.MethodGet, "/healthz", "", nil)
	req.Equal(nethttp.StatusOK, w.Code)
	req.Contains(w.Body.String(), `"status":"ok"`)

	w = f.do(nethttp.MethodGet, "/metrics", "", nil)
	req.Equal(nethttp.StatusOK, w.Code)
	req.Contains(w.Body.String(), "studyhall_sessions_active")
}

func TestWebsocket_InheritsCookieUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	// Given a REST call that logged alice into the cookie session
	w := f.do(nethttp.MethodGet, "/api/chat/rooms", f.token(t, "alice", "Alice"), nil)
	req.Equal(nethttp.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	req.NotEmpty(cookies)

	// When the websocket connects with that cookie
	header := nethttp.Header{}
	for _, c := range cookies {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/chat"
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)
	t.Cleanup(func() { _ = ws.Close() })

	// Then the session already knows who it is
	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"whoami"}`)))
	req.NoError(ws.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, data, err := ws.ReadMessage()
	req.NoError(err)
	var who struct {
		Type string       `json:"type"`
		User *domain.User `json:"user"`
	}
	req.NoError(json.Unmarshal(data, &who))
	req.Equal("whoami", who.Type)
	req.NotNil(who.User)
	req.Equal(domain.UserID("alice"), who.User.ID)
}
