package signal

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// handleJoin binds the session to a room. A session opened without a login
// cookie identifies itself through the optional "user" field.
func (ctl *SignalWSController) handleJoin(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		User string `json:"user,omitempty"`
		Name string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, CodeBadPayload)
		return
	}

	if p.User != "" {
		user, err := domain.NewUser(domain.UserID(p.User), p.Name)
		if err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
		if err := ctl.Orch.Identify(sid, user); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("identify refused")
			ctl.sendError(conn, errorCode(err))
			return
		}
	}

	room, err := ctl.Orch.Join(ctx, sid, domain.RoomID(p.Room))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join failed")
		ctl.sendError(conn, errorCode(err))
		return
	}
	resp := struct {
		Type    string           `json:"type"`
		Room    domain.Room      `json:"room"`
		Members []core.MemberDTO `json:"members"`
	}{
		Type: "joined",
		Room: room,
	}
	if ch, ok := ctl.Orch.Rooms.Get(room.ID); ok {
		resp.Members = ch.MembersSnapshot()
	}
	ctl.sendJSON(conn, resp)
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	roomID, ok := ctl.Orch.Leave(sid)
	if !ok {
		ctl.sendError(conn, CodeNotInRoom)
		return
	}
	ctl.sendJSON(conn, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{
		Type: "left",
		Room: roomID,
	})
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	resp := struct {
		Type string        `json:"type"`
		User *domain.User  `json:"user"`
		Room domain.RoomID `json:"room,omitempty"`
	}{
		Type: "whoami",
	}
	if sess, ok := ctl.Orch.Registry.GetSession(sid); ok {
		resp.User = sess.Meta().User
	}
	if roomID, _, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		resp.Room = roomID
	}
	ctl.sendJSON(conn, resp)
}
