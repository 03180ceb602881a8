package orch

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/app"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// Join binds the session to roomID and pushes the room history to it alone.
// A session is in at most one room; joining elsewhere leaves the old one.
// If the room does not exist the session keeps its prior state.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, roomID domain.RoomID) (domain.Room, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.Room{}, domain.ErrSessionUnknown
	}
	user := sess.Meta().User
	if user == nil {
		return domain.Room{}, domain.ErrAnonymous
	}
	room, err := o.Directory.Get(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.HasParticipant(user.ID) {
		if err := o.Directory.AddParticipant(ctx, roomID, user.ID); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("participant not recorded")
		} else {
			room.Participants = append(room.Participants, user.ID)
		}
	}

	ch := o.Rooms.GetOrCreate(roomID)
	// Membership and replay happen under the room's ordering lock: every
	// message appended before this point is in the replay, every later one
	// reaches the session through the broadcast, and none is seen twice.
	err = ch.Sequence(func() error {
		history, err := o.History.Replay(ctx, roomID)
		if err != nil {
			return err
		}
		frame, err := app.Encode(app.HistoryEvent{Type: app.EventHistory, Room: roomID, Messages: history})
		if err != nil {
			return err
		}
		o.cleanupMembership(sid)
		ch.AddMember(sid, sess)
		o.Registry.UpdateRoom(sid, roomID)
		if sc := sess.Signal(); sc != nil {
			if err := sc.TrySend(frame); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("history not queued")
			}
		}
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("joined room")
	return room, nil
}

// Leave returns the session to the connected state.
func (o *Orchestrator) Leave(sid core.SessionID) (domain.RoomID, bool) {
	roomID, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", false
	}
	o.cleanupMembership(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left room")
	return roomID, true
}

func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.cleanupMembership(sid)
}

func (o *Orchestrator) cleanupMembership(sid core.SessionID) {
	roomID, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if room, ok := o.Rooms.Get(roomID); ok {
		room.RemoveMember(sid)
	}
	o.Registry.RemoveRoom(sid)
}
