// Package orch wires session state, room channels and persistence together.
// Every realtime chat operation enters the system through an Orchestrator.
package orch

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/app"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/metrics"
)

type Orchestrator struct {
	Registry  *app.Registry
	Rooms     core.RoomManager
	Directory *app.Directory
	History   *app.History
	Policy    app.Policy

	// MaxMessageLen caps message text in runes. Zero disables the check.
	MaxMessageLen int
}

// Connect registers a fresh session. user may be nil until the client identifies.
func (o *Orchestrator) Connect(sid core.SessionID, user *domain.User, conn core.SignalConnection, cancel context.CancelFunc) {
	sess := core.NewMemberSession(domain.NewMember(user)).UpdateSignal(conn)
	o.Registry.BindSignal(sid, sess, cancel)
	metrics.SessionsActive.Inc()
}

// Identify attaches a user to an anonymous session.
func (o *Orchestrator) Identify(sid core.SessionID, user *domain.User) error {
	if _, ok := o.Registry.GetSession(sid); !ok {
		return domain.ErrSessionUnknown
	}
	if _, ok := o.Registry.SetUser(sid, user); !ok {
		return domain.ErrIdentityClash
	}
	return nil
}

// Send appends text to the session's room and fans it out to every member,
// the sender included. A nil message with a nil error means the text was blank.
func (o *Orchestrator) Send(ctx context.Context, sid core.SessionID, text string) (*domain.EnrichedMessage, error) {
	roomID, sess, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if o.MaxMessageLen > 0 && utf8.RuneCountInString(text) > o.MaxMessageLen {
		return nil, domain.ErrMessageTooLong
	}
	user := sess.Meta().User
	if user == nil {
		return nil, domain.ErrAnonymous
	}

	room := o.Rooms.GetOrCreate(roomID)
	var (
		msg domain.EnrichedMessage
		res core.PublishResult
	)
	err := room.Sequence(func() error {
		var err error
		msg, err = o.History.Append(ctx, roomID, user.ID, text)
		if err != nil {
			return err
		}
		frame, err := app.Encode(app.MessageEvent{Type: app.EventMessage, Message: msg})
		if err != nil {
			return err
		}
		res = room.Broadcast(frame)
		return nil
	})
	if err != nil {
		metrics.AppendFailures.Inc()
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("append failed, nothing broadcast")
		return nil, err
	}
	metrics.MessagesAppended.Inc()
	log.Debug().Str("module", "orch").Str("room", string(roomID)).Uint64("seq", msg.Seq).Int("send_to", res.SendTo).Msg("message delivered")

	o.applyPolicy(room, res)
	return &msg, nil
}

func (o *Orchestrator) applyPolicy(room core.RoomService, res core.PublishResult) {
	for _, slow := range res.Dropped {
		metrics.BroadcastDropped.Inc()
		if o.Policy == nil {
			continue
		}
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow)).Str("room", string(room.ID())).Msg("kicking slow session")
			o.KickBySID(slow)
			o.Registry.Cancel(slow)
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}

// OnDisconnect releases everything the session held. It is safe to call twice.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	if _, ok := o.Registry.GetSession(sid); !ok {
		return
	}
	o.cleanupMembership(sid)
	o.Registry.Unbind(sid)
	metrics.SessionsActive.Dec()
}
