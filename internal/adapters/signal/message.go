package signal

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// handleMessage appends text to the current room. The message itself comes
// back to the sender through the room broadcast, not as a direct reply.
func (ctl *SignalWSController) handleMessage(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(conn, CodeBadPayload)
		return
	}

	key := string(sid)
	if sess, ok := ctl.Orch.Registry.GetSession(sid); ok && sess.Meta().User != nil {
		key = string(sess.Meta().User.ID)
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(key) {
		ctl.sendError(conn, errorCode(domain.ErrRateLimited))
		return
	}

	if _, err := ctl.Orch.Send(ctx, sid, p.Text); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}
