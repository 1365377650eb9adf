package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

const replyRateLimited = "⏳ Slow down, too many commands."

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (ctl *SignalWSController) handleCommand(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type commandPayload struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	var p commandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad command payload")
		sendError(conn, "bad_payload")
		return
	}

	if !ctl.Limiter.Allow(domain.UserID(sid)) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("command rate limited")
		sendJSON(conn, replyMessage{Type: "reply", Text: replyRateLimited})
		return
	}

	reply, handled := ctl.Commands.Handle(ctx, sid, p.Text)
	if !handled {
		sendError(conn, "unknown_command")
		return
	}
	if reply != "" {
		sendJSON(conn, replyMessage{Type: "reply", Text: reply})
	}
}
