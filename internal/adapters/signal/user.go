package signal

import (
	"encoding/json"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rename payload")
		sendError(conn, "bad_payload")
		return
	}
	if p.Name == "" {
		sendError(conn, "empty name")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	if err := ctl.Orch.Presence.UpdateUsername(sid, p.Name); err != nil {
		sendError(conn, "invalid_name")
		return
	}
	ctl.handleWhoAmI(sid, conn)
	user := ctl.Orch.Presence.GetOrCreateUser(sid)

	broadcastResp := struct {
		Type string      `json:"type"`
		User domain.User `json:"user"`
	}{
		Type: "member_updated",
		User: *user,
	}
	ctl.BroadcastFrom(sid, broadcastResp)
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	user := ctl.Orch.Presence.GetOrCreateUser(sid)

	resp := struct {
		Type     string        `json:"type"`
		ID       domain.UserID `json:"id"`
		Username string        `json:"username"`
		Room     domain.RoomID `json:"room,omitempty"`
	}{
		Type:     "whoami",
		ID:       user.ID,
		Username: user.Username,
	}
	if room, ok := ctl.Orch.RoomOf(sid); ok {
		resp.Room = room
	}
	sendJSON(conn, resp)
}
