package signal

import (
	"encoding/json"
	"sort"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

type MemberDTO struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Listening bool          `json:"listening"`
}

func (ctl *SignalWSController) membersOf(room domain.RoomID) []MemberDTO {
	snaps := ctl.Orch.Presence.MembersOfRoom(room)
	out := make([]MemberDTO, 0, len(snaps))
	for _, snap := range snaps {
		u := snap.Session.Meta().User
		out = append(out, MemberDTO{
			ID:        u.ID,
			Username:  u.Username,
			Listening: snap.Session.Listener() != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		sendError(conn, "bad_payload")
		return
	}
	room, err := domain.ParseRoomID(p.Room)
	if err != nil {
		sendError(conn, "bad_room")
		return
	}

	if p.Name != "" {
		if err := ctl.Orch.Presence.UpdateUsername(sid, p.Name); err != nil {
			sendError(conn, "invalid_name")
			return
		}
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("rename on join")
	}

	from, _, wasIn := ctl.Orch.Presence.RoomOf(sid)
	user := ctl.Orch.Presence.GetOrCreateUser(sid)
	if wasIn && from != room {
		ctl.BroadcastFrom(sid, struct {
			Type string      `json:"type"`
			User domain.User `json:"user"`
		}{"member_left", *user})
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("join")
	if !ctl.Orch.Join(sid, room) {
		sendError(conn, "not_connected")
		return
	}

	members := ctl.membersOf(room)
	queue := ctl.Orch.Queue(room)
	clientResp := struct {
		Type    string        `json:"type"`
		Room    domain.RoomID `json:"room"`
		Members []MemberDTO   `json:"members"`
		Count   int           `json:"count"`
		State   string        `json:"state"`
		Queue   []string      `json:"queue"`
	}{
		Type:    "room_state",
		Room:    room,
		Members: members,
		Count:   len(members),
		State:   queue.State,
		Queue:   queue.Tracks,
	}
	sendJSON(conn, clientResp)

	broadcastResp := struct {
		Type string      `json:"type"`
		User domain.User `json:"user"`
	}{
		Type: "member_joined",
		User: *user,
	}
	ctl.BroadcastFrom(sid, broadcastResp)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	room, _, ok := ctl.Orch.Presence.RoomOf(sid)

	ctl.Orch.Leave(sid)
	sendJSON(conn, map[string]any{
		"type": "left",
	})

	if ok {
		user := ctl.Orch.Presence.GetOrCreateUser(sid)

		broadcastResp := struct {
			Type string      `json:"type"`
			User domain.User `json:"user"`
		}{
			Type: "member_left",
			User: *user,
		}
		ctl.BroadcastRoom(room, broadcastResp)
	}
}
