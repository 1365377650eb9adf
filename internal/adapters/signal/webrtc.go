package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Jukebox/internal/adapters/rtc"
	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func sendCandidate(c core.SignalConnection, ci webrtc.ICECandidateInit) {
	resp := struct {
		Type          string `json:"type"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid,omitempty"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
	}{
		Type:      "candidate",
		Candidate: ci.Candidate,
	}
	if ci.SDPMid != nil {
		resp.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		resp.SDPMLineIndex = *ci.SDPMLineIndex
	}
	sendJSON(c, resp)
}

// handleOffer starts listening: the room's track is added before the
// offer is applied so the answer carries it.
func (ctl *SignalWSController) handleOffer(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type offerPayload struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		sendError(conn, "bad_payload")
		return
	}
	if _, ok := ctl.Orch.RoomOf(sid); !ok {
		sendError(conn, "not_in_room")
		return
	}

	wc, err := rtc.NewWebRTCConnection(ctl.WebRTC, sid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc new pc")
		sendError(conn, "webrtc_failed")
		return
	}

	wc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		sendCandidate(conn, ci)
	})

	if err = wc.Start(ctx); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc start")
		wc.Close()
		sendError(conn, "webrtc_failed")
		return
	}

	if err := ctl.Orch.Listen(sid, wc); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("listen")
		wc.Close()
		switch {
		case errors.Is(err, orch.ErrNoListening):
			sendError(conn, "listening_unavailable")
		case errors.Is(err, core.ErrNotInRoom):
			sendError(conn, "not_in_room")
		default:
			sendError(conn, "webrtc_failed")
		}
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  p.SDP,
	}

	answer, err := wc.ApplyOfferAndCreateAnswer(offer)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc apply offer")
		wc.Close()
		sendError(conn, "bad_offer")
		return
	}

	sendJSON(conn, map[string]string{
		"type": "answer",
		"sdp":  answer.SDP,
	})
}

func (ctl *SignalWSController) handleCandidate(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type candidatePayload struct {
		Type          string `json:"type"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		sendError(conn, "bad_payload")
		return
	}

	cand := webrtc.ICECandidateInit{
		Candidate: p.Candidate,
	}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex

	sess, ok := ctl.Orch.Presence.GetSession(sid)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("candidate: no session for")
		return
	}
	lc := sess.Listener()
	if lc == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("candidate: no listener connection for")
		return
	}
	if err := lc.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("add ice candidate")
	}
}
