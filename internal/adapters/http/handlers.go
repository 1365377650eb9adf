package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PlayRequest struct {
	Query string `json:"query" binding:"required"`
}

type PlayResponse struct {
	Room  domain.RoomID `json:"room"`
	Track domain.Track  `json:"track"`
}

// API serves the REST surface over the orchestrator.
type API struct {
	Orch *orch.Orchestrator
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": a.Orch.Sessions.Len()})
}

func (a *API) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.Orch.Rooms()})
}

func (a *API) Queue(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.Orch.Queue(room))
}

func (a *API) Play(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid query"})
		return
	}
	track, err := a.Orch.Play(c.Request.Context(), room, req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, PlayResponse{Room: room, Track: track})
}

func (a *API) Skip(c *gin.Context)   { a.control(c, a.Orch.Skip) }
func (a *API) Stop(c *gin.Context)   { a.control(c, a.Orch.Stop) }
func (a *API) Pause(c *gin.Context)  { a.control(c, a.Orch.Pause) }
func (a *API) Resume(c *gin.Context) { a.control(c, a.Orch.Resume) }

func (a *API) control(c *gin.Context, op func(domain.RoomID) error) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	if err := op(room); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.Orch.Queue(room))
}

func (a *API) EvictRoom(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	a.Orch.EvictRoom(room)
	c.Status(http.StatusNoContent)
}

func roomParam(c *gin.Context) (domain.RoomID, bool) {
	room, err := domain.ParseRoomID(c.Param("room"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return room, true
}

// StatusOf maps domain errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNoSession), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrConnectFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrNotInRoom):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
