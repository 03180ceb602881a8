package http

import (
	"errors"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/adapters/signal"
	"github.com/studyhall/server/internal/app"
	"github.com/studyhall/server/internal/app/orch"
	"github.com/studyhall/server/internal/domain"
)

type chatHandlers struct {
	orch *orch.Orchestrator
}

type createRoomRequest struct {
	RoomName string `json:"roomName" binding:"required"`
}

func currentUser(c *gin.Context) *domain.User {
	v, _ := c.Get(signal.AuthUserKey)
	u, _ := v.(*domain.User)
	return u
}

func (h *chatHandlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	room, err := h.orch.Directory.CreateRoom(c.Request.Context(), req.RoomName, currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(nethttp.StatusCreated, room)
}

func (h *chatHandlers) listRooms(c *gin.Context) {
	scope := app.ParseScope(c.Query("scope"))
	rooms, err := h.orch.Directory.ListRooms(c.Request.Context(), currentUser(c).ID, scope)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, rooms)
}

func (h *chatHandlers) roomMessages(c *gin.Context) {
	msgs, err := h.orch.History.Replay(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, msgs)
}

func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
		return
	}
	c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid request"})
}

func writeError(c *gin.Context, err error) {
	status := nethttp.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRoomName), errors.Is(err, domain.ErrUserIDEmpty):
		status = nethttp.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateName):
		status = nethttp.StatusConflict
	case errors.Is(err, domain.ErrRoomNotFound):
		status = nethttp.StatusNotFound
	case errors.Is(err, domain.ErrPersistence):
		status = nethttp.StatusServiceUnavailable
	}
	if status >= nethttp.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrDuplicateName):
		msg = domain.ErrDuplicateName.Error()
	case errors.Is(err, domain.ErrInvalidRoomName):
		msg = domain.ErrInvalidRoomName.Error()
	case status >= nethttp.StatusInternalServerError:
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
