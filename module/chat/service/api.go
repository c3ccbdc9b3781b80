package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LPChat/logger"
	mid "LPChat/middleware/security"
	"LPChat/module/chat/model"
	"LPChat/service/storage"
	"LPChat/tools/errs"
)

// API serves the room catalog and message history over REST. The chat
// client's directory and history collaborators are HTTP adapters over
// these routes.
type API struct {
	store    *model.Store
	pageSize int64
}

func NewAPI(store *model.Store, pageSize int) *API {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &API{store: store, pageSize: int64(pageSize)}
}

func (a *API) Mount(rg *gin.RouterGroup) {
	rg.GET("/rooms/public", a.listPublicRooms)
	rg.GET("/rooms/private", a.listPrivateRooms)
	rg.POST("/rooms/direct", a.createOrGetDirectRoom)
	rg.GET("/rooms/:id", a.getRoom)
	rg.GET("/rooms/:id/messages", a.listMessages)
	rg.GET("/presence/:id", a.getPresence)
}

func (a *API) listPublicRooms(c *gin.Context) {
	rooms, err := a.store.ListPublicRooms(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] list public rooms: %v", err)
		c.JSON(http.StatusServiceUnavailable, errs.ErrDirectoryUnavailable)
		return
	}
	// live participant-count signal overrides the stored approximation
	for _, r := range rooms {
		if n, err := storage.RoomMemberCount(r.RoomID); err == nil && n > 0 {
			r.MemberCount = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (a *API) listPrivateRooms(c *gin.Context) {
	userID := mid.UserID(c)
	rooms, err := a.store.ListPrivateRoomsFor(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("[api] list private rooms user=%s: %v", userID, err)
		c.JSON(http.StatusServiceUnavailable, errs.ErrDirectoryUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type directRoomReq struct {
	TargetUserID      string `json:"target_user_id" binding:"required"`
	TargetDisplayName string `json:"target_display_name"`
}

func (a *API) createOrGetDirectRoom(c *gin.Context) {
	var req directRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	me := model.Participant{ID: mid.UserID(c), DisplayName: mid.DisplayName(c)}
	target := model.Participant{ID: req.TargetUserID, DisplayName: req.TargetDisplayName}
	room, err := a.store.CreateOrGetDirectRoom(c.Request.Context(), me, target)
	if err != nil {
		logger.Errorf("[api] direct room %s<->%s: %v", me.ID, target.ID, err)
		c.JSON(http.StatusServiceUnavailable, errs.ErrDirectoryUnavailable)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (a *API) getRoom(c *gin.Context) {
	room, err := a.store.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errs.ErrRoomNotFound.Is(err) {
			c.JSON(http.StatusNotFound, errs.ErrRoomNotFound)
			return
		}
		c.JSON(http.StatusServiceUnavailable, errs.ErrDirectoryUnavailable)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (a *API) getPresence(c *gin.Context) {
	userID := c.Param("id")
	node, online, err := storage.PresenceLookup(userID)
	if err != nil {
		logger.Errorf("[api] presence user=%s: %v", userID, err)
		c.JSON(http.StatusServiceUnavailable, errs.ErrDirectoryUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": online, "node": node})
}

func (a *API) listMessages(c *gin.Context) {
	roomID := c.Param("id")
	limit := a.pageSize
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.ParseInt(q, 10, 64); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	var before int64
	if q := c.Query("before"); q != "" {
		if n, err := strconv.ParseInt(q, 10, 64); err == nil {
			before = n
		}
	}

	// history for a private room is participants-only
	room, err := a.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errs.ErrRoomNotFound.Is(err) {
			c.JSON(http.StatusNotFound, errs.ErrRoomNotFound)
			return
		}
		c.JSON(http.StatusServiceUnavailable, errs.ErrHistoryFetchFailure)
		return
	}
	if !room.HasParticipant(mid.UserID(c)) {
		c.JSON(http.StatusForbidden, errs.ErrJoinDenied)
		return
	}

	msgs, err := a.store.FetchMessages(c.Request.Context(), roomID, limit, before)
	if err != nil {
		logger.Errorf("[api] fetch messages room=%s: %v", roomID, err)
		c.JSON(http.StatusServiceUnavailable, errs.ErrHistoryFetchFailure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
