package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/pkg/db/pagination"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

// Me returns the caller's profile snapshot.
func (s *Server) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.identitySvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListRooms returns every room the caller belongs to, most recently
// active first.
func (s *Server) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rooms, err := s.roomSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rooms})
}

func (s *Server) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	view, err := s.roomSvc.Create(c.Request.Context(), userID, roomdomain.CreateRoomRequest{Name: req.Name})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordRoomCreated(c.Request.Context())
	c.JSON(http.StatusCreated, view)
}

func (s *Server) GetRoom(c *gin.Context) {
	view, err := s.roomSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// JoinRoom adds the caller to a room resolved by invite code or id. Joining
// twice is a no-op success. The guard in front throttles code guessing.
func (s *Server) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if s.joinLimiter.Enabled() {
		allowed, retryAfter, err := s.joinLimiter.AllowJoin(c.Request.Context(), userID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "join", "rate")
			if secs := int(retryAfter.Seconds()) + 1; secs > 0 {
				c.Header("Retry-After", strconv.Itoa(secs))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "join")
	}

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	view, err := s.roomSvc.Join(c.Request.Context(), userID, req.Code)
	if err != nil {
		s.obsMetrics.RecordRoomJoin(c.Request.Context(), "error")
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordRoomJoin(c.Request.Context(), "ok")
	c.JSON(http.StatusOK, view)
}

// AdvanceTurn confirms the current payer's turn and rotates the token.
func (s *Server) AdvanceTurn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.rotationSvc.Advance(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListTurns pages through a room's turn history, newest first.
func (s *Server) ListTurns(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	turns, err := s.rotationSvc.ListTurns(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, turns)
}
