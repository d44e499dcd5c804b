package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addFriendRequest struct {
	UserId string `json:"user_id" binding:"required"`
}

type replyRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) handleGetFriends(c *gin.Context) {
	friends, err := s.deps.Social.GetFriends(c.Request.Context(), callerOf(c).UserId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (s *Server) handleAddFriend(c *gin.Context) {
	var req addFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	friendship, err := s.deps.Social.AddFriend(c.Request.Context(), callerOf(c).UserId, req.UserId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, friendship)
}

func (s *Server) handleReplyToRequest(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.deps.Social.ReplyToRequest(c.Request.Context(), callerOf(c).UserId, c.Param("id"), req.Accept); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveFriend(c *gin.Context) {
	if err := s.deps.Social.RemoveFriend(c.Request.Context(), callerOf(c).UserId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetSubscriptions(c *gin.Context) {
	ids, err := s.deps.Social.GetSubscriptions(c.Request.Context(), callerOf(c).UserId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) handleSubscribe(c *gin.Context) {
	if err := s.deps.Social.Subscribe(c.Request.Context(), callerOf(c).UserId, c.Param("organizationId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	if err := s.deps.Social.Unsubscribe(c.Request.Context(), callerOf(c).UserId, c.Param("organizationId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
