package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"donneur-go/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type postRequest struct {
	Content    json.RawMessage `json:"content" binding:"required"`
	Visibility string          `json:"visibility" binding:"required"`
}

func (s *Server) handleGetFeed(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		writeError(c, apperrors.New(apperrors.InvalidInput, apperrors.InvalidInput, "page must be an integer"))
		return
	}
	posts, err := s.deps.Feed.GetFeed(c.Request.Context(), callerOf(c).UserId, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := s.deps.Feed.CreatePost(c.Request.Context(), callerOf(c).UserId, req.Content, req.Visibility)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleReplyToPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := s.deps.Feed.ReplyToPost(c.Request.Context(), callerOf(c).UserId, c.Param("id"), req.Content, req.Visibility)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.deps.Feed.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	if err := s.deps.Feed.DeletePost(c.Request.Context(), callerOf(c).UserId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLikePost(c *gin.Context) {
	if err := s.deps.Feed.LikePost(c.Request.Context(), callerOf(c).UserId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnlikePost(c *gin.Context) {
	if err := s.deps.Feed.UnlikePost(c.Request.Context(), callerOf(c).UserId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetUserPosts(c *gin.Context) {
	posts, err := s.deps.Feed.GetUserPosts(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}
