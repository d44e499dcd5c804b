/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api is the REST surface: it authenticates callers, decodes
// requests, and maps domain failures to HTTP statuses.
package api

import (
	"context"
	"fmt"
	"net/http"

	"donneur-go/internal/feed"
	"donneur-go/internal/identity"
	"donneur-go/internal/ledger"
	"donneur-go/internal/models"
	"donneur-go/internal/payment"
	"donneur-go/internal/social"
	"donneur-go/internal/translog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Verify(ctx context.Context, token string) (models.Caller, error)
	Subject(token string) (string, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Auth         Authenticator
	Identity     *identity.Service
	Payments     *payment.Service
	Ledger       *ledger.Ledger
	Transactions *translog.Log
	Social       *social.Service
	Feed         *feed.Engine
	Health       HealthChecker
	Currency     string
}

type Server struct {
	deps   Dependencies
	router *gin.Engine
}

func NewServer(deps Dependencies, allowedOrigins []string) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors(allowedOrigins))

	s := &Server{deps: deps, router: router}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) HealthCheck(ctx context.Context) error {
	if s.deps.Health == nil {
		return nil
	}
	if err := s.deps.Health.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	r := s.router
	r.GET("/health", s.handleHealth)

	// Donor-facing, unauthenticated.
	r.GET("/donate/:receiverId", s.handleDonationProfile)
	r.POST("/donations", s.handleInitiateDonation)
	r.POST("/donations/cancel", s.handleCancelDonation)
	r.POST("/payments/confirm", s.handleConfirmDonation)
	r.GET("/organizations", s.handleListOrganizations)
	r.GET("/organizations/:id", s.handleGetOrganization)
	r.GET("/organizations/:id/occupancy", s.handleGetOccupancy)
	r.GET("/account/:receiverId/verify", s.handleVerifyAccountLink)

	// Token holders without a linked account yet.
	r.POST("/account/:receiverId", s.requireSubject(), s.handleCreateAppAccount)

	authed := r.Group("/", s.requireCaller())
	{
		org := authed.Group("/", requireRole(models.RoleOrganization))
		org.POST("/receivers", s.handleRegisterReceiver)
		org.PUT("/receivers/:id/email", s.handleSetReceiverEmail)
		org.POST("/receivers/:id/account-link", s.handleSendAccountLink)
		org.GET("/receivers/:id/balance", s.handleReceiverBalance)
		org.POST("/organizations", s.handleCreateOrganization)
		org.PUT("/organizations/:id/occupancy", s.handleSetOccupancy)

		authed.GET("/receivers/:id", s.handleGetReceiver)
		authed.POST("/media/:type", s.handleUploadMedia)

		authed.GET("/balance", requireRole(models.RoleReceiver), s.handleBalance)
		authed.GET("/transactions", s.handleListTransactions)
		authed.POST("/withdrawals", requireRole(models.RoleReceiver, models.RoleOrganization), s.handleWithdraw)
		authed.POST("/send", requireRole(models.RoleReceiver), s.handleSend)

		authed.GET("/friends", s.handleGetFriends)
		authed.POST("/friends", s.handleAddFriend)
		authed.POST("/friends/:id/reply", s.handleReplyToRequest)
		authed.DELETE("/friends/:id", s.handleRemoveFriend)

		receiver := authed.Group("/subscriptions", requireRole(models.RoleReceiver))
		receiver.GET("", s.handleGetSubscriptions)
		receiver.POST("/:organizationId", s.handleSubscribe)
		receiver.DELETE("/:organizationId", s.handleUnsubscribe)

		authed.GET("/feed", s.handleGetFeed)
		authed.POST("/posts", s.handleCreatePost)
		authed.GET("/posts/:id", s.handleGetPost)
		authed.DELETE("/posts/:id", s.handleDeletePost)
		authed.POST("/posts/:id/replies", s.handleReplyToPost)
		authed.POST("/posts/:id/likes", s.handleLikePost)
		authed.DELETE("/posts/:id/likes", s.handleUnlikePost)
		authed.GET("/users/:id/posts", s.handleGetUserPosts)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.HealthCheck(c.Request.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
