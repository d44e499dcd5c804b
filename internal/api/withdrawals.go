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

package api

import (
	"net/http"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// withdrawRequest names the counterparty: a receiver withdraws at an
// organization, an organization withdraws on behalf of a receiver.
type withdrawRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	OrganizationId string          `json:"organization_id"`
	ReceiverId     string          `json:"receiver_id"`
}

type sendRequest struct {
	ReceiverId string          `json:"receiver_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	caller := callerOf(c)
	organizationId, receiverId := req.OrganizationId, caller.UserId
	if caller.Role == models.RoleOrganization {
		organizationId, receiverId = caller.UserId, req.ReceiverId
	}
	if organizationId == "" || receiverId == "" {
		writeError(c, apperrors.New(apperrors.InvalidInput, apperrors.InvalidInput, "organization and receiver are required"))
		return
	}

	tx, err := s.deps.Payments.Withdraw(c.Request.Context(), req.Amount, organizationId, receiverId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tx, err := s.deps.Payments.Send(c.Request.Context(), callerOf(c).UserId, req.ReceiverId, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}
