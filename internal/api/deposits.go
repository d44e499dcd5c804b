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

	"donneur-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type initiateDonationRequest struct {
	ReceiverId string          `json:"receiver_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type cancelDonationRequest struct {
	ClientSecret string `json:"client_secret" binding:"required"`
}

// processorEvent is the subset of the processor's webhook payload that
// identifies a succeeded payment.
type processorEvent struct {
	Data struct {
		Object struct {
			Id            string `json:"id"`
			PaymentMethod string `json:"payment_method"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Server) handleDonationProfile(c *gin.Context) {
	profile, err := s.deps.Identity.DonationProfile(c.Request.Context(), c.Param("receiverId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleInitiateDonation(c *gin.Context) {
	var req initiateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	secret, err := s.deps.Payments.InitiateDonation(c.Request.Context(), req.ReceiverId, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client_secret": secret})
}

// handleConfirmDonation receives the processor's success webhook.
func (s *Server) handleConfirmDonation(c *gin.Context) {
	var event processorEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		badRequest(c, err)
		return
	}

	payload := models.DonationConfirmation{
		IntentId:        event.Data.Object.Id,
		PaymentMethodId: event.Data.Object.PaymentMethod,
	}
	tx, err := s.deps.Payments.ConfirmDonation(c.Request.Context(), payload)
	if err != nil {
		zap.L().Warn("Donation confirmation rejected",
			zap.String("intent_id", payload.IntentId),
			zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleCancelDonation(c *gin.Context) {
	var req cancelDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.deps.Payments.CancelDonation(c.Request.Context(), req.ClientSecret); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
