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
	"go.uber.org/zap"
)

func (s *Server) handleBalance(c *gin.Context) {
	s.writeBalance(c, callerOf(c).UserId)
}

func (s *Server) handleReceiverBalance(c *gin.Context) {
	s.writeBalance(c, c.Param("id"))
}

func (s *Server) writeBalance(c *gin.Context, receiverId string) {
	balance, err := s.deps.Ledger.GetBalance(c.Request.Context(), receiverId)
	if err != nil {
		writeError(c, err)
		return
	}

	zap.L().Debug("Balance retrieved",
		zap.String("receiver_id", receiverId),
		zap.String("balance", balance.String()))
	c.JSON(http.StatusOK, models.BalanceResponse{
		ReceiverId: receiverId,
		Balance:    balance,
		Currency:   s.deps.Currency,
	})
}

func (s *Server) handleListTransactions(c *gin.Context) {
	records, err := s.deps.Transactions.ListFor(c.Request.Context(), callerOf(c).UserId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
