package api

import (
	"io"
	"net/http"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20

type registerReceiverRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"dob"`
	Email       string `json:"email"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type createOrganizationRequest struct {
	Name         string         `json:"name"`
	Address      models.Address `json:"address"`
	Phone        string         `json:"phone"`
	Description  string         `json:"description"`
	MaxOccupancy *int           `json:"max_occupancy"`
}

type occupancyRequest struct {
	Occupancy *int `json:"occupancy" binding:"required"`
}

func (s *Server) handleRegisterReceiver(c *gin.Context) {
	var req registerReceiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	receiver, err := s.deps.Identity.RegisterReceiver(ctx, req.FirstName, req.LastName, req.DateOfBirth)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Email != "" {
		if err := s.deps.Identity.SetReceiverEmail(ctx, receiver.Id, req.Email); err != nil {
			writeError(c, err)
			return
		}
		receiver.Email = req.Email
	}
	c.JSON(http.StatusCreated, receiver)
}

// handleGetReceiver returns the full receiver record to organizations and
// to the receiver itself.
func (s *Server) handleGetReceiver(c *gin.Context) {
	caller, id := callerOf(c), c.Param("id")
	if caller.Role != models.RoleOrganization && caller.UserId != id {
		writeError(c, apperrors.New(apperrors.Unauthorized, apperrors.Unauthorized, "receiver %s", id))
		return
	}
	receiver, err := s.deps.Identity.GetReceiver(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiver)
}

func (s *Server) handleSetReceiverEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.deps.Identity.SetReceiverEmail(c.Request.Context(), c.Param("id"), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSendAccountLink(c *gin.Context) {
	link, err := s.deps.Identity.SendAccountCreationLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"link": link})
}

func (s *Server) handleVerifyAccountLink(c *gin.Context) {
	valid, err := s.deps.Identity.VerifyAccountCreationLink(c.Request.Context(), c.Param("receiverId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) handleCreateAppAccount(c *gin.Context) {
	authUID := c.GetString(subjectKey)
	if err := s.deps.Identity.CreateAppAccount(c.Request.Context(), c.Param("receiverId"), authUID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleCreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	org, err := s.deps.Identity.CreateOrganization(c.Request.Context(), store.CreateOrganizationParams{
		Name:         req.Name,
		Address:      req.Address,
		Phone:        req.Phone,
		Description:  req.Description,
		MaxOccupancy: req.MaxOccupancy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (s *Server) handleListOrganizations(c *gin.Context) {
	orgs, err := s.deps.Identity.ListOrganizations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

func (s *Server) handleGetOrganization(c *gin.Context) {
	org, err := s.deps.Identity.GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (s *Server) handleGetOccupancy(c *gin.Context) {
	occupancy, maxOccupancy, err := s.deps.Identity.GetOccupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupancy": occupancy, "max_occupancy": maxOccupancy})
}

func (s *Server) handleSetOccupancy(c *gin.Context) {
	id := c.Param("id")
	if callerOf(c).UserId != id {
		writeError(c, apperrors.New(apperrors.Unauthorized, apperrors.Unauthorized, "organization %s", id))
		return
	}
	var req occupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.deps.Identity.SetOccupancy(c.Request.Context(), id, *req.Occupancy); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleUploadMedia stores an image for the caller. Organizations may
// upload a receiver's documents by passing owner_id.
func (s *Server) handleUploadMedia(c *gin.Context) {
	caller := callerOf(c)
	ownerId := caller.UserId
	if owner := c.Query("owner_id"); owner != "" && owner != ownerId {
		if caller.Role != models.RoleOrganization {
			writeError(c, apperrors.New(apperrors.Unauthorized, apperrors.Unauthorized, "cannot upload for %s", owner))
			return
		}
		ownerId = owner
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize))
	if err != nil {
		badRequest(c, err)
		return
	}

	url, err := s.deps.Identity.SetProfileMedia(c.Request.Context(), ownerId, c.Param("type"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
