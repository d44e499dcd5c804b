package identity

import (
	"context"
	"fmt"
	"strings"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"go.uber.org/zap"
)

// CreateOrganization stores a new organization. Coordinates are looked up
// when a geocoder is configured; a failed lookup leaves them empty.
func (s *Service) CreateOrganization(ctx context.Context, params store.CreateOrganizationParams) (*models.Organization, error) {
	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return nil, apperrors.New(apperrors.InvalidInput, apperrors.InvalidInput, "organization name is required")
	}
	if params.MaxOccupancy != nil && *params.MaxOccupancy < 0 {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidOccupancy, "max occupancy %d", *params.MaxOccupancy)
	}

	params.Address.Latitude, params.Address.Longitude = nil, nil
	if s.geocoder != nil {
		line := AddressLine(params.Address)
		lat, lng, err := s.geocoder.Coordinates(ctx, line)
		if err != nil {
			zap.L().Warn("Unable to geocode organization address",
				zap.String("name", params.Name),
				zap.String("address", line),
				zap.Error(err))
		} else {
			params.Address.Latitude, params.Address.Longitude = &lat, &lng
		}
	}

	org, err := s.organizations.CreateOrganization(ctx, params)
	if err != nil {
		return nil, storeFailure(err)
	}
	zap.L().Info("Organization created", zap.String("organization_id", org.Id), zap.String("name", org.Name))
	return org, nil
}

// AddressLine formats an address the way the geocoder expects it:
// "street city, province postal".
func AddressLine(address models.Address) string {
	return fmt.Sprintf("%s %s, %s %s", address.Street, address.City, address.Province, address.PostalCode)
}

func (s *Service) GetOrganization(ctx context.Context, organizationId string) (*models.Organization, error) {
	org, err := s.organizations.GetOrganization(ctx, organizationId)
	if err != nil {
		return nil, organizationError(err, organizationId)
	}
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.organizations.ListOrganizations(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return orgs, nil
}

// SetOccupancy records the current head count, bounded by max occupancy
// when one is set.
func (s *Service) SetOccupancy(ctx context.Context, organizationId string, occupancy int) error {
	org, err := s.GetOrganization(ctx, organizationId)
	if err != nil {
		return err
	}
	if occupancy < 0 || (org.MaxOccupancy != nil && occupancy > *org.MaxOccupancy) {
		return apperrors.New(apperrors.InvalidInput, ErrInvalidOccupancy, "%d", occupancy)
	}
	if err := s.organizations.SetOccupancy(ctx, organizationId, occupancy); err != nil {
		return organizationError(err, organizationId)
	}
	zap.L().Info("Occupancy updated", zap.String("organization_id", organizationId), zap.Int("occupancy", occupancy))
	return nil
}

// GetOccupancy returns the current and maximum occupancy; max is nil when
// the organization has no limit.
func (s *Service) GetOccupancy(ctx context.Context, organizationId string) (int, *int, error) {
	org, err := s.GetOrganization(ctx, organizationId)
	if err != nil {
		return 0, nil, err
	}
	return org.Occupancy, org.MaxOccupancy, nil
}

// SetProfileMedia uploads an image for a receiver (id_picture, id_document,
// picture) or an organization (logo, banner) and records its URL.
func (s *Service) SetProfileMedia(ctx context.Context, ownerId, mediaType string, data []byte) (string, error) {
	var save func(url string) error
	switch mediaType {
	case "id_picture", "picture", "id_document":
		if _, err := s.GetReceiver(ctx, ownerId); err != nil {
			return "", err
		}
		field := "id_picture_file"
		if mediaType == "id_document" {
			field = "id_document_file"
		}
		save = func(url string) error {
			if err := s.receivers.SetReceiverMedia(ctx, ownerId, field, url); err != nil {
				return receiverError(err, ownerId)
			}
			return nil
		}
	case "logo", "banner":
		if _, err := s.GetOrganization(ctx, ownerId); err != nil {
			return "", err
		}
		field := mediaType + "_file"
		save = func(url string) error {
			if err := s.organizations.SetOrganizationMedia(ctx, ownerId, field, url); err != nil {
				return organizationError(err, ownerId)
			}
			return nil
		}
	default:
		return "", apperrors.New(apperrors.InvalidInput, ErrInvalidMediaType, "%q", mediaType)
	}

	if s.images == nil {
		return "", apperrors.New(apperrors.DependencyFailure, apperrors.DependencyFailure, "no media store configured")
	}
	url, err := s.images.UploadImage(ctx, ownerId, mediaType, data)
	if err != nil {
		return "", err
	}
	if err := save(url); err != nil {
		return "", err
	}

	zap.L().Info("Profile media stored",
		zap.String("owner_id", ownerId),
		zap.String("media_type", mediaType),
		zap.String("url", url))
	return url, nil
}
