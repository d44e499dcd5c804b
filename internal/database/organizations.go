package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateOrganization(ctx context.Context, params store.CreateOrganizationParams) (*models.Organization, error) {
	org := &models.Organization{
		Id:           uuid.New().String(),
		Name:         params.Name,
		Address:      params.Address,
		Phone:        params.Phone,
		Description:  params.Description,
		MaxOccupancy: params.MaxOccupancy,
		CreatedAt:    s.now(),
	}

	var maxOccupancy sql.NullInt64
	if org.MaxOccupancy != nil {
		maxOccupancy = sql.NullInt64{Int64: int64(*org.MaxOccupancy), Valid: true}
	}
	var latitude, longitude sql.NullFloat64
	if org.Address.Latitude != nil && org.Address.Longitude != nil {
		latitude = sql.NullFloat64{Float64: *org.Address.Latitude, Valid: true}
		longitude = sql.NullFloat64{Float64: *org.Address.Longitude, Valid: true}
	}

	addr := org.Address
	_, err := s.db.ExecContext(ctx, queryInsertOrganization,
		org.Id, org.Name, org.Phone, org.Description, maxOccupancy,
		addr.Street, addr.Apt, addr.City, addr.Province, addr.PostalCode, addr.Country,
		latitude, longitude, org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	zap.L().Info("Organization created", zap.String("organization_id", org.Id), zap.String("name", org.Name))
	return org, nil
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var org models.Organization
	var maxOccupancy sql.NullInt64
	var latitude, longitude sql.NullFloat64
	addr := &org.Address
	err := row.Scan(&org.Id, &org.Name, &org.Phone, &org.Description, &org.BannerFile, &org.LogoFile,
		&maxOccupancy, &org.Occupancy,
		&addr.Street, &addr.Apt, &addr.City, &addr.Province, &addr.PostalCode, &addr.Country,
		&latitude, &longitude, &org.CreatedAt)
	if err != nil {
		return nil, err
	}
	if maxOccupancy.Valid {
		n := int(maxOccupancy.Int64)
		org.MaxOccupancy = &n
	}
	if latitude.Valid && longitude.Valid {
		lat, lng := latitude.Float64, longitude.Float64
		addr.Latitude, addr.Longitude = &lat, &lng
	}
	return &org, nil
}

func (s *Service) GetOrganization(ctx context.Context, organizationId string) (*models.Organization, error) {
	org, err := scanOrganization(s.db.QueryRowContext(ctx, queryGetOrganization, organizationId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: organization %s", store.ErrNotFound, organizationId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, queryListOrganizations)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer closeRows(rows)

	var orgs []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}
	return orgs, nil
}

func (s *Service) SetOccupancy(ctx context.Context, organizationId string, occupancy int) error {
	return s.updateOrganization(ctx, queryUpdateOccupancy, occupancy, organizationId)
}

// SetOrganizationMedia stores a media URL in the logo_file or banner_file column.
func (s *Service) SetOrganizationMedia(ctx context.Context, organizationId, field, url string) error {
	switch field {
	case "logo_file":
		return s.updateOrganization(ctx, queryUpdateOrganizationLogo, url, organizationId)
	case "banner_file":
		return s.updateOrganization(ctx, queryUpdateOrganizationBanner, url, organizationId)
	}
	return fmt.Errorf("unknown organization media field %q", field)
}

func (s *Service) updateOrganization(ctx context.Context, query string, value any, organizationId string) error {
	result, err := s.db.ExecContext(ctx, query, value, organizationId)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: organization %s", store.ErrNotFound, organizationId)
	}
	return nil
}
