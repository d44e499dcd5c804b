package common

import (
	"fmt"
	"os"
	"path/filepath"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"gopkg.in/yaml.v2"
)

type OrganizationSeed struct {
	Name         string         `yaml:"name"`
	Address      models.Address `yaml:"address"`
	Phone        string         `yaml:"phone"`
	Description  string         `yaml:"description"`
	MaxOccupancy *int           `yaml:"max_occupancy"`
}

type OrganizationsFile struct {
	Organizations []OrganizationSeed `yaml:"organizations"`
}

// Params converts the seed into store creation parameters.
func (o OrganizationSeed) Params() store.CreateOrganizationParams {
	return store.CreateOrganizationParams{
		Name:         o.Name,
		Address:      o.Address,
		Phone:        o.Phone,
		Description:  o.Description,
		MaxOccupancy: o.MaxOccupancy,
	}
}

func LoadOrganizations(seedFile string) ([]OrganizationSeed, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	return ParseOrganizations(data)
}

func ParseOrganizations(data []byte) ([]OrganizationSeed, error) {
	var file OrganizationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse organizations: %w", err)
	}

	for i, org := range file.Organizations {
		if org.Name == "" {
			return nil, fmt.Errorf("organization at index %d missing name", i)
		}
		if org.Address.City == "" {
			return nil, fmt.Errorf("organization %q missing city", org.Name)
		}
		if org.MaxOccupancy != nil && *org.MaxOccupancy < 0 {
			return nil, fmt.Errorf("organization %q has negative max_occupancy", org.Name)
		}
	}

	return file.Organizations, nil
}
