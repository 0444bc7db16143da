// Package seed loads the fund master list and the asset allocation matrix
// into the store.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed master_data.yaml
var masterData []byte

// MasterData is the content of the seed file.
type MasterData struct {
	Funds       []models.FundMaster      `yaml:"funds"`
	Allocations []models.AssetAllocation `yaml:"allocations"`
}

// Store is the part of the repository the seeder writes to.
type Store interface {
	FundExists(ctx context.Context, fundName string) (bool, error)
	CreateFund(ctx context.Context, fund *models.FundMaster) error
	AllocationExists(ctx context.Context, riskProfile, assetClass string) (bool, error)
	CreateAllocation(ctx context.Context, a *models.AssetAllocation) error
}

// Load parses the embedded master data.
func Load() (*MasterData, error) {
	var md MasterData
	if err := yaml.Unmarshal(masterData, &md); err != nil {
		return nil, fmt.Errorf("failed to parse master data: %w", err)
	}
	return &md, nil
}

// Populate inserts every fund and allocation row that does not exist yet.
// Running it twice leaves the store unchanged.
func Populate(ctx context.Context, store Store, log *logrus.Logger) error {
	md, err := Load()
	if err != nil {
		return err
	}

	inserted := 0
	for i := range md.Funds {
		fund := &md.Funds[i]
		exists, err := store.FundExists(ctx, fund.FundName)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := store.CreateFund(ctx, fund); err != nil {
			return err
		}
		inserted++
	}
	log.Infof("Inserted %d of %d funds into fund master", inserted, len(md.Funds))

	inserted = 0
	for i := range md.Allocations {
		a := &md.Allocations[i]
		exists, err := store.AllocationExists(ctx, a.RiskProfile, a.AssetClass)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := store.CreateAllocation(ctx, a); err != nil {
			return err
		}
		inserted++
	}
	log.Infof("Inserted %d of %d asset allocations", inserted, len(md.Allocations))
	return nil
}
