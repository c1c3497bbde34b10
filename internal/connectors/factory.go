package connectors

import (
	"fmt"

	"go-crm-sync/internal/config"
	"go-crm-sync/internal/database"
)

// NewCRMApplier picks the applier for the configured target store
func NewCRMApplier(cfg *config.Config, db *database.MongodbDB) (CRMApplier, error) {
	switch cfg.TargetDBType {
	case "", "mongodb":
		return NewMongoApplier(db), nil
	case "postgres":
		return NewPostgresApplier(cfg.TargetDBConfig)
	default:
		return nil, fmt.Errorf("unsupported target DB type: %s", cfg.TargetDBType)
	}
}
