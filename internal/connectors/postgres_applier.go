package connectors

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresApplier writes contacts and deals into external Postgres business
// tables, mirroring the Mongo applier's upsert semantics with
// ON CONFLICT clauses keyed by (external_id, external_source).
type PostgresApplier struct {
	db *sql.DB
}

func NewPostgresApplier(dbConfig map[string]string) (*PostgresApplier, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbConfig["host"], dbConfig["port"], dbConfig["user"], dbConfig["password"], dbConfig["database"])

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &PostgresApplier{db: db}, nil
}

func (a *PostgresApplier) UpsertContact(ctx context.Context, contact ContactRecord) (*ApplyResult, error) {
	if contact.ExternalID == "" && contact.Email == "" {
		return nil, fmt.Errorf("contact upsert requires an external id or email")
	}

	query := `
		INSERT INTO contacts (external_id, external_source, first_name, last_name, email, phone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (external_id, external_source) DO UPDATE SET
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), contacts.first_name),
			last_name  = COALESCE(NULLIF(EXCLUDED.last_name, ''), contacts.last_name),
			email      = COALESCE(NULLIF(EXCLUDED.email, ''), contacts.email),
			phone      = COALESCE(NULLIF(EXCLUDED.phone, ''), contacts.phone),
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var id string
	var inserted bool
	err := a.db.QueryRowContext(ctx, query,
		contact.ExternalID, contact.Source, contact.FirstName, contact.LastName, contact.Email, contact.Phone,
	).Scan(&id, &inserted)
	if err != nil {
		return nil, fmt.Errorf("contact upsert failed: %w", err)
	}

	return &ApplyResult{Created: inserted, InternalID: id}, nil
}

func (a *PostgresApplier) UpsertDeal(ctx context.Context, deal DealRecord) (*ApplyResult, error) {
	if deal.ExternalID == "" {
		return nil, fmt.Errorf("deal upsert requires an external id")
	}

	marketing, err := json.Marshal(deal.MarketingData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode marketing data: %w", err)
	}

	query := `
		INSERT INTO deals (external_id, external_source, title, value, status, pipeline_id, stage_id, owner_id, contact_external_id, marketing_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NOW())
		ON CONFLICT (external_id, external_source) DO UPDATE SET
			title          = EXCLUDED.title,
			value          = EXCLUDED.value,
			status         = EXCLUDED.status,
			pipeline_id    = COALESCE(EXCLUDED.pipeline_id, deals.pipeline_id),
			stage_id       = COALESCE(EXCLUDED.stage_id, deals.stage_id),
			owner_id       = COALESCE(EXCLUDED.owner_id, deals.owner_id),
			marketing_data = EXCLUDED.marketing_data,
			updated_at     = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var id string
	var inserted bool
	err = a.db.QueryRowContext(ctx, query,
		deal.ExternalID, deal.Source, deal.Title, deal.Value, deal.Status,
		deal.PipelineID, deal.StageID, deal.OwnerID, deal.ContactExternalID, marketing,
	).Scan(&id, &inserted)
	if err != nil {
		return nil, fmt.Errorf("deal upsert failed: %w", err)
	}

	return &ApplyResult{Created: inserted, InternalID: id}, nil
}

func (a *PostgresApplier) TestConnection(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresApplier) Close() error {
	return a.db.Close()
}
