package graveyard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/pkg/domain"
)

// PostgresStore persists graveyard rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const graveyardColumns = `
	type, station_number, attributes, operating_status, detailed_services,
	overlay_services, missing_since, moved_at
`

func (s *PostgresStore) Get(ctx context.Context, key domain.FacilityKey) (*models.GraveyardRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+graveyardColumns+`
		FROM facility_graveyard
		WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)
	rec, err := scanGraveyard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get graveyard record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec models.GraveyardRecord) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshal graveyard attributes: %w", err)
	}
	status, err := marshalNullable(rec.OperatingStatus)
	if err != nil {
		return fmt.Errorf("marshal graveyard operating status: %w", err)
	}
	services, err := marshalNullableServices(rec.DetailedServices)
	if err != nil {
		return fmt.Errorf("marshal graveyard detailed services: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facility_graveyard (`+graveyardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (type, station_number) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			operating_status = EXCLUDED.operating_status,
			detailed_services = EXCLUDED.detailed_services,
			overlay_services = EXCLUDED.overlay_services,
			missing_since = EXCLUDED.missing_since,
			moved_at = EXCLUDED.moved_at
	`,
		rec.Key.Type.String(),
		rec.Key.StationNumber,
		attrs,
		status,
		services,
		pq.Array(rec.OverlayServices),
		rec.MissingSince,
		rec.MovedAt,
	)
	if err != nil {
		return fmt.Errorf("save graveyard record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.FacilityKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM facility_graveyard WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)
	if err != nil {
		return fmt.Errorf("delete graveyard record: %w", err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]models.GraveyardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+graveyardColumns+`
		FROM facility_graveyard ORDER BY type, station_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list graveyard records: %w", err)
	}
	defer rows.Close()

	var out []models.GraveyardRecord
	for rows.Next() {
		rec, err := scanGraveyard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan graveyard record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGraveyard(row rowScanner) (*models.GraveyardRecord, error) {
	var (
		rec      models.GraveyardRecord
		typ      string
		attrs    []byte
		status   []byte
		services []byte
		svcIDs   pq.StringArray
	)
	err := row.Scan(&typ, &rec.Key.StationNumber, &attrs, &status, &services, &svcIDs, &rec.MissingSince, &rec.MovedAt)
	if err != nil {
		return nil, err
	}
	t, err := domain.ParseFacilityType(typ)
	if err != nil {
		return nil, err
	}
	rec.Key.Type = t
	rec.OverlayServices = svcIDs
	if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal graveyard attributes: %w", err)
	}
	if status != nil {
		rec.OperatingStatus = &overlaymodels.OperatingStatus{}
		if err := json.Unmarshal(status, rec.OperatingStatus); err != nil {
			return nil, fmt.Errorf("unmarshal graveyard operating status: %w", err)
		}
	}
	if services != nil {
		if err := json.Unmarshal(services, &rec.DetailedServices); err != nil {
			return nil, fmt.Errorf("unmarshal graveyard detailed services: %w", err)
		}
	}
	return &rec, nil
}

func marshalNullable(status *overlaymodels.OperatingStatus) ([]byte, error) {
	if status == nil {
		return nil, nil
	}
	return json.Marshal(status)
}

func marshalNullableServices(services []overlaymodels.DetailedService) ([]byte, error) {
	if services == nil {
		return nil, nil
	}
	return json.Marshal(services)
}
