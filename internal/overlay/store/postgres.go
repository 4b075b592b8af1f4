package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"facreg/internal/overlay/models"
	"facreg/pkg/domain"
)

// PostgresStore persists overlays in PostgreSQL. A NULL detailed_services
// column means the node was never supplied; a stored empty array means it was
// supplied and cleared.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key domain.FacilityKey) (*models.Overlay, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT operating_status, detailed_services, active_service_ids
		FROM cms_overlay
		WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)

	var (
		status   []byte
		services []byte
		ids      pq.StringArray
	)
	if err := row.Scan(&status, &services, &ids); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get overlay: %w", err)
	}

	ov := models.Overlay{Key: key, ActiveServiceIDs: ids}
	if status != nil {
		ov.OperatingStatus = &models.OperatingStatus{}
		if err := json.Unmarshal(status, ov.OperatingStatus); err != nil {
			return nil, fmt.Errorf("unmarshal overlay operating status: %w", err)
		}
	}
	if services != nil {
		ov.DetailedServices = []models.DetailedService{}
		if err := json.Unmarshal(services, &ov.DetailedServices); err != nil {
			return nil, fmt.Errorf("unmarshal overlay detailed services: %w", err)
		}
	}
	return &ov, nil
}

func (s *PostgresStore) Save(ctx context.Context, ov models.Overlay) error {
	var (
		status   []byte
		services []byte
		err      error
	)
	if ov.OperatingStatus != nil {
		if status, err = json.Marshal(ov.OperatingStatus); err != nil {
			return fmt.Errorf("marshal overlay operating status: %w", err)
		}
	}
	if ov.DetailedServices != nil {
		if services, err = json.Marshal(ov.DetailedServices); err != nil {
			return fmt.Errorf("marshal overlay detailed services: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cms_overlay (type, station_number, operating_status, detailed_services, active_service_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (type, station_number) DO UPDATE SET
			operating_status = EXCLUDED.operating_status,
			detailed_services = EXCLUDED.detailed_services,
			active_service_ids = EXCLUDED.active_service_ids
	`,
		ov.Key.Type.String(),
		ov.Key.StationNumber,
		status,
		services,
		pq.Array(ov.ActiveServiceIDs),
	)
	if err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.FacilityKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cms_overlay WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)
	if err != nil {
		return fmt.Errorf("delete overlay: %w", err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]models.Overlay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, station_number, operating_status, detailed_services, active_service_ids
		FROM cms_overlay ORDER BY type, station_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	defer rows.Close()

	var out []models.Overlay
	for rows.Next() {
		var (
			typ, station string
			status       []byte
			services     []byte
			ids          pq.StringArray
		)
		if err := rows.Scan(&typ, &station, &status, &services, &ids); err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		t, err := domain.ParseFacilityType(typ)
		if err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		ov := models.Overlay{
			Key:              domain.FacilityKey{Type: t, StationNumber: station},
			ActiveServiceIDs: ids,
		}
		if status != nil {
			ov.OperatingStatus = &models.OperatingStatus{}
			if err := json.Unmarshal(status, ov.OperatingStatus); err != nil {
				return nil, fmt.Errorf("unmarshal overlay operating status: %w", err)
			}
		}
		if services != nil {
			ov.DetailedServices = []models.DetailedService{}
			if err := json.Unmarshal(services, &ov.DetailedServices); err != nil {
				return nil, fmt.Errorf("unmarshal overlay detailed services: %w", err)
			}
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}
