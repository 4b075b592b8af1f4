package facility

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// PostgresStore persists facility records in PostgreSQL. The attribute
// payload is stored as a jsonb snapshot beside the flattened query columns;
// all domain logic lives in the reconciliation engine and services.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const facilityColumns = `
	type, station_number, latitude, longitude, state, zip, visn, mobile,
	services, overlay_services, attributes, last_updated, missing_since
`

func (s *PostgresStore) Get(ctx context.Context, key domain.FacilityKey) (*models.FacilityRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+facilityColumns+`
		FROM facility
		WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)
	rec, err := scanFacility(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get facility: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec models.FacilityRecord) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshal facility attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facility (`+facilityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (type, station_number) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			state = EXCLUDED.state,
			zip = EXCLUDED.zip,
			visn = EXCLUDED.visn,
			mobile = EXCLUDED.mobile,
			services = EXCLUDED.services,
			overlay_services = EXCLUDED.overlay_services,
			attributes = EXCLUDED.attributes,
			last_updated = EXCLUDED.last_updated,
			missing_since = EXCLUDED.missing_since
	`,
		rec.Key.Type.String(),
		rec.Key.StationNumber,
		rec.Latitude,
		rec.Longitude,
		nullString(rec.State),
		nullString(rec.Zip),
		nullString(rec.Visn),
		rec.Mobile,
		pq.Array(rec.Services),
		pq.Array(rec.OverlayServices),
		attrs,
		rec.LastUpdated,
		rec.MissingSince,
	)
	if err != nil {
		return fmt.Errorf("save facility: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.FacilityKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM facility WHERE type = $1 AND station_number = $2
	`, key.Type.String(), key.StationNumber)
	if err != nil {
		return fmt.Errorf("delete facility: %w", err)
	}
	return nil
}

func (s *PostgresStore) AllKeys(ctx context.Context) ([]domain.FacilityKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, station_number FROM facility ORDER BY type, station_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list facility keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.FacilityKey
	for rows.Next() {
		var typ, station string
		if err := rows.Scan(&typ, &station); err != nil {
			return nil, fmt.Errorf("scan facility key: %w", err)
		}
		t, err := domain.ParseFacilityType(typ)
		if err != nil {
			return nil, fmt.Errorf("scan facility key: %w", err)
		}
		keys = append(keys, domain.FacilityKey{Type: t, StationNumber: station})
	}
	return keys, rows.Err()
}

func (s *PostgresStore) All(ctx context.Context) ([]models.FacilityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+facilityColumns+`
		FROM facility ORDER BY type, station_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	var out []models.FacilityRecord
	for rows.Next() {
		rec, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFacility(row rowScanner) (*models.FacilityRecord, error) {
	var (
		rec           models.FacilityRecord
		typ           string
		state, zip    sql.NullString
		visn          sql.NullString
		attrs         []byte
		missing       sql.NullTime
		services      pq.StringArray
		overlaySvcIDs pq.StringArray
	)
	err := row.Scan(
		&typ, &rec.Key.StationNumber, &rec.Latitude, &rec.Longitude,
		&state, &zip, &visn, &rec.Mobile,
		&services, &overlaySvcIDs, &attrs, &rec.LastUpdated, &missing,
	)
	if err != nil {
		return nil, err
	}
	t, err := domain.ParseFacilityType(typ)
	if err != nil {
		return nil, err
	}
	rec.Key.Type = t
	rec.State = state.String
	rec.Zip = zip.String
	rec.Visn = visn.String
	rec.Services = services
	rec.OverlayServices = overlaySvcIDs
	if missing.Valid {
		ms := missing.Time
		rec.MissingSince = &ms
	}
	if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal facility attributes: %w", err)
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
