package collector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// WarehouseSource reads health and benefits facilities from the corporate
// data warehouse mirror.
type WarehouseSource struct {
	db *sql.DB
}

func NewWarehouseSource(db *sql.DB) *WarehouseSource {
	return &WarehouseSource{db: db}
}

func (s *WarehouseSource) Name() string { return "warehouse" }

const warehouseQuery = `
SELECT station_number, facility_type, name, classification, website,
       latitude, longitude,
       address1, address2, city, state, zip,
       phone_main, phone_fax, phone_after_hours,
       hours_monday, hours_tuesday, hours_wednesday, hours_thursday,
       hours_friday, hours_saturday, hours_sunday,
       special_instructions, services, active_status, visn, mobile
FROM facility_source`

func (s *WarehouseSource) Collect(ctx context.Context) ([]models.CollectedFacility, error) {
	rows, err := s.db.QueryContext(ctx, warehouseQuery)
	if err != nil {
		return nil, fmt.Errorf("query warehouse: %w", err)
	}
	defer rows.Close()

	var out []models.CollectedFacility
	for rows.Next() {
		cf, err := scanWarehouseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse row: %w", err)
		}
		out = append(out, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warehouse rows: %w", err)
	}
	return out, nil
}

func scanWarehouseRow(rows *sql.Rows) (models.CollectedFacility, error) {
	var (
		stationNumber, facilityType        string
		name, classification, website      sql.NullString
		latitude, longitude                sql.NullFloat64
		address1, address2, city, state    sql.NullString
		zip                                sql.NullString
		phoneMain, phoneFax, phoneAfter    sql.NullString
		monday, tuesday, wednesday         sql.NullString
		thursday, friday, saturday, sunday sql.NullString
		specialInstructions, activeStatus  sql.NullString
		services                           pq.StringArray
		visn                               sql.NullString
		mobile                             sql.NullBool
	)
	err := rows.Scan(
		&stationNumber, &facilityType, &name, &classification, &website,
		&latitude, &longitude,
		&address1, &address2, &city, &state, &zip,
		&phoneMain, &phoneFax, &phoneAfter,
		&monday, &tuesday, &wednesday, &thursday,
		&friday, &saturday, &sunday,
		&specialInstructions, &services, &activeStatus, &visn, &mobile,
	)
	if err != nil {
		return models.CollectedFacility{}, err
	}

	ftype, err := domain.ParseFacilityType(facilityType)
	if err != nil {
		return models.CollectedFacility{}, err
	}

	attrs := models.Attributes{
		Name:           name.String,
		Classification: classification.String,
		Website:        website.String,
		Address: models.Addresses{
			Physical: &models.Address{
				Address1: address1.String,
				Address2: address2.String,
				City:     city.String,
				State:    state.String,
				Zip:      zip.String,
			},
		},
		Phone: models.Phone{
			Main:       phoneMain.String,
			Fax:        phoneFax.String,
			AfterHours: phoneAfter.String,
		},
		Hours: models.Hours{
			Monday:    monday.String,
			Tuesday:   tuesday.String,
			Wednesday: wednesday.String,
			Thursday:  thursday.String,
			Friday:    friday.String,
			Saturday:  saturday.String,
			Sunday:    sunday.String,
		},
		OperationalHoursSpecialInstructions: specialInstructions.String,
		ActiveStatus:                        models.ActiveStatus(activeStatus.String),
		Visn:                                visn.String,
	}
	if latitude.Valid {
		v := latitude.Float64
		attrs.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		attrs.Longitude = &v
	}
	if mobile.Valid {
		v := mobile.Bool
		attrs.Mobile = &v
	}
	switch ftype {
	case domain.TypeHealth:
		attrs.Services.Health = services
	case domain.TypeBenefits:
		attrs.Services.Benefits = services
	}

	return models.CollectedFacility{
		ID:         fmt.Sprintf("%s_%s", ftype, stationNumber),
		Attributes: attrs,
	}, nil
}
