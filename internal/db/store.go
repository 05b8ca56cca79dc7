package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/atharv3903/saferoute/internal/model"
)

// Supported database/sql driver names. Callers register the driver with a
// blank import.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Store is the facility and incident catalog the routing engine reads from.
type Store struct {
	DB     *sql.DB
	Driver string
}

// Open connects to dsn with the named driver and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// one connection keeps an in-memory database alive and serializes writers
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return conn, nil
}

func (s Store) schema() []string {
	facilities := `
        CREATE TABLE IF NOT EXISTS facilities (
            id        VARCHAR(64) PRIMARY KEY,
            name      VARCHAR(255) NOT NULL,
            category  VARCHAR(32) NOT NULL,
            lat       DOUBLE NOT NULL,
            lng       DOUBLE NOT NULL,
            capacity  INT NOT NULL DEFAULT 0,
            occupancy INT NOT NULL DEFAULT 0,
            contact   VARCHAR(255) NOT NULL DEFAULT '',
            address   VARCHAR(255) NOT NULL DEFAULT '',
            hours     TEXT%s
        )`
	incidents := `
        CREATE TABLE IF NOT EXISTS incidents (
            id          VARCHAR(64) PRIMARY KEY,
            lat         DOUBLE NOT NULL,
            lng         DOUBLE NOT NULL,
            severity    DOUBLE NOT NULL DEFAULT 0,
            occurred_at BIGINT NOT NULL,
            details     TEXT%s
        )`

	if s.Driver == DriverMySQL {
		return []string{
			fmt.Sprintf(facilities, ",\n            INDEX idx_facilities_category (category)"),
			fmt.Sprintf(incidents, ",\n            INDEX idx_incidents_lat_lng (lat, lng)"),
		}
	}
	return []string{
		fmt.Sprintf(facilities, ""),
		fmt.Sprintf(incidents, ""),
		`CREATE INDEX IF NOT EXISTS idx_facilities_category ON facilities(category)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_lat_lng ON incidents(lat, lng)`,
	}
}

// Migrate creates the catalog tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertFacility writes f, replacing any facility with the same id.
// An empty id is assigned a fresh uuid, which is returned.
func (s Store) InsertFacility(ctx context.Context, f model.Facility) (string, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	var hours sql.NullString
	if len(f.Hours) > 0 {
		b, err := json.Marshal(f.Hours)
		if err != nil {
			return "", fmt.Errorf("encode hours for %s: %w", f.ID, err)
		}
		hours = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
        REPLACE INTO facilities (id, name, category, lat, lng, capacity, occupancy, contact, address, hours)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, f.ID, f.Name, f.Category, f.Location.Lat, f.Location.Lng, f.Capacity, f.Occupancy, f.Contact, f.Address, hours)
	if err != nil {
		return "", fmt.Errorf("insert facility %s: %w", f.ID, err)
	}
	return f.ID, nil
}

const facilityColumns = `id, name, category, lat, lng, capacity, occupancy, contact, address, hours`

// Facilities returns every facility of category ordered by id.
func (s Store) Facilities(ctx context.Context, category string) ([]model.Facility, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+facilityColumns+`
        FROM facilities
        WHERE category=?
        ORDER BY id
    `, category)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	return scanFacilities(rows)
}

// AllFacilities returns the whole catalog ordered by id.
func (s Store) AllFacilities(ctx context.Context) ([]model.Facility, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+facilityColumns+` FROM facilities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	return scanFacilities(rows)
}

func scanFacilities(rows *sql.Rows) ([]model.Facility, error) {
	defer rows.Close()

	out := make([]model.Facility, 0, 16)
	for rows.Next() {
		var f model.Facility
		var hours sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.Location.Lat, &f.Location.Lng,
			&f.Capacity, &f.Occupancy, &f.Contact, &f.Address, &hours); err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		if hours.Valid && hours.String != "" {
			if err := json.Unmarshal([]byte(hours.String), &f.Hours); err != nil {
				return nil, fmt.Errorf("decode hours for %s: %w", f.ID, err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertIncident records inc and returns its id, assigning a uuid when empty.
// A zero OccurredAt is stamped with the current time.
func (s Store) InsertIncident(ctx context.Context, inc model.HistoricalIncident) (string, error) {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.OccurredAt.IsZero() {
		inc.OccurredAt = time.Now()
	}
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO incidents (id, lat, lng, severity, occurred_at, details)
        VALUES (?, ?, ?, ?, ?, ?)
    `, inc.ID, inc.Location.Lat, inc.Location.Lng, inc.Severity, inc.OccurredAt.UnixMilli(), inc.Context)
	if err != nil {
		return "", fmt.Errorf("insert incident %s: %w", inc.ID, err)
	}
	return inc.ID, nil
}

// IncidentsInBound returns the incidents inside b (points are lng, lat),
// oldest first.
func (s Store) IncidentsInBound(ctx context.Context, b orb.Bound) ([]model.HistoricalIncident, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, lat, lng, severity, occurred_at, details
        FROM incidents
        WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
        ORDER BY occurred_at, id
    `, b.Bottom(), b.Top(), b.Left(), b.Right())
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	out := make([]model.HistoricalIncident, 0, 32)
	for rows.Next() {
		var inc model.HistoricalIncident
		var occurred int64
		var details sql.NullString
		if err := rows.Scan(&inc.ID, &inc.Location.Lat, &inc.Location.Lng, &inc.Severity, &occurred, &details); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.OccurredAt = time.UnixMilli(occurred).UTC()
		inc.Context = details.String
		out = append(out, inc)
	}
	return out, rows.Err()
}
