package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station/entity"
)

// StationRepo provides data access for the charging_stations table using sqlx.
type StationRepo struct {
	db *sqlx.DB
}

func NewStationRepo(db *sqlx.DB) *StationRepo { return &StationRepo{db: db} }

const stationColumns = `id, name, longitude, latitude, address, status, power_output, connector_type, created_by, created_at, updated_at`

// stationRow is the flat storage shape of entity.Station.
type stationRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Longitude     float64        `db:"longitude"`
	Latitude      float64        `db:"latitude"`
	Address       sql.NullString `db:"address"`
	Status        string         `db:"status"`
	PowerOutput   float64        `db:"power_output"`
	ConnectorType string         `db:"connector_type"`
	CreatedBy     string         `db:"created_by"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toRow(s *entity.Station) stationRow {
	return stationRow{
		ID:            s.ID,
		Name:          s.Name,
		Longitude:     s.Location.Longitude(),
		Latitude:      s.Location.Latitude(),
		Address:       nullString(s.Location.Address),
		Status:        string(s.Status),
		PowerOutput:   s.PowerOutput,
		ConnectorType: string(s.ConnectorType),
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r stationRow) station() *entity.Station {
	s := &entity.Station{
		ID:   r.ID,
		Name: r.Name,
		Location: entity.Location{
			Type:        entity.PointType,
			Coordinates: [2]float64{r.Longitude, r.Latitude},
		},
		Status:        entity.Status(r.Status),
		PowerOutput:   r.PowerOutput,
		ConnectorType: entity.ConnectorType(r.ConnectorType),
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Address.Valid {
		addr := r.Address.String
		s.Location.Address = &addr
	}
	return s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Insert stores a fully validated station in one statement.
func (r *StationRepo) Insert(ctx context.Context, s *entity.Station) error {
	const q = `INSERT INTO charging_stations (` + stationColumns + `)
		VALUES (:id, :name, :longitude, :latitude, :address, :status, :power_output, :connector_type, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, toRow(s)); err != nil {
		return pkgerrors.Wrap(err, "insert station")
	}
	return nil
}

// Get fetches a station or an error wrapping sql.ErrNoRows.
func (r *StationRepo) Get(ctx context.Context, id string) (*entity.Station, error) {
	const q = `SELECT ` + stationColumns + ` FROM charging_stations WHERE id = $1`
	var row stationRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, pkgerrors.Wrap(err, "get station")
	}
	return row.station(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns the stations matching f, newest first.
func (r *StationRepo) List(ctx context.Context, f entity.Filter) ([]entity.Station, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ConnectorType != "" {
		args = append(args, "%"+likeEscaper.Replace(f.ConnectorType)+"%")
		where = append(where, fmt.Sprintf("connector_type ILIKE $%d", len(args)))
	}
	if f.MinPower != nil {
		args = append(args, *f.MinPower)
		where = append(where, fmt.Sprintf("power_output >= $%d", len(args)))
	}

	q := `SELECT ` + stationColumns + ` FROM charging_stations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`

	var rows []stationRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, pkgerrors.Wrap(err, "list stations")
	}
	out := make([]entity.Station, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].station())
	}
	return out, nil
}

// Update writes the supplied columns and updated_at in a single statement and
// returns the new state, or an error wrapping sql.ErrNoRows.
func (r *StationRepo) Update(ctx context.Context, id string, p entity.Patch) (*entity.Station, error) {
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Location != nil {
		add("longitude", p.Location.Longitude())
		add("latitude", p.Location.Latitude())
		add("address", nullString(p.Location.Address))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.PowerOutput != nil {
		add("power_output", *p.PowerOutput)
	}
	if p.ConnectorType != nil {
		add("connector_type", string(*p.ConnectorType))
	}
	add("updated_at", p.UpdatedAt)
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE charging_stations SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), stationColumns)

	var row stationRow
	if err := r.db.QueryRowxContext(ctx, q, args...).StructScan(&row); err != nil {
		return nil, pkgerrors.Wrap(err, "update station")
	}
	return row.station(), nil
}

// Delete removes a station and returns its last state, or an error wrapping
// sql.ErrNoRows.
func (r *StationRepo) Delete(ctx context.Context, id string) (*entity.Station, error) {
	const q = `DELETE FROM charging_stations WHERE id = $1 RETURNING ` + stationColumns
	var row stationRow
	if err := r.db.QueryRowxContext(ctx, q, id).StructScan(&row); err != nil {
		return nil, pkgerrors.Wrap(err, "delete station")
	}
	return row.station(), nil
}
