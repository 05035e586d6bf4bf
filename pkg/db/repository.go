package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/attribute-converter/pkg/bootstrap"
)

const repoLogPrefix = "db:repository"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access for services and conversions.
type Repository struct {
	db querier
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// WithTx returns a Repository that runs its statements inside tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// =========================================================================
// SERVICES
// =========================================================================

// UpsertServiceParams holds parameters for UpsertService.
type UpsertServiceParams struct {
	Name        string
	BaseURL     string
	Description string
}

// UpsertService creates or updates a service by name.
func (r *Repository) UpsertService(ctx context.Context, params UpsertServiceParams) (*ServiceRow, error) {
	slog.Debug(fmt.Sprintf("%s - UpsertService name=%s", repoLogPrefix, params.Name))

	row := r.db.QueryRow(ctx,
		`INSERT INTO services (name, base_url, description)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET
		   base_url = EXCLUDED.base_url,
		   description = EXCLUDED.description,
		   modified = NOW()
		 RETURNING name, base_url, description, created, modified`,
		params.Name, params.BaseURL, params.Description)

	var s ServiceRow
	if err := row.Scan(&s.Name, &s.BaseURL, &s.Description, &s.Created, &s.Modified); err != nil {
		return nil, fmt.Errorf("%s - upsert service %s: %w", repoLogPrefix, params.Name, err)
	}
	return &s, nil
}

// ListServices returns all services ordered by name.
func (r *Repository) ListServices(ctx context.Context) ([]ServiceRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, base_url, description, created, modified FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s - list services: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []ServiceRow
	for rows.Next() {
		var s ServiceRow
		if err := rows.Scan(&s.Name, &s.BaseURL, &s.Description, &s.Created, &s.Modified); err != nil {
			return nil, fmt.Errorf("%s - scan service: %w", repoLogPrefix, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// =========================================================================
// CONVERSIONS
// =========================================================================

// UpsertConversionParams holds parameters for UpsertConversion. Empty Method, Version
// and Status take the column defaults.
type UpsertConversionParams struct {
	Source      string
	Target      string
	Service     string
	Method      string
	Args        string
	Body        string
	Via         []string
	Version     string
	Status      string
	Description string
}

const conversionColumns = `id::text, source, target, COALESCE(service, ''), method, args, body, via,
	version, status, description, created, modified`

// UpsertConversion creates or updates the conversion identified by (source, target, version).
func (r *Repository) UpsertConversion(ctx context.Context, params UpsertConversionParams) (*ConversionRow, error) {
	slog.Debug(fmt.Sprintf("%s - UpsertConversion %s:%s@%s", repoLogPrefix, params.Source, params.Target, params.Version))

	method := strings.ToUpper(params.Method)
	if method == "" {
		method = bootstrap.MethodGet
	}
	version := params.Version
	if version == "" {
		version = bootstrap.DefaultConversionVersion
	}
	status := params.Status
	if status == "" {
		status = "active"
	}
	via := params.Via
	if via == nil {
		via = []string{}
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO conversions (source, target, service, method, args, body, via, version, status, description)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (source, target, version) DO UPDATE SET
		   service = EXCLUDED.service,
		   method = EXCLUDED.method,
		   args = EXCLUDED.args,
		   body = EXCLUDED.body,
		   via = EXCLUDED.via,
		   status = EXCLUDED.status,
		   description = EXCLUDED.description,
		   modified = NOW()
		 RETURNING `+conversionColumns,
		params.Source, params.Target, params.Service, method, params.Args, params.Body, via, version, status, params.Description)

	c, err := scanConversion(row)
	if err != nil {
		return nil, fmt.Errorf("%s - upsert conversion %s:%s: %w", repoLogPrefix, params.Source, params.Target, err)
	}
	return c, nil
}

// ListConversionsParams filters ListConversions. Empty fields match everything.
type ListConversionsParams struct {
	Source string
	Target string
	Status string
}

// ListConversions returns conversions ordered by source, target and creation.
func (r *Repository) ListConversions(ctx context.Context, params ListConversionsParams) ([]ConversionRow, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE 1=1`
	args := []any{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("source", params.Source)
	add("target", params.Target)
	add("status", params.Status)
	query += ` ORDER BY source, target, created`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - list conversions: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []ConversionRow
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("%s - scan conversion: %w", repoLogPrefix, err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// LoadConfig reads every service and conversion into a bootstrap document.
func (r *Repository) LoadConfig(ctx context.Context) (*bootstrap.Config, error) {
	services, err := r.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	conversions, err := r.ListConversions(ctx, ListConversionsParams{})
	if err != nil {
		return nil, err
	}

	cfg := &bootstrap.Config{
		Name:        "postgres",
		Version:     "1.0.0",
		Description: "Conversions stored in Postgres",
		Services:    make(map[string]bootstrap.Service, len(services)),
		Conversions: make([]bootstrap.Conversion, 0, len(conversions)),
	}
	for _, s := range services {
		cfg.Services[s.Name] = bootstrap.Service{BaseURL: s.BaseURL, Description: s.Description}
	}
	for _, c := range conversions {
		cfg.Conversions = append(cfg.Conversions, RowToConversion(c))
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d services and %d conversions", repoLogPrefix, len(services), len(conversions)))
	return cfg, nil
}

// RowToConversion maps a stored row onto its bootstrap form.
func RowToConversion(c ConversionRow) bootstrap.Conversion {
	conv := bootstrap.Conversion{
		Source:      c.Source,
		Target:      c.Target,
		Service:     c.Service,
		Method:      c.Method,
		Args:        c.Args,
		Body:        c.Body,
		Version:     c.Version,
		Status:      c.Status,
		Description: c.Description,
	}
	if len(c.Via) > 0 {
		conv.Via = c.Via
		conv.Method = ""
	}
	return conv
}

func scanConversion(row pgx.Row) (*ConversionRow, error) {
	var c ConversionRow
	err := row.Scan(&c.ID, &c.Source, &c.Target, &c.Service, &c.Method, &c.Args, &c.Body, &c.Via,
		&c.Version, &c.Status, &c.Description, &c.Created, &c.Modified)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
