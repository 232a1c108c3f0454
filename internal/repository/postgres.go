package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"geoquery/internal/model"
	"geoquery/internal/service"
)

// PostgresExecutor runs SQL-target queries against a relational mirror of
// the geological index (a table named after the index, one column per
// attribute plus text/lat/lon). It only accepts the SQL representation;
// DSL queries belong to the OpenSearch executor.
type PostgresExecutor struct {
	db       *sqlx.DB
	pageSize int
}

// NewPostgresExecutor creates a new PostgreSQL-backed executor
func NewPostgresExecutor(dsn string, maxConn, maxIdleConn, pageSize int) (*PostgresExecutor, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresExecutor{db: db, pageSize: pageSize}, nil
}

// Close closes the database connection
func (e *PostgresExecutor) Close() error {
	return e.db.Close()
}

// Execute performs one round trip for the given query
func (e *PostgresExecutor) Execute(ctx context.Context, query model.ExecutableQuery) (model.QueryResult, error) {
	if query.Target != model.TargetSQL {
		return model.QueryResult{}, service.NewExecutionError(service.StageRejected,
			fmt.Errorf("postgres executor only supports the sql target, got %q", query.Target))
	}

	rows, err := e.db.QueryxContext(ctx, query.SQL)
	if err != nil {
		return model.QueryResult{}, service.NewExecutionError(service.StageRejected,
			fmt.Errorf("query rejected: %w", err))
	}
	defer rows.Close()

	result := model.QueryResult{Documents: []model.Document{}}

	for rows.Next() {
		if len(result.Documents) >= e.pageSize {
			break
		}
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return model.QueryResult{}, service.NewExecutionError(service.StageResponse,
				fmt.Errorf("failed to scan row: %w", err))
		}
		result.Documents = append(result.Documents, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return model.QueryResult{}, service.NewExecutionError(service.StageResponse, err)
	}

	if query.Action.Aggregate() {
		return e.reduceAggregate(query, result)
	}

	result.Total = len(result.Documents)
	if query.CountSQL != "" {
		var total int
		if err := e.db.GetContext(ctx, &total, query.CountSQL); err != nil {
			return model.QueryResult{}, service.NewExecutionError(service.StageRejected,
				fmt.Errorf("count query rejected: %w", err))
		}
		result.Total = total
	}

	return result, nil
}

// reduceAggregate folds the single-row aggregate projection into the
// aggregations map and drops the row itself
func (e *PostgresExecutor) reduceAggregate(query model.ExecutableQuery, result model.QueryResult) (model.QueryResult, error) {
	if len(result.Documents) == 0 {
		return model.QueryResult{}, service.NewExecutionError(service.StageResponse,
			fmt.Errorf("aggregate query returned no rows"))
	}

	column := aggregateColumn(query)
	value, ok := aggregateValue(result.Documents[0], column)
	if !ok {
		return model.QueryResult{}, service.NewExecutionError(service.StageResponse,
			fmt.Errorf("aggregate column %q missing or not numeric", column))
	}

	out := model.QueryResult{
		Documents:    []model.Document{},
		Aggregations: map[model.Action]float64{query.Action: value},
	}
	if query.Action == model.ActionCount {
		out.Total = int(value)
	}
	return out, nil
}

// aggregateValue looks the aggregate alias up case-insensitively: the server
// folds unquoted aliases like Corg_max to corg_max.
func aggregateValue(doc model.Document, column string) (float64, bool) {
	for key, value := range doc {
		if strings.EqualFold(key, column) {
			return toFloat(value)
		}
	}
	return 0, false
}

// normalizeRow converts driver byte slices into strings and restores the
// vocabulary casing of folded column names, so documents look the same
// regardless of executor
func normalizeRow(row map[string]any) model.Document {
	doc := model.Document{}
	for key, value := range row {
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		doc[canonicalColumn(key)] = value
	}
	return doc
}

// canonicalColumn maps a lowercased result column back to its vocabulary
// spelling (unquoted Corg/R0 projections come back as corg/r0)
func canonicalColumn(name string) string {
	if model.KnownAttribute(name) {
		return name
	}
	for attr := range model.Attributes {
		if strings.EqualFold(attr, name) {
			return attr
		}
	}
	return name
}
