package repository

import (
	"errors"
	"testing"

	"geoquery/internal/model"
	"geoquery/internal/service"
)

func TestNormalizeRow_RestoresFoldedColumns(t *testing.T) {
	row := map[string]any{
		"corg":       []byte("2.1"),
		"r0":         0.8,
		"layer_name": "эоцен",
		"text":       []byte("описание слоя"),
	}

	doc := normalizeRow(row)

	if doc["Corg"] != "2.1" {
		t.Errorf("Expected folded corg restored to Corg, got %v", doc)
	}
	if doc["R0"] != 0.8 {
		t.Errorf("Expected folded r0 restored to R0, got %v", doc)
	}
	if doc["layer_name"] != "эоцен" {
		t.Errorf("Expected lowercase vocabulary names untouched, got %v", doc)
	}
	if doc["text"] != "описание слоя" {
		t.Errorf("Expected byte slice converted to string, got %T", doc["text"])
	}
}

func TestPostgresExecutor_AggregateAliasFolding(t *testing.T) {
	executor := &PostgresExecutor{pageSize: 100}

	// The server folds the unquoted alias Corg_max to corg_max.
	result, err := executor.reduceAggregate(
		model.ExecutableQuery{Target: model.TargetSQL, Action: model.ActionMax, AggField: "Corg"},
		model.QueryResult{Documents: []model.Document{{"corg_max": 4.7}}},
	)
	if err != nil {
		t.Fatalf("reduceAggregate failed: %v", err)
	}

	if result.Aggregations[model.ActionMax] != 4.7 {
		t.Errorf("Expected max 4.7 from folded alias, got %v", result.Aggregations)
	}
}

func TestPostgresExecutor_AggregateCount(t *testing.T) {
	executor := &PostgresExecutor{pageSize: 100}

	result, err := executor.reduceAggregate(
		model.ExecutableQuery{Target: model.TargetSQL, Action: model.ActionCount},
		model.QueryResult{Documents: []model.Document{{"total_count": int64(37)}}},
	)
	if err != nil {
		t.Fatalf("reduceAggregate failed: %v", err)
	}

	if result.Aggregations[model.ActionCount] != 37 || result.Total != 37 {
		t.Errorf("Expected count 37 with total set, got %+v", result)
	}
}

func TestPostgresExecutor_AggregateMissingColumn(t *testing.T) {
	executor := &PostgresExecutor{pageSize: 100}

	_, err := executor.reduceAggregate(
		model.ExecutableQuery{Target: model.TargetSQL, Action: model.ActionMax, AggField: "Corg"},
		model.QueryResult{Documents: []model.Document{{"depth_avg": 1200.5}}},
	)

	var execErr *service.ExecutionError
	if !errors.As(err, &execErr) || execErr.Stage != service.StageResponse {
		t.Fatalf("Expected response-stage error for a missing aggregate column, got %v", err)
	}
}
