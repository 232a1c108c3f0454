package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"geoquery/internal/config"
	"geoquery/internal/model"
)

// QueryBuilder compiles a FormalizedQuery into one of the two executable
// representations. The target is fixed at startup by configuration; Build is
// a pure function with no I/O.
type QueryBuilder struct {
	target   model.QueryTarget
	index    string
	pageSize int
}

// NewQueryBuilder creates a new query builder
func NewQueryBuilder(cfg config.SearchConfig) *QueryBuilder {
	return &QueryBuilder{
		target:   cfg.Target,
		index:    cfg.Index,
		pageSize: cfg.PageSize,
	}
}

// Build compiles a formalized query for the configured target.
// Aggregation semantics are identical for both targets:
//   - count aggregates the match cardinality, ignoring attributes
//   - max/min/avg/sum aggregate over the first attribute, degrading to
//     count when no attribute was extracted
//   - list (or no action) retrieves matching rows, always bounded by the
//     page size so an empty query never becomes an unbounded scan
func (b *QueryBuilder) Build(fq model.FormalizedQuery) model.ExecutableQuery {
	action, aggField := b.resolveAggregation(fq)

	if b.target == model.TargetSQL {
		return b.buildSQL(fq, action, aggField)
	}
	return b.buildDSL(fq, action, aggField)
}

// resolveAggregation applies the degrade-to-count fallback
func (b *QueryBuilder) resolveAggregation(fq model.FormalizedQuery) (model.Action, string) {
	action := fq.Action
	if !action.Aggregate() {
		return action, ""
	}
	if action == model.ActionCount {
		return action, ""
	}
	if len(fq.Attributes) == 0 {
		return model.ActionCount, ""
	}
	return action, fq.Attributes[0]
}

// buildDSL produces a native query/aggregation document
func (b *QueryBuilder) buildDSL(fq model.FormalizedQuery, action model.Action, aggField string) model.ExecutableQuery {
	var clauses []map[string]any

	if fq.Location != "" {
		clauses = append(clauses, map[string]any{
			"match": map[string]any{
				"region": map[string]any{
					"query":     fq.Location,
					"fuzziness": "AUTO",
				},
			},
		})
	}

	for _, key := range sortedFilterKeys(fq.Filters) {
		if !model.KnownAttribute(key) {
			continue
		}
		value := fq.Filters[key]
		if num, ok := numericValue(value); ok {
			clauses = append(clauses, map[string]any{
				"range": map[string]any{
					key: map[string]any{"gte": num},
				},
			})
		} else {
			clauses = append(clauses, map[string]any{
				"match": map[string]any{
					key: map[string]any{
						"query":     fmt.Sprintf("%v", value),
						"fuzziness": "AUTO",
					},
				},
			})
		}
	}

	var query map[string]any
	if len(clauses) > 0 {
		query = map[string]any{"bool": map[string]any{"must": clauses}}
	} else {
		query = map[string]any{"match_all": map[string]any{}}
	}

	body := map[string]any{
		"query":            query,
		"size":             b.pageSize,
		"track_total_hits": true,
	}

	switch {
	case action == model.ActionCount:
		// Match cardinality only; the executor reads it off the total.
		body["size"] = 0
	case action.Aggregate():
		body["aggs"] = map[string]any{
			fmt.Sprintf("%s_%s", aggField, action): map[string]any{
				string(action): map[string]any{"field": aggField},
			},
		}
	default:
		if len(fq.Attributes) > 0 {
			body["_source"] = fq.Attributes
		}
	}

	return model.ExecutableQuery{
		Target:   model.TargetDSL,
		Index:    b.index,
		Body:     body,
		Action:   action,
		AggField: aggField,
	}
}

// buildSQL produces a statement for the OpenSearch SQL plugin or the
// relational mirror, plus a companion count statement so the executor can
// report the true match total independent of the page cap.
func (b *QueryBuilder) buildSQL(fq model.FormalizedQuery, action model.Action, aggField string) model.ExecutableQuery {
	where := b.whereClause(fq)

	var selectClause string
	switch {
	case action == model.ActionCount:
		selectClause = "COUNT(*) AS total_count"
	case action.Aggregate():
		selectClause = fmt.Sprintf("%s(%s) AS %s_%s", strings.ToUpper(string(action)), aggField, aggField, action)
	case len(fq.Attributes) > 0:
		fields := append([]string{"text"}, fq.Attributes...)
		selectClause = strings.Join(fields, ", ")
	default:
		selectClause = "*"
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", selectClause, b.index)
	if where != "" {
		sql += " WHERE " + where
	}
	sql += fmt.Sprintf(" LIMIT %d", b.pageSize)

	eq := model.ExecutableQuery{
		Target:   model.TargetSQL,
		Index:    b.index,
		SQL:      sql,
		Action:   action,
		AggField: aggField,
	}

	if !action.Aggregate() {
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", b.index)
		if where != "" {
			countSQL += " WHERE " + where
		}
		eq.CountSQL = countSQL
	}

	return eq
}

// whereClause renders the flat conjunction of location and filter constraints
func (b *QueryBuilder) whereClause(fq model.FormalizedQuery) string {
	var conds []string

	if fq.Location != "" {
		conds = append(conds, fmt.Sprintf("region LIKE '%%%s%%'", escapeSQLString(fq.Location)))
	}

	for _, key := range sortedFilterKeys(fq.Filters) {
		if !model.KnownAttribute(key) {
			continue
		}
		value := fq.Filters[key]
		if num, ok := numericValue(value); ok {
			conds = append(conds, fmt.Sprintf("%s >= %s", key, strconv.FormatFloat(num, 'f', -1, 64)))
		} else {
			conds = append(conds, fmt.Sprintf("%s = '%s'", key, escapeSQLString(fmt.Sprintf("%v", value))))
		}
	}

	return strings.Join(conds, " AND ")
}

// sortedFilterKeys keeps clause order deterministic across builds
func sortedFilterKeys(filters map[string]any) []string {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// numericValue reports whether a filter value is numeric. JSON decoding
// yields float64 for all numbers; numeric strings stay strings.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
