package model

// QueryRequest represents the question submitted by the web layer
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// FormalizedQuery is the canonical intermediate representation of a user
// question. It is created once by the formalizer and consumed once by the
// query builder; attributes are always a subset of the closed vocabulary
// and Action is either empty or one of the six enumerated verbs.
type FormalizedQuery struct {
	Attributes []string       `json:"attributes"`
	Location   string         `json:"location,omitempty"`
	Action     Action         `json:"action,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
	RawQuery   string         `json:"raw_query,omitempty"`
}

// Empty reports whether the formalizer extracted nothing usable from the
// question. Downstream an empty query means "list all, bounded".
func (q FormalizedQuery) Empty() bool {
	return len(q.Attributes) == 0 && q.Location == "" && q.Action == "" && len(q.Filters) == 0
}

// QueryTarget selects which executable representation the builder emits.
type QueryTarget string

const (
	// TargetDSL builds a native OpenSearch query/aggregation document.
	TargetDSL QueryTarget = "dsl"
	// TargetSQL builds a SQL statement for the OpenSearch SQL plugin or a
	// relational mirror of the index.
	TargetSQL QueryTarget = "sql"
)

// ExecutableQuery is a tagged union of the two query representations.
// Built once, executed once, never mutated. Action and AggField carry
// enough metadata for the executor to normalize aggregate results.
type ExecutableQuery struct {
	Target QueryTarget `json:"target"`
	Index  string      `json:"index"`
	SQL    string      `json:"sql,omitempty"`
	// CountSQL reports the true match count independent of the page cap;
	// only set for the SQL target.
	CountSQL string         `json:"count_sql,omitempty"`
	Body     map[string]any `json:"body,omitempty"`
	Action   Action         `json:"action,omitempty"`
	AggField string         `json:"agg_field,omitempty"`
}

// Document is a single retrieved record, attribute name to value.
type Document map[string]any

// QueryResult holds the raw outcome of one backend round trip.
// Documents are capped at the configured page size; Total always reflects
// the true match count reported by the backend.
type QueryResult struct {
	Documents    []Document         `json:"documents"`
	Aggregations map[Action]float64 `json:"aggregations,omitempty"`
	Total        int                `json:"total"`
}

// Coordinate is one mappable point extracted from a result document.
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Info string  `json:"info,omitempty"`
}

// Response is the externally visible answer contract.
type Response struct {
	Answer         string       `json:"answer"`
	Coordinates    []Coordinate `json:"coordinates"`
	ResultsCount   int          `json:"results_count"`
	HasCoordinates bool         `json:"has_coordinates"`
}
