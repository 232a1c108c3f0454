package repository

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	opensearch "github.com/opensearch-project/opensearch-go/v2"

	"geoquery/internal/config"
	"geoquery/internal/model"
	"geoquery/internal/service"
)

// OpenSearchExecutor runs executable queries against an OpenSearch cluster.
// DSL queries go through the _search API; SQL statements go through the SQL
// plugin endpoint. The underlying client is safe for concurrent use.
type OpenSearchExecutor struct {
	client   *opensearch.Client
	pageSize int
}

// sqlPluginPath is the SQL plugin endpoint of the cluster.
const sqlPluginPath = "/_plugins/_sql"

// NewOpenSearchExecutor creates a new OpenSearch-backed executor
func NewOpenSearchExecutor(cfg config.OpenSearchConfig, baseURL string, pageSize int) (*OpenSearchExecutor, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{baseURL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyCerts},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearchExecutor{client: client, pageSize: pageSize}, nil
}

// Execute performs one round trip for the given query
func (e *OpenSearchExecutor) Execute(ctx context.Context, query model.ExecutableQuery) (model.QueryResult, error) {
	switch query.Target {
	case model.TargetDSL:
		return e.executeDSL(ctx, query)
	case model.TargetSQL:
		return e.executeSQL(ctx, query)
	default:
		return model.QueryResult{}, service.NewExecutionError(service.StageRejected,
			fmt.Errorf("unsupported query target %q", query.Target))
	}
}

// searchResponse is the subset of the _search reply this executor consumes
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Value *float64 `json:"value"`
	} `json:"aggregations"`
}

func (e *OpenSearchExecutor) executeDSL(ctx context.Context, query model.ExecutableQuery) (model.QueryResult, error) {
	body, err := json.Marshal(query.Body)
	if err != nil {
		return model.QueryResult{}, service.NewExecutionError(service.StageRequest,
			fmt.Errorf("failed to marshal query body: %w", err))
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(query.Index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return model.QueryResult{}, service.NewExecutionError(service.StageRequest, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return model.QueryResult{}, service.NewExecutionError(service.StageRejected,
			fmt.Errorf("search rejected with status %d: %s", res.StatusCode, string(detail)))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return model.QueryResult{}, service.NewExecutionError(service.StageResponse,
			fmt.Errorf("failed to decode search response: %w", err))
	}

	result := model.QueryResult{
		Documents: []model.Document{},
		Total:     sr.Hits.Total.Value,
	}

	for _, hit := range sr.Hits.Hits {
		if len(result.Documents) >= e.pageSize {
			break
		}
		doc := model.Document{}
		for key, value := range hit.Source {
			doc[key] = value
		}
		if _, ok := doc["id"]; !ok {
			doc["id"] = hit.ID
		}
		if hit.Score != nil {
			doc["score"] = *hit.Score
		}
		result.Documents = append(result.Documents, doc)
	}

	if query.Action.Aggregate() {
		result.Aggregations = map[model.Action]float64{}
		if query.Action == model.ActionCount {
			result.Aggregations[model.ActionCount] = float64(sr.Hits.Total.Value)
		} else {
			name := fmt.Sprintf("%s_%s", query.AggField, query.Action)
			agg, ok := sr.Aggregations[name]
			if !ok || agg.Value == nil {
				return model.QueryResult{}, service.NewExecutionError(service.StageResponse,
					fmt.Errorf("aggregation %q missing from search response", name))
			}
			result.Aggregations[query.Action] = *agg.Value
		}
	}

	return result, nil
}

// sqlResponse is the schema/datarows reply of the SQL plugin
type sqlResponse struct {
	Schema []struct {
		Name string `json:"name"`
	} `json:"schema"`
	Datarows [][]any `json:"datarows"`
	Total    int     `json:"total"`
}

func (e *OpenSearchExecutor) executeSQL(ctx context.Context, query model.ExecutableQuery) (model.QueryResult, error) {
	sr, err := e.sqlQuery(ctx, query.SQL)
	if err != nil {
		return model.QueryResult{}, err
	}

	result, err := e.reduceSQLRows(query, sr)
	if err != nil {
		return model.QueryResult{}, err
	}

	// The statement carries a LIMIT, so the plugin's total only covers the
	// returned page. The companion count reports the true match count.
	if !query.Action.Aggregate() && query.CountSQL != "" {
		cr, err := e.sqlQuery(ctx, query.CountSQL)
		if err != nil {
			return model.QueryResult{}, err
		}
		total, err := countFromReply(cr)
		if err != nil {
			return model.QueryResult{}, service.NewExecutionError(service.StageResponse, err)
		}
		result.Total = total
	}

	return result, nil
}

// sqlQuery performs one SQL plugin round trip
func (e *OpenSearchExecutor) sqlQuery(ctx context.Context, statement string) (sqlResponse, error) {
	payload, err := json.Marshal(map[string]string{"query": statement})
	if err != nil {
		return sqlResponse{}, service.NewExecutionError(service.StageRequest,
			fmt.Errorf("failed to marshal SQL payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sqlPluginPath, bytes.NewReader(payload))
	if err != nil {
		return sqlResponse{}, service.NewExecutionError(service.StageRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Perform(req)
	if err != nil {
		return sqlResponse{}, service.NewExecutionError(service.StageRequest, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return sqlResponse{}, service.NewExecutionError(service.StageResponse, err)
	}

	if res.StatusCode != http.StatusOK {
		return sqlResponse{}, service.NewExecutionError(service.StageRejected,
			fmt.Errorf("SQL query rejected with status %d: %s", res.StatusCode, string(body)))
	}

	var sr sqlResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return sqlResponse{}, service.NewExecutionError(service.StageResponse,
			fmt.Errorf("failed to decode SQL response: %w", err))
	}

	return sr, nil
}

// countFromReply extracts the COUNT(*) scalar from a one-row companion reply
func countFromReply(sr sqlResponse) (int, error) {
	if len(sr.Datarows) == 0 || len(sr.Datarows[0]) == 0 {
		return 0, fmt.Errorf("count reply has no rows")
	}
	value, ok := toFloat(sr.Datarows[0][0])
	if !ok {
		return 0, fmt.Errorf("count value %v is not numeric", sr.Datarows[0][0])
	}
	return int(value), nil
}

// reduceSQLRows maps schema/datarows back into the shared result shape
func (e *OpenSearchExecutor) reduceSQLRows(query model.ExecutableQuery, sr sqlResponse) (model.QueryResult, error) {
	result := model.QueryResult{Documents: []model.Document{}}

	if query.Action.Aggregate() {
		value, err := scalarFromRows(sr, aggregateColumn(query))
		if err != nil {
			return model.QueryResult{}, service.NewExecutionError(service.StageResponse, err)
		}
		result.Aggregations = map[model.Action]float64{query.Action: value}
		if query.Action == model.ActionCount {
			result.Total = int(value)
		}
		return result, nil
	}

	for _, row := range sr.Datarows {
		if len(result.Documents) >= e.pageSize {
			break
		}
		doc := model.Document{}
		for i, col := range sr.Schema {
			if i < len(row) {
				doc[col.Name] = row[i]
			}
		}
		result.Documents = append(result.Documents, doc)
	}

	result.Total = sr.Total
	if result.Total < len(result.Documents) {
		result.Total = len(result.Documents)
	}

	return result, nil
}

// aggregateColumn is the alias the builder gives the aggregate projection
func aggregateColumn(query model.ExecutableQuery) string {
	if query.Action == model.ActionCount {
		return "total_count"
	}
	return fmt.Sprintf("%s_%s", query.AggField, query.Action)
}

// scalarFromRows extracts the single aggregate value from a one-row reply
func scalarFromRows(sr sqlResponse, column string) (float64, error) {
	if len(sr.Datarows) == 0 || len(sr.Datarows[0]) == 0 {
		return 0, fmt.Errorf("aggregate reply has no rows")
	}

	idx := -1
	for i, col := range sr.Schema {
		if strings.EqualFold(col.Name, column) {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(sr.Datarows[0]) {
		return 0, fmt.Errorf("aggregate column %q missing from reply", column)
	}

	value, ok := toFloat(sr.Datarows[0][idx])
	if !ok {
		return 0, fmt.Errorf("aggregate value %v is not numeric", sr.Datarows[0][idx])
	}
	return value, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
