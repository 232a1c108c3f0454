package service

import (
	"fmt"
	"strconv"
	"strings"

	"geoquery/internal/model"
)

// ResponseReducer collapses a raw QueryResult into the externally visible
// answer contract. It is the last pipeline stage and never mutates its input.
type ResponseReducer struct {
	excerptSize int
}

// NewResponseReducer creates a new response reducer
func NewResponseReducer() *ResponseReducer {
	return &ResponseReducer{excerptSize: 10}
}

// textPreviewLimit bounds the document text excerpt, in runes.
const textPreviewLimit = 200

// Reduce renders the final answer: a scalar sentence when an aggregation was
// requested, otherwise a count plus a bounded excerpt of matching rows.
// Coordinates are extracted from whatever documents carry usable ones;
// documents without coordinates still count toward ResultsCount.
func (r *ResponseReducer) Reduce(result model.QueryResult, question string) model.Response {
	coordinates := r.extractCoordinates(result.Documents)

	return model.Response{
		Answer:         r.renderAnswer(result, question),
		Coordinates:    coordinates,
		ResultsCount:   result.Total,
		HasCoordinates: len(coordinates) > 0,
	}
}

func (r *ResponseReducer) renderAnswer(result model.QueryResult, question string) string {
	if len(result.Aggregations) > 0 {
		return r.renderAggregations(result, question)
	}

	if len(result.Documents) == 0 && result.Total == 0 {
		return fmt.Sprintf("По запросу «%s» результаты не найдены.", question)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Результаты по запросу: «%s»", question))
	parts = append(parts, fmt.Sprintf("Найдено записей: %d", result.Total))

	for i, doc := range result.Documents {
		if i >= r.excerptSize {
			parts = append(parts, fmt.Sprintf("... и ещё %d записей", len(result.Documents)-r.excerptSize))
			break
		}
		parts = append(parts, r.renderDocument(i+1, doc))
	}

	return strings.Join(parts, "\n")
}

func (r *ResponseReducer) renderAggregations(result model.QueryResult, question string) string {
	var parts []string

	// Deterministic order over the six verbs; in practice one entry.
	for _, action := range []model.Action{model.ActionMax, model.ActionMin, model.ActionAvg, model.ActionSum, model.ActionCount} {
		value, ok := result.Aggregations[action]
		if !ok {
			continue
		}
		if action == model.ActionCount {
			parts = append(parts, fmt.Sprintf("Количество записей по запросу «%s»: %d", question, int(value)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s по запросу «%s»: %s",
			capitalize(action.DisplayName()), question, formatScalar(value)))
	}

	if _, hasCount := result.Aggregations[model.ActionCount]; !hasCount && result.Total > 0 {
		parts = append(parts, fmt.Sprintf("Найдено записей: %d", result.Total))
	}

	return strings.Join(parts, "\n")
}

// renderDocument renders one excerpt row with its known attribute values
// and a bounded text preview
func (r *ResponseReducer) renderDocument(n int, doc model.Document) string {
	var fields []string
	for _, key := range []string{"layer_name", "region", "Corg", "R0", "depth"} {
		if value, ok := doc[key]; ok && value != nil {
			fields = append(fields, fmt.Sprintf("%s: %v", key, value))
		}
	}

	line := fmt.Sprintf("%d.", n)
	if len(fields) > 0 {
		line += " " + strings.Join(fields, ", ")
	}

	if text, ok := doc["text"].(string); ok && text != "" {
		preview := text
		if runes := []rune(preview); len(runes) > textPreviewLimit {
			preview = string(runes[:textPreviewLimit]) + "..."
		}
		line += fmt.Sprintf("\n   Текст: %s", preview)
	}

	return line
}

// extractCoordinates scans documents for geospatial fields. A document may
// carry coordinates as lat/lon scalars, numeric strings, bracketed array
// strings like "[52.1, 47.3]" (first element is taken for lon, last for
// lat), or a combined "lat,lon" location string. Out-of-range pairs are
// skipped.
func (r *ResponseReducer) extractCoordinates(documents []model.Document) []model.Coordinate {
	coordinates := []model.Coordinate{}

	for i, doc := range documents {
		lat, latOK := coordinateValue(doc["lat"], true)
		lon, lonOK := coordinateValue(doc["lon"], false)

		if !latOK || !lonOK {
			if pair, ok := splitLocationPair(doc["location"]); ok {
				lat, lon = pair[0], pair[1]
				latOK, lonOK = true, true
			}
		}

		if !latOK || !lonOK {
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}

		coordinates = append(coordinates, model.Coordinate{
			Lat:  lat,
			Lon:  lon,
			Info: documentInfo(doc, i+1),
		})
	}

	return coordinates
}

// coordinateValue parses one coordinate field. pickLast selects the last
// element of array-shaped values (the source data stores lat arrays with the
// usable value at the end, lon arrays at the start).
func coordinateValue(v any, pickLast bool) (float64, bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case float64:
		return value, true
	case int:
		return float64(value), true
	case []any:
		if len(value) == 0 {
			return 0, false
		}
		if pickLast {
			return coordinateValue(value[len(value)-1], pickLast)
		}
		return coordinateValue(value[0], pickLast)
	case string:
		s := strings.TrimSpace(value)
		if s == "" || s == "nan" || s == "None" {
			return 0, false
		}
		if strings.HasPrefix(s, "[") {
			parts := strings.Split(strings.Trim(s, "[]"), ",")
			if len(parts) == 0 {
				return 0, false
			}
			pick := parts[0]
			if pickLast {
				pick = parts[len(parts)-1]
			}
			return coordinateValue(strings.TrimSpace(pick), pickLast)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// splitLocationPair parses a combined "lat,lon" location string
func splitLocationPair(v any) ([2]float64, bool) {
	s, ok := v.(string)
	if !ok {
		return [2]float64{}, false
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return [2]float64{}, false
	}
	return [2]float64{lat, lon}, true
}

// documentInfo assembles the map-marker label from identifying fields
func documentInfo(doc model.Document, n int) string {
	var parts []string
	for _, key := range []string{"layer_name", "region", "matched_feature"} {
		if value, ok := doc[key]; ok && value != nil {
			if s := fmt.Sprintf("%v", value); s != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", key, s))
			}
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Запись %d", n)
	}
	return strings.Join(parts, ", ")
}

func formatScalar(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
