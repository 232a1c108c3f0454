package service

import (
	"strings"
	"testing"

	"geoquery/internal/model"
)

func TestReduce_AggregateAnswer(t *testing.T) {
	reducer := NewResponseReducer()
	question := "Найди максимальное значение Corg в регионе Каспийского моря"

	resp := reducer.Reduce(model.QueryResult{
		Aggregations: map[model.Action]float64{model.ActionMax: 4.7},
		Total:        12,
	}, question)

	want := "Максимальное значение по запросу «" + question + "»: 4.7\nНайдено записей: 12"
	if resp.Answer != want {
		t.Errorf("Expected %q, got %q", want, resp.Answer)
	}
	if resp.ResultsCount != 12 {
		t.Errorf("Expected results count 12, got %d", resp.ResultsCount)
	}
	if resp.HasCoordinates {
		t.Error("Expected no coordinates for pure aggregations")
	}
	if resp.Coordinates == nil || len(resp.Coordinates) != 0 {
		t.Errorf("Expected empty coordinates slice, got %v", resp.Coordinates)
	}
}

func TestReduce_CountAnswer(t *testing.T) {
	reducer := NewResponseReducer()

	resp := reducer.Reduce(model.QueryResult{
		Aggregations: map[model.Action]float64{model.ActionCount: 37},
		Total:        37,
	}, "сколько записей по слою эоцен")

	want := "Количество записей по запросу «сколько записей по слою эоцен»: 37"
	if resp.Answer != want {
		t.Errorf("Expected %q, got %q", want, resp.Answer)
	}
	if resp.ResultsCount != 37 {
		t.Errorf("Expected results count 37, got %d", resp.ResultsCount)
	}
}

func TestReduce_NoResults(t *testing.T) {
	reducer := NewResponseReducer()

	resp := reducer.Reduce(model.QueryResult{}, "данные по Марсу")

	want := "По запросу «данные по Марсу» результаты не найдены."
	if resp.Answer != want {
		t.Errorf("Expected %q, got %q", want, resp.Answer)
	}
	if resp.ResultsCount != 0 || resp.HasCoordinates {
		t.Errorf("Expected empty response, got %+v", resp)
	}
}

func TestReduce_RetrievalExcerpt(t *testing.T) {
	reducer := NewResponseReducer()

	resp := reducer.Reduce(model.QueryResult{
		Documents: []model.Document{
			{"layer_name": "эоцен", "region": "Северный Каспий", "depth": 1540.0, "text": "Описание слоя."},
			{"layer_name": "палеоцен", "Corg": 2.1},
		},
		Total: 42,
	}, "Покажи все данные по слою эоцен")

	if !strings.Contains(resp.Answer, "Найдено записей: 42") {
		t.Errorf("Expected total in answer, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "1. layer_name: эоцен, region: Северный Каспий, depth: 1540") {
		t.Errorf("Expected first excerpt row, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Текст: Описание слоя.") {
		t.Errorf("Expected text preview, got %q", resp.Answer)
	}
	if resp.ResultsCount != 42 {
		t.Errorf("Expected results count from total, got %d", resp.ResultsCount)
	}
}

func TestReduce_ExcerptIsBounded(t *testing.T) {
	reducer := NewResponseReducer()

	docs := make([]model.Document, 15)
	for i := range docs {
		docs[i] = model.Document{"region": "Каспий"}
	}

	resp := reducer.Reduce(model.QueryResult{Documents: docs, Total: 15}, "все записи")

	if !strings.Contains(resp.Answer, "... и ещё 5 записей") {
		t.Errorf("Expected excerpt truncation marker, got %q", resp.Answer)
	}
	if strings.Contains(resp.Answer, "11. ") {
		t.Errorf("Expected at most 10 excerpt rows, got %q", resp.Answer)
	}
}

func TestReduce_TextPreviewBounded(t *testing.T) {
	reducer := NewResponseReducer()
	long := strings.Repeat("я", 300)

	resp := reducer.Reduce(model.QueryResult{
		Documents: []model.Document{{"text": long}},
		Total:     1,
	}, "q")

	if strings.Contains(resp.Answer, long) {
		t.Error("Expected long text truncated")
	}
	if !strings.Contains(resp.Answer, strings.Repeat("я", 200)+"...") {
		t.Errorf("Expected 200-rune preview with ellipsis, got %q", resp.Answer)
	}
}

func TestExtractCoordinates(t *testing.T) {
	reducer := NewResponseReducer()

	tests := []struct {
		name    string
		doc     model.Document
		wantLat float64
		wantLon float64
		wantOK  bool
	}{
		{
			name:    "numeric scalars",
			doc:     model.Document{"lat": 45.3, "lon": 50.1},
			wantLat: 45.3, wantLon: 50.1, wantOK: true,
		},
		{
			name:    "numeric strings",
			doc:     model.Document{"lat": "44.95", "lon": "51.2"},
			wantLat: 44.95, wantLon: 51.2, wantOK: true,
		},
		{
			name:    "bracketed array strings",
			doc:     model.Document{"lat": "[41.0, 45.5]", "lon": "[50.2, 52.8]"},
			wantLat: 45.5, wantLon: 50.2, wantOK: true,
		},
		{
			name:    "array values",
			doc:     model.Document{"lat": []any{41.0, 45.5}, "lon": []any{50.2, 52.8}},
			wantLat: 45.5, wantLon: 50.2, wantOK: true,
		},
		{
			name:    "combined location string",
			doc:     model.Document{"location": "45.3, 50.1"},
			wantLat: 45.3, wantLon: 50.1, wantOK: true,
		},
		{
			name:   "latitude out of range",
			doc:    model.Document{"lat": 145.3, "lon": 50.1},
			wantOK: false,
		},
		{
			name:   "longitude out of range",
			doc:    model.Document{"lat": 45.3, "lon": 250.0},
			wantOK: false,
		},
		{
			name:   "nan markers",
			doc:    model.Document{"lat": "nan", "lon": "None"},
			wantOK: false,
		},
		{
			name:   "missing fields",
			doc:    model.Document{"region": "Каспий"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coords := reducer.extractCoordinates([]model.Document{tt.doc})

			if !tt.wantOK {
				if len(coords) != 0 {
					t.Errorf("Expected no coordinates, got %v", coords)
				}
				return
			}
			if len(coords) != 1 {
				t.Fatalf("Expected one coordinate, got %v", coords)
			}
			if coords[0].Lat != tt.wantLat || coords[0].Lon != tt.wantLon {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.wantLat, tt.wantLon, coords[0].Lat, coords[0].Lon)
			}
		})
	}
}

func TestReduce_DocumentsWithoutCoordinatesStillCount(t *testing.T) {
	reducer := NewResponseReducer()

	resp := reducer.Reduce(model.QueryResult{
		Documents: []model.Document{
			{"lat": 45.3, "lon": 50.1, "layer_name": "эоцен"},
			{"region": "Каспий"},
			{"lat": "nan", "lon": "nan"},
		},
		Total: 3,
	}, "все записи")

	if resp.ResultsCount != 3 {
		t.Errorf("Expected all documents counted, got %d", resp.ResultsCount)
	}
	if len(resp.Coordinates) != 1 {
		t.Fatalf("Expected one coordinate, got %v", resp.Coordinates)
	}
	if !resp.HasCoordinates {
		t.Error("Expected has_coordinates true")
	}
	if resp.Coordinates[0].Info != "layer_name: эоцен" {
		t.Errorf("Expected marker label from identifying fields, got %q", resp.Coordinates[0].Info)
	}
}

func TestDocumentInfo_Fallback(t *testing.T) {
	info := documentInfo(model.Document{"lat": 45.3, "lon": 50.1}, 3)

	if info != "Запись 3" {
		t.Errorf("Expected positional fallback label, got %q", info)
	}
}
