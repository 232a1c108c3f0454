package utils

import (
	"testing"
)

type formalizedPayload struct {
	Attributes []string       `json:"attributes"`
	Location   *string        `json:"location"`
	Action     *string        `json:"action"`
	Filters    map[string]any `json:"filters"`
}

func TestParseLLMJSON_PureJSON(t *testing.T) {
	input := `{"attributes": ["Corg"], "location": "Каспийское море", "action": "max", "filters": {}}`

	var result formalizedPayload
	if err := ParseLLMJSON(input, &result); err != nil {
		t.Fatalf("ParseLLMJSON failed: %v", err)
	}

	if len(result.Attributes) != 1 || result.Attributes[0] != "Corg" {
		t.Errorf("Expected attributes [Corg], got %v", result.Attributes)
	}
	if result.Action == nil || *result.Action != "max" {
		t.Errorf("Expected action max, got %v", result.Action)
	}
}

func TestParseLLMJSON_MarkdownWrapped(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "json fence",
			input: "```json\n{\"attributes\": [\"depth\"], \"action\": \"avg\"}\n```",
		},
		{
			name:  "bare fence",
			input: "```\n{\"attributes\": [\"depth\"], \"action\": \"avg\"}\n```",
		},
		{
			name:  "fence with leading text",
			input: "Вот результат:\n```json\n{\"attributes\": [\"depth\"], \"action\": \"avg\"}\n```\nГотово.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result formalizedPayload
			if err := ParseLLMJSON(tt.input, &result); err != nil {
				t.Fatalf("ParseLLMJSON failed: %v", err)
			}
			if len(result.Attributes) != 1 || result.Attributes[0] != "depth" {
				t.Errorf("Expected attributes [depth], got %v", result.Attributes)
			}
		})
	}
}

func TestParseLLMJSON_EmbeddedInText(t *testing.T) {
	input := `Формализованный запрос: {"attributes": ["R0"], "location": null, "action": "min", "filters": {"layer_name": "эоцен"}} — готово.`

	var result formalizedPayload
	if err := ParseLLMJSON(input, &result); err != nil {
		t.Fatalf("ParseLLMJSON failed: %v", err)
	}

	if result.Filters["layer_name"] != "эоцен" {
		t.Errorf("Expected layer_name filter, got %v", result.Filters)
	}
}

func TestParseLLMJSON_NestedBraces(t *testing.T) {
	input := `answer: {"attributes": [], "filters": {"region": "Астрахань", "depth": 100}}`

	var result formalizedPayload
	if err := ParseLLMJSON(input, &result); err != nil {
		t.Fatalf("ParseLLMJSON failed: %v", err)
	}
	if len(result.Filters) != 2 {
		t.Errorf("Expected 2 filters, got %v", result.Filters)
	}
}

func TestParseLLMJSON_FixableDefects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "trailing comma",
			input: `{"attributes": ["Corg",], "action": "sum",}`,
		},
		{
			name:  "unquoted keys",
			input: `{attributes: ["Corg"], action: "sum"}`,
		},
		{
			name:  "byte order mark with unquoted keys",
			input: "\ufeff" + `{attributes: ["Corg"], action: "sum"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result formalizedPayload
			if err := ParseLLMJSON(tt.input, &result); err != nil {
				t.Fatalf("ParseLLMJSON failed: %v", err)
			}
			if result.Action == nil || *result.Action != "sum" {
				t.Errorf("Expected action sum, got %v", result.Action)
			}
		})
	}
}

func TestCleanJSON_StripsByteOrderMark(t *testing.T) {
	cleaned := cleanJSON("\ufeff{\"attributes\": []}")

	if cleaned != `{"attributes": []}` {
		t.Errorf("Expected leading BOM stripped, got %q", cleaned)
	}
}

func TestParseLLMJSON_BracesInsideStrings(t *testing.T) {
	input := `{"attributes": [], "location": "регион {спорный}", "filters": {}}`

	var result formalizedPayload
	if err := ParseLLMJSON(input, &result); err != nil {
		t.Fatalf("ParseLLMJSON failed: %v", err)
	}
	if result.Location == nil || *result.Location != "регион {спорный}" {
		t.Errorf("Expected braces preserved inside string, got %v", result.Location)
	}
}

func TestParseLLMJSON_Unparseable(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "plain text", input: "К сожалению, я не могу ответить на этот вопрос."},
		{name: "unbalanced", input: `{"attributes": ["Corg"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result formalizedPayload
			if err := ParseLLMJSON(tt.input, &result); err == nil {
				t.Error("Expected error for unparseable input")
			}
		})
	}
}
