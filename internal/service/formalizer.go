package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"geoquery/internal/model"
	"geoquery/internal/utils"
)

// Formalizer turns a free-text question into a FormalizedQuery by prompting
// the completion capability and validating its structured reply against the
// closed vocabularies. It never fails: any completion or parse problem
// degrades to an empty query, which downstream means "list all, bounded".
type Formalizer struct {
	client CompletionClient
}

// NewFormalizer creates a new query formalizer
func NewFormalizer(client CompletionClient) *Formalizer {
	return &Formalizer{client: client}
}

// formalizedPayload mirrors the JSON object the prompt asks the model for.
// All fields are untrusted until validated.
type formalizedPayload struct {
	Attributes []string       `json:"attributes"`
	Location   *string        `json:"location"`
	Action     *string        `json:"action"`
	Filters    map[string]any `json:"filters"`
}

// Formalize extracts structured information from a natural language question
func (f *Formalizer) Formalize(ctx context.Context, question string) model.FormalizedQuery {
	question = strings.TrimSpace(question)
	empty := model.FormalizedQuery{Attributes: []string{}, Filters: map[string]any{}, RawQuery: question}

	if question == "" {
		return empty
	}

	if f.client == nil || !f.client.IsEnabled() {
		log.Printf("Completion API is not enabled, returning empty formalized query. Set OPENAI_API_KEY to enable formalization.")
		return empty
	}

	reply, err := f.client.Complete(ctx, formalizationPrompt(), question)
	if err != nil {
		log.Printf("Formalization failed: %v, returning empty formalized query", err)
		return empty
	}

	var payload formalizedPayload
	if err := utils.ParseLLMJSON(reply, &payload); err != nil {
		log.Printf("Failed to parse formalization reply: %v", err)
		return empty
	}

	return f.validate(payload, question)
}

// validate intersects the model's reply with the closed vocabularies.
// Unknown attributes are silently dropped, an unknown action verb is treated
// as absent; location and filter values pass through as free-form content.
func (f *Formalizer) validate(payload formalizedPayload, question string) model.FormalizedQuery {
	fq := model.FormalizedQuery{
		Attributes: []string{},
		Filters:    map[string]any{},
		RawQuery:   question,
	}

	seen := map[string]bool{}
	for _, attr := range payload.Attributes {
		attr = strings.TrimSpace(attr)
		if !model.KnownAttribute(attr) || seen[attr] {
			if !seen[attr] && attr != "" {
				log.Printf("Dropping unknown attribute from formalization reply: %q", attr)
			}
			continue
		}
		seen[attr] = true
		fq.Attributes = append(fq.Attributes, attr)
	}

	if payload.Location != nil {
		fq.Location = strings.TrimSpace(*payload.Location)
	}

	if payload.Action != nil {
		if action, ok := model.ParseAction(strings.ToLower(strings.TrimSpace(*payload.Action))); ok {
			fq.Action = action
		} else {
			log.Printf("Unknown action %q in formalization reply, treating as absent", *payload.Action)
		}
	}

	for key, value := range payload.Filters {
		if value == nil {
			continue
		}
		fq.Filters[key] = value
	}

	return fq
}

// formalizationPrompt builds the fixed instruction prompt embedding both
// closed vocabularies, so the model has no reason to invent values outside
// the domain (though it still may; validation catches that).
func formalizationPrompt() string {
	attrs := make([]string, 0, len(model.Attributes))
	for name := range model.Attributes {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	var attrLines []string
	for _, name := range attrs {
		attrLines = append(attrLines, fmt.Sprintf("- %s: %s", name, model.Attributes[name]))
	}

	actionLines := []string{}
	for _, a := range []model.Action{model.ActionMax, model.ActionMin, model.ActionAvg, model.ActionSum, model.ActionCount, model.ActionList} {
		actionLines = append(actionLines, fmt.Sprintf("- %s: %s", a, a.DisplayName()))
	}

	return fmt.Sprintf(`Ты - эксперт по анализу геологических данных Каспийского моря.
Твоя задача - формализовать запрос пользователя и извлечь структурированную информацию.

Доступные признаки в базе данных:
%s

Доступные действия/флаги:
%s

Проанализируй запрос пользователя и верни ТОЛЬКО валидный JSON в следующем формате:
{
    "attributes": ["список", "признаков", "для", "запроса"],
    "location": "название региона или места (если указано, иначе null)",
    "action": "одно из действий: max, min, avg, sum, count, list (если указано, иначе null)",
    "filters": {"дополнительные": "фильтры в формате ключ-значение"}
}

Правила:
1. В attributes укажи ТОЛЬКО те признаки, которые упоминаются в запросе или логически необходимы
2. Если пользователь спрашивает про конкретное место/регион, укажи его в location
3. Если пользователь просит найти максимум/минимум/среднее, укажи соответствующее действие
4. Если действие не указано явно, но логически требуется (например, "найти наибольшее"), определи его
5. Если запрос неясен или некорректен, верни пустые списки и null значения
6. Используй ТОЛЬКО доступные признаки и действия из списков выше

Верни ТОЛЬКО JSON, без дополнительного текста.`,
		strings.Join(attrLines, "\n"),
		strings.Join(actionLines, "\n"))
}
