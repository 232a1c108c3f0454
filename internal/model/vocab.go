package model

// Action is an aggregation verb extracted from a user question.
type Action string

const (
	ActionMax   Action = "max"
	ActionMin   Action = "min"
	ActionAvg   Action = "avg"
	ActionSum   Action = "sum"
	ActionCount Action = "count"
	ActionList  Action = "list"
)

// Attributes is the closed attribute vocabulary of the geological index.
// Values are the Russian display names embedded in the formalization prompt.
var Attributes = map[string]string{
	"Corg":       "Органический углерод",
	"R0":         "Степень зрелости органического вещества",
	"depth":      "Глубина",
	"region":     "Регион",
	"layer_name": "Название слоя",
	"location":   "Географическое местоположение",
}

// NumericAttributes lists the attributes that carry numeric measurements
// and therefore support max/min/avg/sum aggregation.
var NumericAttributes = map[string]bool{
	"Corg":  true,
	"R0":    true,
	"depth": true,
}

// Actions maps each verb of the closed action vocabulary to its Russian
// display name, used both in the prompt and in rendered answers.
var Actions = map[Action]string{
	ActionMax:   "максимальное значение",
	ActionMin:   "минимальное значение",
	ActionAvg:   "среднее значение",
	ActionSum:   "сумма",
	ActionCount: "количество",
	ActionList:  "список всех значений",
}

// KnownAttribute reports whether name is part of the attribute vocabulary.
func KnownAttribute(name string) bool {
	_, ok := Attributes[name]
	return ok
}

// ParseAction validates a raw verb against the action vocabulary.
// Unknown verbs yield ("", false): the caller treats them as absent.
func ParseAction(raw string) (Action, bool) {
	a := Action(raw)
	if _, ok := Actions[a]; ok {
		return a, true
	}
	return "", false
}

// Aggregate reports whether the action collapses matches into a scalar.
// list (and absence) mean plain retrieval.
func (a Action) Aggregate() bool {
	switch a {
	case ActionMax, ActionMin, ActionAvg, ActionSum, ActionCount:
		return true
	}
	return false
}

// DisplayName returns the Russian display name for the action, used when
// rendering aggregate answers.
func (a Action) DisplayName() string {
	return Actions[a]
}
