package formstate

import (
	"strings"
	"testing"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

func enablementEngine(t *testing.T, items []*fhir.QuestionnaireItem, options ...Option) *Engine {
	t.Helper()
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "gates", Item: items}
	return loadEngine(t, append([]Option{WithQuestionnaire(q)}, options...)...)
}

func mustEnabled(t *testing.T, engine *Engine, item *fhir.QuestionnaireItem) bool {
	t.Helper()
	enabled, err := engine.Enabled(item)
	if err != nil {
		t.Fatalf("Enabled(%s) returned error: %v", item.LinkID, err)
	}
	return enabled
}

func TestEnabledWithoutConditions(t *testing.T) {
	t.Parallel()

	item := &fhir.QuestionnaireItem{LinkID: "plain", Type: fhir.ItemTypeString}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{item})

	if !mustEnabled(t, engine, item) {
		t.Fatalf("item without conditions should be enabled")
	}
}

func TestEnabledAnyBehavior(t *testing.T) {
	t.Parallel()

	smoker := &fhir.QuestionnaireItem{LinkID: "smoker", Type: fhir.ItemTypeBoolean}
	age := &fhir.QuestionnaireItem{LinkID: "age", Type: fhir.ItemTypeInteger}
	followUp := &fhir.QuestionnaireItem{
		LinkID: "packYears", Type: fhir.ItemTypeInteger,
		EnableBehavior: fhir.EnableBehaviorAny,
		EnableWhen: []fhir.EnableWhen{
			{Question: "smoker", Operator: fhir.OperatorEquals, AnswerBoolean: boolPtr(true)},
			{Question: "age", Operator: fhir.OperatorGreater, AnswerInteger: intPtr(64)},
		},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{smoker, age, followUp})

	if mustEnabled(t, engine, followUp) {
		t.Fatalf("no condition holds yet")
	}

	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(70)}})
	if !mustEnabled(t, engine, followUp) {
		t.Fatalf("one matching condition should enable under any")
	}
}

func TestEnabledAllBehavior(t *testing.T) {
	t.Parallel()

	smoker := &fhir.QuestionnaireItem{LinkID: "smoker", Type: fhir.ItemTypeBoolean}
	age := &fhir.QuestionnaireItem{LinkID: "age", Type: fhir.ItemTypeInteger}
	followUp := &fhir.QuestionnaireItem{
		LinkID: "screening", Type: fhir.ItemTypeBoolean,
		EnableBehavior: fhir.EnableBehaviorAll,
		EnableWhen: []fhir.EnableWhen{
			{Question: "smoker", Operator: fhir.OperatorEquals, AnswerBoolean: boolPtr(true)},
			{Question: "age", Operator: fhir.OperatorGreaterOrEqual, AnswerInteger: intPtr(50)},
		},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{smoker, age, followUp})

	engine.ChangeAnswer(nil, smoker, []fhir.Answer{{ValueBoolean: boolPtr(true)}})
	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(40)}})
	if mustEnabled(t, engine, followUp) {
		t.Fatalf("all requires every condition to hold")
	}

	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(55)}})
	if !mustEnabled(t, engine, followUp) {
		t.Fatalf("both conditions hold, item should be enabled")
	}
}

func TestEnabledExistsOperator(t *testing.T) {
	t.Parallel()

	allergy := &fhir.QuestionnaireItem{LinkID: "allergy", Type: fhir.ItemTypeString}
	detail := &fhir.QuestionnaireItem{
		LinkID: "allergyDetail", Type: fhir.ItemTypeText,
		EnableWhen: []fhir.EnableWhen{
			{Question: "allergy", Operator: fhir.OperatorExists, AnswerBoolean: boolPtr(true)},
		},
	}
	fallback := &fhir.QuestionnaireItem{
		LinkID: "noAllergyNote", Type: fhir.ItemTypeText,
		EnableWhen: []fhir.EnableWhen{
			{Question: "allergy", Operator: fhir.OperatorExists, AnswerBoolean: boolPtr(false)},
		},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{allergy, detail, fallback})

	if mustEnabled(t, engine, detail) {
		t.Fatalf("exists=true should fail with no answer")
	}
	if !mustEnabled(t, engine, fallback) {
		t.Fatalf("exists=false should pass with no answer")
	}

	engine.ChangeAnswer(nil, allergy, []fhir.Answer{{ValueString: strPtr("peanuts")}})
	if !mustEnabled(t, engine, detail) {
		t.Fatalf("exists=true should pass once answered")
	}
	if mustEnabled(t, engine, fallback) {
		t.Fatalf("exists=false should fail once answered")
	}
}

func TestEnabledExpressionOverridesConditions(t *testing.T) {
	t.Parallel()

	age := &fhir.QuestionnaireItem{LinkID: "age", Type: fhir.ItemTypeInteger}
	gated := &fhir.QuestionnaireItem{
		LinkID: "consent", Type: fhir.ItemTypeBoolean,
		// The condition alone would enable the item; the expression says no.
		EnableWhen: []fhir.EnableWhen{
			{Question: "age", Operator: fhir.OperatorExists, AnswerBoolean: boolPtr(false)},
		},
		Extension: []fhir.Extension{{
			URL:             fhir.ExtEnableWhenExpression,
			ValueExpression: &fhir.Expression{Language: "text/fhirpath", Expression: "age >= 18"},
		}},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{age, gated})

	if mustEnabled(t, engine, gated) {
		t.Fatalf("expression over an unanswered question yields empty, so disabled")
	}

	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(21)}})
	if !mustEnabled(t, engine, gated) {
		t.Fatalf("expression should enable once age >= 18")
	}
}

func TestEnabledExpressionErrorPropagates(t *testing.T) {
	t.Parallel()

	broken := &fhir.QuestionnaireItem{
		LinkID: "broken", Type: fhir.ItemTypeString,
		Extension: []fhir.Extension{{
			URL:             fhir.ExtEnableWhenExpression,
			ValueExpression: &fhir.Expression{Expression: "(age > 18"},
		}},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{broken})

	_, err := engine.Enabled(broken)
	if err == nil {
		t.Fatalf("expected error from malformed expression")
	}
	if !strings.Contains(err.Error(), `"broken"`) {
		t.Fatalf("error should name the item: %v", err)
	}
}

func TestEnabledStringComparisonAgainstCoding(t *testing.T) {
	t.Parallel()

	status := &fhir.QuestionnaireItem{LinkID: "status", Type: fhir.ItemTypeChoice}
	gated := &fhir.QuestionnaireItem{
		LinkID: "spouseName", Type: fhir.ItemTypeString,
		EnableWhen: []fhir.EnableWhen{
			{Question: "status", Operator: fhir.OperatorEquals, AnswerCoding: &fhir.Coding{System: "http://example.org/marital", Code: "M"}},
		},
	}
	engine := enablementEngine(t, []*fhir.QuestionnaireItem{status, gated})

	engine.ChangeAnswer(nil, status, []fhir.Answer{{ValueCoding: &fhir.Coding{System: "http://example.org/marital", Code: "S"}}})
	if mustEnabled(t, engine, gated) {
		t.Fatalf("different code should not match")
	}

	engine.ChangeAnswer(nil, status, []fhir.Answer{{ValueCoding: &fhir.Coding{Code: "M"}}})
	if !mustEnabled(t, engine, gated) {
		t.Fatalf("matching code with absent system should match")
	}
}
