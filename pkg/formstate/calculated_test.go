package formstate

import (
	"strings"
	"testing"

	"github.com/goliatone/go-formstate/pkg/expr"
	"github.com/goliatone/go-formstate/pkg/fhir"
)

func calcExtension(expression string) fhir.Extension {
	return fhir.Extension{
		URL:             fhir.ExtCalculatedExpression,
		ValueExpression: &fhir.Expression{Language: "text/fhirpath", Expression: expression},
	}
}

func TestCalculatedExpressionTracksAnswers(t *testing.T) {
	t.Parallel()

	age := &fhir.QuestionnaireItem{LinkID: "age", Type: fhir.ItemTypeInteger}
	isAdult := &fhir.QuestionnaireItem{
		LinkID: "isAdult", Type: fhir.ItemTypeBoolean,
		Extension: []fhir.Extension{calcExtension("age >= 18")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{age, isAdult}}
	engine := loadEngine(t, WithQuestionnaire(q))

	// Unanswered dependency: the expression yields empty, answers stay.
	if got := engine.Response().Item[1].Answer; got != nil {
		t.Fatalf("answers = %+v, want none before age is known", got)
	}

	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(20)}})
	answers := engine.Response().Item[1].Answer
	if len(answers) != 1 || answers[0].ValueBoolean == nil || !*answers[0].ValueBoolean {
		t.Fatalf("isAdult = %+v, want valueBoolean true", answers)
	}

	engine.ChangeAnswer(nil, age, []fhir.Answer{{ValueInteger: intPtr(12)}})
	answers = engine.Response().Item[1].Answer
	if len(answers) != 1 || answers[0].ValueBoolean == nil || *answers[0].ValueBoolean {
		t.Fatalf("isAdult = %+v, want valueBoolean false", answers)
	}
}

func TestCalculatedLiteralComparison(t *testing.T) {
	t.Parallel()

	check := &fhir.QuestionnaireItem{
		LinkID: "check", Type: fhir.ItemTypeBoolean,
		Extension: []fhir.Extension{calcExtension("20 > 18")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{check}}
	engine := loadEngine(t, WithQuestionnaire(q))

	answers := engine.Response().Item[0].Answer
	if len(answers) != 1 || answers[0].ValueBoolean == nil || !*answers[0].ValueBoolean {
		t.Fatalf("check = %+v, want valueBoolean true", answers)
	}
}

func TestCalculatedTypeMismatchIsDiscarded(t *testing.T) {
	t.Parallel()

	wrong := &fhir.QuestionnaireItem{
		LinkID: "count", Type: fhir.ItemTypeInteger,
		Initial:   []fhir.Initial{{ValueInteger: intPtr(7)}},
		Extension: []fhir.Extension{calcExtension("'not a number'")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{wrong}}
	engine := loadEngine(t, WithQuestionnaire(q))

	answers := engine.Response().Item[0].Answer
	if len(answers) != 1 || answers[0].ValueInteger == nil || *answers[0].ValueInteger != 7 {
		t.Fatalf("mismatched result should leave answers untouched: %+v", answers)
	}
}

func TestCalculatedFailureAnnotatesItem(t *testing.T) {
	t.Parallel()

	broken := &fhir.QuestionnaireItem{
		LinkID: "broken", Type: fhir.ItemTypeString,
		Extension: []fhir.Extension{calcExtension("(1 +")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{broken}}
	engine := loadEngine(t, WithQuestionnaire(q))

	item := engine.Response().Item[0]
	ext := fhir.GetExtension(item.Extension, fhir.ExtValidationError)
	if ext == nil || ext.ValueString == nil {
		t.Fatalf("expected validation error extension, got %+v", item.Extension)
	}
	if !strings.HasPrefix(*ext.ValueString, "Expression evaluation failed: ") {
		t.Fatalf("annotation = %q", *ext.ValueString)
	}
	if item.Answer != nil {
		t.Fatalf("failed expression must not touch answers: %+v", item.Answer)
	}
}

func TestCalculatedStringCoercion(t *testing.T) {
	t.Parallel()

	first := &fhir.QuestionnaireItem{LinkID: "first", Type: fhir.ItemTypeString}
	last := &fhir.QuestionnaireItem{LinkID: "last", Type: fhir.ItemTypeString}
	full := &fhir.QuestionnaireItem{
		LinkID: "full", Type: fhir.ItemTypeString,
		Extension: []fhir.Extension{calcExtension("first + ' ' + last")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{first, last, full}}
	engine := loadEngine(t, WithQuestionnaire(q))

	engine.ChangeAnswer(nil, first, []fhir.Answer{{ValueString: strPtr("Ada")}})
	engine.ChangeAnswer(nil, last, []fhir.Answer{{ValueString: strPtr("Lovelace")}})

	answers := engine.Response().Item[2].Answer
	if len(answers) != 1 || answers[0].ValueString == nil || *answers[0].ValueString != "Ada Lovelace" {
		t.Fatalf("full = %+v, want Ada Lovelace", answers)
	}
}

func TestSignatureChangeSkipsRecalculation(t *testing.T) {
	t.Parallel()

	evaluations := 0
	counting := EvaluatorFunc(func(expression string, doc *fhir.QuestionnaireResponse) ([]fhir.TypedValue, error) {
		evaluations++
		return expr.New().Evaluate(expression, doc)
	})

	calc := &fhir.QuestionnaireItem{
		LinkID: "check", Type: fhir.ItemTypeBoolean,
		Extension: []fhir.Extension{calcExtension("true")},
	}
	q := &fhir.Questionnaire{ResourceType: "Questionnaire", ID: "calc", Item: []*fhir.QuestionnaireItem{calc}}
	engine := loadEngine(t, WithQuestionnaire(q), WithEvaluator(counting))

	afterLoad := evaluations
	if afterLoad == 0 {
		t.Fatalf("Load should evaluate calculated expressions")
	}

	engine.ChangeSignature(&fhir.Signature{When: "2026-01-02T10:00:00Z"})
	if evaluations != afterLoad {
		t.Fatalf("signature change triggered %d extra evaluations", evaluations-afterLoad)
	}
}

func TestCalculatedInsideNestedGroup(t *testing.T) {
	t.Parallel()

	weight := &fhir.QuestionnaireItem{LinkID: "weightKg", Type: fhir.ItemTypeDecimal}
	doubled := &fhir.QuestionnaireItem{
		LinkID: "weightLb", Type: fhir.ItemTypeDecimal,
		Extension: []fhir.Extension{calcExtension("weightKg * 2")},
	}
	q := &fhir.Questionnaire{
		ResourceType: "Questionnaire", ID: "calc",
		Item: []*fhir.QuestionnaireItem{
			{LinkID: "vitals", Type: fhir.ItemTypeGroup, Item: []*fhir.QuestionnaireItem{weight, doubled}},
		},
	}
	engine := loadEngine(t, WithQuestionnaire(q))

	group := engine.Response().Item[0]
	engine.ChangeAnswer([]*fhir.QuestionnaireResponseItem{group}, weight, []fhir.Answer{{ValueDecimal: floatPtr(10)}})

	answers := engine.Response().Item[0].Item[1].Answer
	if len(answers) != 1 || answers[0].ValueDecimal == nil || *answers[0].ValueDecimal != 20 {
		t.Fatalf("weightLb = %+v, want 20", answers)
	}
}

func floatPtr(f float64) *float64 { return &f }
