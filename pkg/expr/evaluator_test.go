package expr

import (
	"strings"
	"testing"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

func answerDoc(linkID string, answer fhir.Answer) *fhir.QuestionnaireResponse {
	return &fhir.QuestionnaireResponse{
		ResourceType: "QuestionnaireResponse",
		Status:       "in-progress",
		Item: []*fhir.QuestionnaireResponseItem{
			{LinkID: linkID, Answer: []fhir.Answer{answer}},
		},
	}
}

func evalOne(t *testing.T, expression string, doc *fhir.QuestionnaireResponse) fhir.TypedValue {
	t.Helper()
	results, err := New().Evaluate(expression, doc)
	if err != nil {
		t.Fatalf("Evaluate(%q) returned error: %v", expression, err)
	}
	if len(results) != 1 {
		t.Fatalf("Evaluate(%q) = %d results, want 1", expression, len(results))
	}
	return results[0]
}

func TestEvaluateLiteralComparison(t *testing.T) {
	t.Parallel()

	value := evalOne(t, "20 > 18", nil)
	if value.Kind != fhir.KindBoolean {
		t.Fatalf("kind = %s, want boolean", value.Kind)
	}
	if b, _ := value.Bool(); !b {
		t.Fatalf("expected 20 > 18 to be true")
	}

	if b, _ := evalOne(t, "3 <= 2", nil).Bool(); b {
		t.Fatalf("expected 3 <= 2 to be false")
	}
}

func TestEvaluateEqualityAcceptsBothSpellings(t *testing.T) {
	t.Parallel()

	age := 20
	doc := answerDoc("age", fhir.Answer{ValueInteger: &age})

	for _, expression := range []string{"age = 20", "age == 20"} {
		if b, _ := evalOne(t, expression, doc).Bool(); !b {
			t.Fatalf("expected %q to be true", expression)
		}
	}
	if b, _ := evalOne(t, "age != 20", doc).Bool(); b {
		t.Fatalf("expected age != 20 to be false")
	}
}

func TestEvaluateIdentifierResolvesAnswer(t *testing.T) {
	t.Parallel()

	name := "Ada"
	doc := answerDoc("name", fhir.Answer{ValueString: &name})

	value := evalOne(t, "name", doc)
	if s, _ := value.Str(); s != "Ada" {
		t.Fatalf("name = %q, want Ada", s)
	}

	if b, _ := evalOne(t, "name = 'Ada'", doc).Bool(); !b {
		t.Fatalf("expected string equality to hold")
	}
}

func TestEvaluateUnansweredIdentifierIsEmpty(t *testing.T) {
	t.Parallel()

	doc := &fhir.QuestionnaireResponse{
		Item: []*fhir.QuestionnaireResponseItem{{LinkID: "age"}},
	}

	// Comparing against an absent value propagates empty rather than
	// guessing false.
	results, err := New().Evaluate("age > 18", doc)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %v", results)
	}
}

func TestEvaluateBooleanComposition(t *testing.T) {
	t.Parallel()

	age := 30
	doc := answerDoc("age", fhir.Answer{ValueInteger: &age})

	cases := []struct {
		expression string
		want       bool
	}{
		{"age > 18 && age < 65", true},
		{"age > 40 || age = 30", true},
		{"!(age > 18)", false},
		{"age > 40 && age = 30", false},
	}
	for _, tc := range cases {
		if b, _ := evalOne(t, tc.expression, doc).Bool(); b != tc.want {
			t.Fatalf("%q = %v, want %v", tc.expression, b, tc.want)
		}
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	t.Parallel()

	weight := 72.5
	doc := answerDoc("weight", fhir.Answer{ValueDecimal: &weight})

	value := evalOne(t, "weight + 2.5", doc)
	if n, _ := value.Number(); n != 75 {
		t.Fatalf("weight + 2.5 = %v, want 75", n)
	}

	value = evalOne(t, "2 + 3 * 4", nil)
	if i, ok := value.Value.(int); !ok || i != 14 {
		t.Fatalf("2 + 3 * 4 = %v, want int 14", value.Value)
	}

	value = evalOne(t, "10 / 4", nil)
	if n, _ := value.Number(); n != 2.5 {
		t.Fatalf("10 / 4 = %v, want 2.5", n)
	}

	value = evalOne(t, "'Hello ' + 'World'", nil)
	if s, _ := value.Str(); s != "Hello World" {
		t.Fatalf("concatenation = %q, want %q", s, "Hello World")
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	t.Parallel()

	results, err := New().Evaluate("   ", nil)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expression string
		fragment   string
	}{
		{"(1 > 2", "missing closing"},
		{"1 &", "use '&&'"},
		{"'open", "unterminated"},
		{"1 / 0", "division by zero"},
		{"true > 1", "cannot compare"},
	}
	for _, tc := range cases {
		_, err := New().Evaluate(tc.expression, nil)
		if err == nil {
			t.Fatalf("Evaluate(%q) expected error", tc.expression)
		}
		if !strings.Contains(err.Error(), tc.fragment) {
			t.Fatalf("Evaluate(%q) error = %v, want fragment %q", tc.expression, err, tc.fragment)
		}
	}
}

func TestEvaluateUnaryMinus(t *testing.T) {
	t.Parallel()

	value := evalOne(t, "-5 + 3", nil)
	if i, ok := value.Value.(int); !ok || i != -2 {
		t.Fatalf("-5 + 3 = %v, want -2", value.Value)
	}
}
