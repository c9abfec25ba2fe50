package formstate

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Enabled reports whether the item is currently enabled.
//
// An enableWhen-expression extension, when present, is authoritative and
// short-circuits the enableWhen conditions entirely. Expression failures
// propagate to the caller: a malformed enablement expression is a
// definition authoring error, not a runtime condition to tolerate.
func (e *Engine) Enabled(item *fhir.QuestionnaireItem) (bool, error) {
	if item == nil {
		return true, nil
	}
	if expression, ok := item.ExpressionExtension(fhir.ExtEnableWhenExpression); ok && e.response != nil {
		results, err := e.eval.Evaluate(expression, e.response)
		if err != nil {
			return false, fmt.Errorf("formstate: enablement expression for %q: %w", item.LinkID, err)
		}
		return len(results) > 0 && results[0].Truthy(), nil
	}
	return enabledWhen(item, e.response), nil
}

// enabledWhen applies the item's enableWhen conditions against the live
// response, combined per enableBehavior (default any).
func enabledWhen(item *fhir.QuestionnaireItem, response *fhir.QuestionnaireResponse) bool {
	if len(item.EnableWhen) == 0 {
		return true
	}
	behavior := item.EnableBehavior
	if behavior == "" {
		behavior = fhir.EnableBehaviorAny
	}

	var responseItems []*fhir.QuestionnaireResponseItem
	if response != nil {
		responseItems = response.Item
	}

	for _, condition := range item.EnableWhen {
		answers := fhir.AnswersByLinkID(responseItems, condition.Question)

		// exists=false passes vacuously when the question was never
		// answered at all.
		if condition.Operator == fhir.OperatorExists && !expectsTrue(condition.AnswerBoolean) && len(answers) == 0 {
			if behavior == fhir.EnableBehaviorAny {
				return true
			}
			continue
		}

		anyMatch, allMatch := checkAnswers(condition, answers, behavior)
		if behavior == fhir.EnableBehaviorAny && anyMatch {
			return true
		}
		if behavior == fhir.EnableBehaviorAll && !allMatch {
			return false
		}
	}

	return behavior != fhir.EnableBehaviorAny
}

func expectsTrue(b *bool) bool { return b != nil && *b }

// checkAnswers evaluates one condition against every actual answer,
// short-circuiting on the first match under "any".
func checkAnswers(condition fhir.EnableWhen, answers []fhir.Answer, behavior fhir.EnableBehavior) (anyMatch, allMatch bool) {
	expected, _ := condition.AnswerValue()
	allMatch = true

	for _, answer := range answers {
		actual, ok := answer.Value()
		var actualValue *fhir.TypedValue
		if ok {
			actualValue = &actual
		}
		if evaluateMatch(actualValue, expected, condition.Operator) {
			anyMatch = true
		} else {
			allMatch = false
		}
		if behavior == fhir.EnableBehaviorAny && anyMatch {
			break
		}
	}
	return anyMatch, allMatch
}

// evaluateMatch compares one actual answer against the expected value.
// exists checks presence only; every other operator fails when there is
// no actual value to compare.
func evaluateMatch(actual *fhir.TypedValue, expected fhir.TypedValue, op fhir.EnableOperator) bool {
	if op == fhir.OperatorExists {
		want, _ := expected.Bool()
		return (actual != nil) == want
	}
	if actual == nil {
		return false
	}
	switch op {
	case fhir.OperatorEquals:
		return fhir.Equal(*actual, expected)
	case fhir.OperatorNotEquals:
		return !fhir.Equal(*actual, expected)
	case fhir.OperatorGreater, fhir.OperatorGreaterOrEqual, fhir.OperatorLess, fhir.OperatorLessOrEqual:
		cmp, ok := fhir.Compare(*actual, expected)
		if !ok {
			return false
		}
		switch op {
		case fhir.OperatorGreater:
			return cmp > 0
		case fhir.OperatorGreaterOrEqual:
			return cmp >= 0
		case fhir.OperatorLess:
			return cmp < 0
		default:
			return cmp <= 0
		}
	default:
		return false
	}
}
