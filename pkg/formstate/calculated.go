package formstate

import "github.com/goliatone/go-formstate/pkg/fhir"

// recalculate walks the definition and response trees in parallel and
// re-evaluates every calculated expression against the whole response
// document. Runs after every mutation except signature changes.
func (e *Engine) recalculate() {
	if e.questionnaire == nil || e.response == nil {
		return
	}
	e.recalculateItems(e.questionnaire.Item, e.response.Item)
}

func (e *Engine) recalculateItems(items []*fhir.QuestionnaireItem, responseItems []*fhir.QuestionnaireResponseItem) {
	for _, item := range items {
		responseItem := findByLinkID(responseItems, item.LinkID)
		if responseItem == nil {
			continue
		}
		e.recalculateItem(item, responseItem)
		if len(item.Item) > 0 && len(responseItem.Item) > 0 {
			e.recalculateItems(item.Item, responseItem.Item)
		}
	}
}

// recalculateItem evaluates the item's calculated expression, if any, and
// overwrites the response item's answers with the typed result. A result
// incompatible with the declared item type is discarded. Evaluation
// failures are recorded as a validation-error extension on the item so
// one broken expression never blocks the rest of the form.
func (e *Engine) recalculateItem(item *fhir.QuestionnaireItem, responseItem *fhir.QuestionnaireResponseItem) {
	expression, ok := item.ExpressionExtension(fhir.ExtCalculatedExpression)
	if !ok {
		return
	}

	results, err := e.eval.Evaluate(expression, e.response)
	if err != nil {
		message := "Expression evaluation failed: " + err.Error()
		responseItem.Extension = []fhir.Extension{{
			URL:         fhir.ExtValidationError,
			ValueString: &message,
		}}
		e.logger.Warn().
			Str("linkId", item.LinkID).
			Str("expression", expression).
			Err(err).
			Msg("calculated expression failed")
		return
	}
	if len(results) == 0 {
		return
	}

	answer, ok := answerForItem(item.Type, results[0])
	if !ok {
		return
	}
	responseItem.Answer = []fhir.Answer{answer}
}

// answerForItem validates an evaluator result against the declared item
// type and builds the answer holding it. The switch is exhaustive over
// the item type enum: group and display items never hold answers, string
// and text coerce any string-shaped result, the choice types accept any
// result kind as-is, and every remaining type requires a compatible
// result kind.
func answerForItem(t fhir.ItemType, value fhir.TypedValue) (fhir.Answer, bool) {
	switch t {
	case fhir.ItemTypeGroup, fhir.ItemTypeDisplay:
		return fhir.Answer{}, false
	case fhir.ItemTypeString, fhir.ItemTypeText:
		if s, ok := value.Value.(string); ok {
			return fhir.Answer{ValueString: &s}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeChoice, fhir.ItemTypeOpenChoice:
		return answerForKind(value)
	case fhir.ItemTypeBoolean:
		if b, ok := value.Bool(); ok && value.Kind == fhir.KindBoolean {
			return fhir.Answer{ValueBoolean: &b}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeDate:
		return stringAnswer(value, fhir.KindDate, func(s *string) fhir.Answer { return fhir.Answer{ValueDate: s} })
	case fhir.ItemTypeDateTime:
		return stringAnswer(value, fhir.KindDateTime, func(s *string) fhir.Answer { return fhir.Answer{ValueDateTime: s} })
	case fhir.ItemTypeTime:
		return stringAnswer(value, fhir.KindTime, func(s *string) fhir.Answer { return fhir.Answer{ValueTime: s} })
	case fhir.ItemTypeURL:
		// uri-typed and plain string results both satisfy a url item.
		if value.Kind == fhir.KindURI || value.Kind == fhir.KindString {
			if s, ok := value.Str(); ok {
				return fhir.Answer{ValueURI: &s}, true
			}
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeDecimal:
		if n, ok := value.Number(); ok {
			return fhir.Answer{ValueDecimal: &n}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeInteger:
		if n, ok := value.Number(); ok {
			i := int(n)
			return fhir.Answer{ValueInteger: &i}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeAttachment:
		if a, ok := value.Value.(fhir.Attachment); ok {
			return fhir.Answer{ValueAttachment: &a}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeReference:
		if r, ok := value.Value.(fhir.Reference); ok {
			return fhir.Answer{ValueReference: &r}, true
		}
		return fhir.Answer{}, false
	case fhir.ItemTypeQuantity:
		if q, ok := value.Value.(fhir.Quantity); ok {
			return fhir.Answer{ValueQuantity: &q}, true
		}
		return fhir.Answer{}, false
	default:
		return fhir.Answer{}, false
	}
}

func stringAnswer(value fhir.TypedValue, kind fhir.Kind, build func(*string) fhir.Answer) (fhir.Answer, bool) {
	if value.Kind != kind {
		return fhir.Answer{}, false
	}
	if s, ok := value.Str(); ok {
		return build(&s), true
	}
	return fhir.Answer{}, false
}

// answerForKind builds an answer keyed by the result's own kind, used for
// the choice types which accept any evaluator result.
func answerForKind(value fhir.TypedValue) (fhir.Answer, bool) {
	switch value.Kind {
	case fhir.KindBoolean:
		if b, ok := value.Bool(); ok {
			return fhir.Answer{ValueBoolean: &b}, true
		}
	case fhir.KindInteger:
		if i, ok := value.Value.(int); ok {
			return fhir.Answer{ValueInteger: &i}, true
		}
	case fhir.KindDecimal:
		if f, ok := value.Value.(float64); ok {
			return fhir.Answer{ValueDecimal: &f}, true
		}
	case fhir.KindDate:
		if s, ok := value.Str(); ok {
			return fhir.Answer{ValueDate: &s}, true
		}
	case fhir.KindDateTime:
		if s, ok := value.Str(); ok {
			return fhir.Answer{ValueDateTime: &s}, true
		}
	case fhir.KindTime:
		if s, ok := value.Str(); ok {
			return fhir.Answer{ValueTime: &s}, true
		}
	case fhir.KindString:
		if s, ok := value.Str(); ok {
			return fhir.Answer{ValueString: &s}, true
		}
	case fhir.KindURI:
		if s, ok := value.Str(); ok {
			return fhir.Answer{ValueURI: &s}, true
		}
	case fhir.KindCoding:
		if c, ok := value.Value.(fhir.Coding); ok {
			return fhir.Answer{ValueCoding: &c}, true
		}
	case fhir.KindQuantity:
		if q, ok := value.Value.(fhir.Quantity); ok {
			return fhir.Answer{ValueQuantity: &q}, true
		}
	case fhir.KindAttachment:
		if a, ok := value.Value.(fhir.Attachment); ok {
			return fhir.Answer{ValueAttachment: &a}, true
		}
	case fhir.KindReference:
		if r, ok := value.Value.(fhir.Reference); ok {
			return fhir.Answer{ValueReference: &r}, true
		}
	}
	return fhir.Answer{}, false
}
