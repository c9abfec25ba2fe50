package formstate

import "github.com/goliatone/go-formstate/pkg/fhir"

// buildInitialResponse reconciles the definition tree against an optional
// prior response into a fresh response document. Prior items are matched
// by linkId; their ids and answers survive, everything else is rebuilt
// from the definition.
func (e *Engine) buildInitialResponse(q *fhir.Questionnaire, prior *fhir.QuestionnaireResponse) *fhir.QuestionnaireResponse {
	ref := q.URL
	if ref == "" && q.ID != "" {
		ref = "Questionnaire/" + q.ID
	}
	var priorItems []*fhir.QuestionnaireResponseItem
	if prior != nil {
		priorItems = prior.Item
	}
	return &fhir.QuestionnaireResponse{
		ResourceType:  "QuestionnaireResponse",
		Questionnaire: ref,
		Status:        "in-progress",
		Item:          e.buildItems(q.Item, priorItems),
	}
}

// buildItems reconciles one sibling level. Display items never produce a
// response item. Matching is by linkId, not position, so a reordered
// prior response still pairs up; one definition item may match several
// prior items when the group repeats.
func (e *Engine) buildItems(items []*fhir.QuestionnaireItem, existing []*fhir.QuestionnaireResponseItem) []*fhir.QuestionnaireResponseItem {
	if len(items) == 0 {
		return nil
	}
	var out []*fhir.QuestionnaireResponseItem
	for _, item := range items {
		if item.Type == fhir.ItemTypeDisplay {
			continue
		}
		matched := false
		for _, prior := range existing {
			if prior.LinkID != item.LinkID {
				continue
			}
			matched = true
			out = append(out, e.reconcileItem(item, prior))
		}
		if !matched {
			out = append(out, e.newResponseItem(item))
		}
	}
	return out
}

// reconcileItem carries a prior response item forward: id and answers are
// preserved, the label snapshot is filled in when missing, and nested
// items are reconciled recursively. Hand-written prior documents may lack
// ids; those are assigned here.
func (e *Engine) reconcileItem(item *fhir.QuestionnaireItem, prior *fhir.QuestionnaireResponseItem) *fhir.QuestionnaireResponseItem {
	next := &fhir.QuestionnaireResponseItem{
		ID:        prior.ID,
		LinkID:    prior.LinkID,
		Text:      prior.Text,
		Extension: prior.Extension,
	}
	if next.ID == "" {
		next.ID = e.ids.NextID()
	}
	if next.Text == "" {
		next.Text = item.Text
	}
	next.Item = e.buildItems(item.Item, prior.Item)
	next.Answer = initialAnswers(item, prior.Answer)
	return next
}

// newResponseItem synthesizes a fresh response item for a definition item
// that has no prior counterpart.
func (e *Engine) newResponseItem(item *fhir.QuestionnaireItem) *fhir.QuestionnaireResponseItem {
	return &fhir.QuestionnaireResponseItem{
		ID:     e.ids.NextID(),
		LinkID: item.LinkID,
		Text:   item.Text,
		Item:   e.buildItems(item.Item, nil),
		Answer: initialAnswers(item, nil),
	}
}

// initialAnswers applies the initial-answer precedence rule: existing
// answers always win; then declared initial values; then answer options
// flagged initialSelected; else the field starts empty. Groups and
// display items never receive answers.
func initialAnswers(item *fhir.QuestionnaireItem, existing []fhir.Answer) []fhir.Answer {
	if item.Type == fhir.ItemTypeGroup || item.Type == fhir.ItemTypeDisplay {
		return nil
	}
	if len(existing) > 0 {
		return existing
	}
	if len(item.Initial) > 0 {
		answers := make([]fhir.Answer, 0, len(item.Initial))
		for _, initial := range item.Initial {
			answers = append(answers, initial.Answer())
		}
		return answers
	}
	var selected []fhir.Answer
	for _, option := range item.AnswerOption {
		if option.InitialSelected {
			selected = append(selected, option.Answer())
		}
	}
	return selected
}
