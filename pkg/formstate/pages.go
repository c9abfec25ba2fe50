package formstate

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// pageControlCode is the itemControl coding that switches a questionnaire
// into paginated mode when it tags the first top-level item.
const pageControlCode = "page"

// pagesFor derives the page sequence from the definition's top-level
// items. Returns nil (single-page mode) unless the first top-level item
// carries an itemControl extension whose first coding is "page".
//
// Paged definitions are expected to hold only page groups at the top
// level: page selection indexes the definition and response item lists
// positionally, so a top-level display item (which produces no response
// item) would shift the response side relative to its page.
func pagesFor(q *fhir.Questionnaire) []Page {
	if q == nil || len(q.Item) == 0 {
		return nil
	}
	ext := fhir.GetExtension(q.Item[0].Extension, fhir.ExtItemControl)
	if ext == nil || ext.ValueCodeableConcept == nil {
		return nil
	}
	codings := ext.ValueCodeableConcept.Coding
	if len(codings) == 0 || codings[0].Code != pageControlCode {
		return nil
	}

	pages := make([]Page, 0, len(q.Item))
	for i, item := range q.Item {
		title := item.Text
		if title == "" {
			title = fmt.Sprintf("Page %d", i+1)
		}
		pages = append(pages, Page{LinkID: item.LinkID, Title: title, Group: item})
	}
	return pages
}

// pageItems returns the top-level definition items for the current page:
// one item when paginated, all items otherwise. An out-of-range page
// index yields an empty result.
func (e *Engine) pageItems() []*fhir.QuestionnaireItem {
	if e.pages == nil {
		return e.questionnaire.Item
	}
	if e.activePage < 0 || e.activePage >= len(e.questionnaire.Item) {
		return nil
	}
	return []*fhir.QuestionnaireItem{e.questionnaire.Item[e.activePage]}
}

// pageResponseItems mirrors pageItems on the response side.
func (e *Engine) pageResponseItems() []*fhir.QuestionnaireResponseItem {
	if e.pages == nil {
		return e.response.Item
	}
	if e.activePage < 0 || e.activePage >= len(e.response.Item) {
		return nil
	}
	return []*fhir.QuestionnaireResponseItem{e.response.Item[e.activePage]}
}
