// Package formstate implements the questionnaire form state engine: it
// owns a mutable QuestionnaireResponse tree kept structurally consistent
// with its Questionnaire definition, derives the currently visible items
// (pagination, conditional enablement), and exposes the mutation
// operations a form host needs (add group instance, add repeated answer,
// change answer, set signature).
//
// The engine is single-threaded by contract: all operations run
// synchronously to completion and the response tree is exclusively owned
// by one engine instance. Hosts react to edits through the change handler,
// which receives the full response document after every mutation.
package formstate

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Evaluator evaluates a side-effect-free expression against the current
// response document and returns zero or more typed results. It is used
// for expression-based enablement and for calculated fields. Results are
// validated against the declared item kind before acceptance.
type Evaluator interface {
	Evaluate(expression string, doc *fhir.QuestionnaireResponse) ([]fhir.TypedValue, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(expression string, doc *fhir.QuestionnaireResponse) ([]fhir.TypedValue, error)

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(expression string, doc *fhir.QuestionnaireResponse) ([]fhir.TypedValue, error) {
	return fn(expression, doc)
}

// DefinitionProvider resolves a questionnaire definition by reference.
type DefinitionProvider interface {
	ResolveDefinition(ctx context.Context, ref string) (*fhir.Questionnaire, error)
}

// ResponseLoader resolves a previously saved response document by
// reference, for resuming a form. A nil response without error means no
// prior response exists.
type ResponseLoader interface {
	ResolveResponse(ctx context.Context, ref string) (*fhir.QuestionnaireResponse, error)
}

// IDSource generates response item ids. Ids must be unique within one
// engine instance; they do not need to survive process restarts.
type IDSource interface {
	NextID() string
}

// ChangeHandler receives the full response document after every mutation.
type ChangeHandler func(response *fhir.QuestionnaireResponse)

// Page describes one page of a paginated questionnaire: a top-level group
// item promoted to its own step.
type Page struct {
	LinkID string
	Title  string
	Group  *fhir.QuestionnaireItem
}

// State is the read-only snapshot exposed to the host. Items and
// ResponseItems hold the top-level definition and response items for the
// current page (all top-level items when pagination is off).
type State struct {
	Loading       bool
	Questionnaire *fhir.Questionnaire
	Response      *fhir.QuestionnaireResponse
	Items         []*fhir.QuestionnaireItem
	ResponseItems []*fhir.QuestionnaireResponseItem
	Pagination    bool
	Pages         []Page
	ActivePage    int
}
