package formstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formstate/pkg/expr"
	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Engine owns one response document and keeps it structurally consistent
// with its questionnaire definition. Zero or more mutations follow a
// single Load; every mutation ends with a synchronous change notification.
type Engine struct {
	eval              Evaluator
	ids               IDSource
	onChange          ChangeHandler
	logger            zerolog.Logger
	disablePagination bool

	provider         DefinitionProvider
	questionnaireRef string
	responseLoader   ResponseLoader
	responseRef      string

	questionnaire *fhir.Questionnaire
	prior         *fhir.QuestionnaireResponse
	response      *fhir.QuestionnaireResponse
	pages         []Page
	activePage    int
	loaded        bool
}

// New constructs an engine. Missing dependencies fall back to the
// built-in implementations (expression evaluator, sequential id source,
// no-op logger) so callers can start with a single constructor call.
func New(options ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.eval == nil {
		e.eval = expr.New()
	}
	if e.ids == nil {
		e.ids = NewSequence()
	}
	return e
}

// Load resolves the definition (and the prior response, when one was
// requested), builds the reconciled response document, and transitions
// the engine to the loaded state. The pagination decision is made here,
// once, from the definition's first top-level item, and is fixed for the
// engine's life. Load is idempotent after the first success; on error the
// engine stays in the loading state and Load may be retried.
func (e *Engine) Load(ctx context.Context) error {
	if e.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.questionnaire == nil {
		if e.provider == nil {
			return errors.New("formstate: a questionnaire or a definition provider is required")
		}
		q, err := e.provider.ResolveDefinition(ctx, e.questionnaireRef)
		if err != nil {
			return fmt.Errorf("formstate: resolve definition %q: %w", e.questionnaireRef, err)
		}
		if q == nil {
			return fmt.Errorf("formstate: definition %q not found", e.questionnaireRef)
		}
		e.questionnaire = q
	}

	if e.prior == nil && e.responseLoader != nil {
		prior, err := e.responseLoader.ResolveResponse(ctx, e.responseRef)
		if err != nil {
			return fmt.Errorf("formstate: resolve response %q: %w", e.responseRef, err)
		}
		e.prior = prior
	}

	if !e.disablePagination {
		e.pages = pagesFor(e.questionnaire)
	}
	e.response = e.buildInitialResponse(e.questionnaire, e.prior)
	e.loaded = true

	e.logger.Debug().
		Str("questionnaire", e.response.Questionnaire).
		Bool("pagination", e.pages != nil).
		Int("pages", len(e.pages)).
		Msg("form state loaded")

	e.emitChange(true)
	return nil
}

// Loaded reports whether Load has completed.
func (e *Engine) Loaded() bool { return e.loaded }

// State returns the current read-only snapshot. Before Load completes it
// carries only the loading flag.
func (e *Engine) State() State {
	if !e.loaded {
		return State{Loading: true}
	}
	return State{
		Questionnaire: e.questionnaire,
		Response:      e.response,
		Items:         e.pageItems(),
		ResponseItems: e.pageResponseItems(),
		Pagination:    e.pages != nil,
		Pages:         e.pages,
		ActivePage:    e.activePage,
	}
}

// Response returns the live response document.
func (e *Engine) Response() *fhir.QuestionnaireResponse { return e.response }

// NextPage advances the page index. The index is not clamped: walking
// past the last page yields empty page contents rather than an error,
// since the page count is visible to the caller.
func (e *Engine) NextPage() {
	if !e.loaded {
		return
	}
	e.activePage++
}

// PrevPage moves the page index back. Not clamped, see NextPage.
func (e *Engine) PrevPage() {
	if !e.loaded {
		return
	}
	e.activePage--
}

// AddGroup appends a fresh, unanswered instance of the given group item
// under the response item addressed by path. A path that does not resolve
// is silently a no-op: such calls typically originate from stale host
// closures after the tree changed underneath them.
func (e *Engine) AddGroup(path []*fhir.QuestionnaireResponseItem, item *fhir.QuestionnaireItem) {
	if !e.loaded || item == nil {
		return
	}
	children := e.resolveChildren(path)
	if children == nil {
		return
	}
	*children = append(*children, e.newResponseItem(item))
	e.emitChange(true)
}

// AddAnswer appends one empty answer slot to the repeating question
// addressed by path and item. No-op when the path does not resolve.
func (e *Engine) AddAnswer(path []*fhir.QuestionnaireResponseItem, item *fhir.QuestionnaireItem) {
	node := e.resolveItem(path, item)
	if node == nil {
		return
	}
	node.Answer = append(node.Answer, fhir.Answer{})
	e.emitChange(true)
}

// ChangeAnswer replaces the answers of the question addressed by path and
// item wholesale. No-op when the path does not resolve.
func (e *Engine) ChangeAnswer(path []*fhir.QuestionnaireResponseItem, item *fhir.QuestionnaireItem, answer []fhir.Answer) {
	node := e.resolveItem(path, item)
	if node == nil {
		return
	}
	node.Answer = answer
	e.emitChange(true)
}

// ChangeSignature sets or clears the response's signature. The response
// carries at most one signature extension: setting replaces any prior
// entry, nil removes it. Signature changes do not trigger calculated
// expression recomputation; a signature is not expression-sensitive.
func (e *Engine) ChangeSignature(signature *fhir.Signature) {
	if !e.loaded {
		return
	}
	kept := e.response.Extension[:0]
	for _, ext := range e.response.Extension {
		if ext.URL != fhir.ExtResponseSignature {
			kept = append(kept, ext)
		}
	}
	if signature != nil {
		kept = append(kept, fhir.Extension{URL: fhir.ExtResponseSignature, ValueSignature: signature})
	}
	if len(kept) == 0 {
		kept = nil
	}
	e.response.Extension = kept
	e.emitChange(false)
}

// resolveChildren walks path from the response root by linkId and returns
// the child list of the addressed node (the root's own list for an empty
// path). Returns nil when any step misses.
func (e *Engine) resolveChildren(path []*fhir.QuestionnaireResponseItem) *[]*fhir.QuestionnaireResponseItem {
	children := &e.response.Item
	for _, step := range path {
		if step == nil {
			return nil
		}
		node := findByLinkID(*children, step.LinkID)
		if node == nil {
			return nil
		}
		children = &node.Item
	}
	return children
}

// resolveItem resolves path, then the target item's response item within
// the addressed node. Resolution matches by linkId, not position, so it
// tolerates reordering; with repeated sibling instances sharing a linkId
// it addresses the first instance.
func (e *Engine) resolveItem(path []*fhir.QuestionnaireResponseItem, item *fhir.QuestionnaireItem) *fhir.QuestionnaireResponseItem {
	if !e.loaded || item == nil {
		return nil
	}
	children := e.resolveChildren(path)
	if children == nil {
		return nil
	}
	return findByLinkID(*children, item.LinkID)
}

func findByLinkID(items []*fhir.QuestionnaireResponseItem, linkID string) *fhir.QuestionnaireResponseItem {
	for _, item := range items {
		if item.LinkID == linkID {
			return item
		}
	}
	return nil
}

func (e *Engine) emitChange(recalculate bool) {
	if recalculate {
		e.recalculate()
	}
	if e.onChange != nil {
		e.onChange(e.response)
	}
}
