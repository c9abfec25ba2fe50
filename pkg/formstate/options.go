package formstate

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Option customises the engine configuration.
type Option func(*Engine)

// WithQuestionnaire supplies an already-resolved definition, bypassing
// the DefinitionProvider.
func WithQuestionnaire(q *fhir.Questionnaire) Option {
	return func(e *Engine) {
		e.questionnaire = q
	}
}

// WithQuestionnaireRef supplies a definition reference resolved through
// the provider during Load.
func WithQuestionnaireRef(provider DefinitionProvider, ref string) Option {
	return func(e *Engine) {
		e.provider = provider
		e.questionnaireRef = ref
	}
}

// WithResponse supplies an already-resolved prior response to resume from.
func WithResponse(r *fhir.QuestionnaireResponse) Option {
	return func(e *Engine) {
		e.prior = r
	}
}

// WithResponseRef supplies a prior-response reference resolved through
// the loader during Load.
func WithResponseRef(loader ResponseLoader, ref string) Option {
	return func(e *Engine) {
		e.responseLoader = loader
		e.responseRef = ref
	}
}

// WithEvaluator injects a custom expression evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) {
		e.eval = ev
	}
}

// WithIDSource injects the id generator used for response items. Tests
// inject a fixed Sequence for deterministic ids.
func WithIDSource(ids IDSource) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithChangeHandler registers the callback invoked with the full response
// document after every mutation.
func WithChangeHandler(fn ChangeHandler) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithLogger injects a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithoutPagination forces single-page mode even when the definition tags
// its first top-level item as a page group.
func WithoutPagination() Option {
	return func(e *Engine) {
		e.disablePagination = true
	}
}
