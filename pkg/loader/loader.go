// Package loader resolves Questionnaire and QuestionnaireResponse documents
// from files, fs.FS trees, or HTTP endpoints, decoding JSON or YAML. It
// satisfies the formstate provider interfaces so an engine can be pointed at
// a reference string instead of an in-memory resource.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formstate/pkg/fhir"
	"github.com/goliatone/go-formstate/pkg/formstate"
)

// Loader fetches FHIR documents by delegating to file, fs.FS, or HTTP
// strategies.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

var (
	_ formstate.DefinitionProvider = (*Loader)(nil)
	_ formstate.ResponseLoader     = (*Loader)(nil)
)

// Option mutates a Loader prior to first use.
type Option func(*Loader)

// WithFS makes relative references resolve inside the given filesystem
// instead of the operating system.
func WithFS(files fs.FS) Option {
	return func(l *Loader) { l.fs = files }
}

// WithHTTPClient injects a custom HTTP client for remote documents.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) { l.http = client }
}

// WithTimeout caps remote fetch durations.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) { l.timeout = timeout }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New constructs a Loader with the supplied options applied.
func New(options ...Option) *Loader {
	l := &Loader{
		http:   http.DefaultClient,
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		if option != nil {
			option(l)
		}
	}
	return l
}

// Fetch retrieves the raw bytes behind a source.
func (l *Loader) Fetch(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind() {
	case SourceKindFile:
		return loadFile(ctx, src.Location())
	case SourceKindFS:
		return loadFromFS(ctx, l.fs, src.Location())
	case SourceKindURL:
		return loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		return nil, errors.New("loader: unsupported source kind")
	}
}

// Questionnaire fetches and decodes a Questionnaire from the source.
func (l *Loader) Questionnaire(ctx context.Context, src Source) (*fhir.Questionnaire, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	var q fhir.Questionnaire
	if err := decodeResource(data, "Questionnaire", &q); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", src.Location(), err)
	}
	l.logger.Debug().Str("source", src.Location()).Str("questionnaire", q.ID).Msg("loaded questionnaire")
	return &q, nil
}

// Response fetches and decodes a QuestionnaireResponse from the source.
func (l *Loader) Response(ctx context.Context, src Source) (*fhir.QuestionnaireResponse, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	var qr fhir.QuestionnaireResponse
	if err := decodeResource(data, "QuestionnaireResponse", &qr); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", src.Location(), err)
	}
	return &qr, nil
}

// ResolveDefinition resolves a questionnaire reference for an engine. URL
// references fetch over HTTP, everything else is treated as a path.
func (l *Loader) ResolveDefinition(ctx context.Context, ref string) (*fhir.Questionnaire, error) {
	if ref == "" {
		return nil, errors.New("loader: questionnaire reference is required")
	}
	return l.Questionnaire(ctx, l.sourceForRef(ref))
}

// ResolveResponse resolves a prior response reference for an engine. An
// empty reference means no prior response exists.
func (l *Loader) ResolveResponse(ctx context.Context, ref string) (*fhir.QuestionnaireResponse, error) {
	if ref == "" {
		return nil, nil
	}
	return l.Response(ctx, l.sourceForRef(ref))
}
