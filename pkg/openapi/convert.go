// Package openapi derives Questionnaire definitions from OpenAPI documents.
// An operation's JSON request body becomes the item tree: object schemas
// map to groups, scalar properties to questions, enums to choice items.
// This lets a service that already publishes an OpenAPI contract get a
// fillable form definition without authoring FHIR by hand.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Options selects the operation to convert and overrides document-level
// metadata.
type Options struct {
	// OperationID names the operation whose request body becomes the form.
	OperationID string

	// Title overrides the questionnaire title. Defaults to the operation
	// summary, then the operation id.
	Title string
}

// Convert parses the OpenAPI document and builds a Questionnaire from the
// selected operation's application/json request body schema.
func Convert(ctx context.Context, data []byte, opts Options) (*fhir.Questionnaire, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	if opts.OperationID == "" {
		return nil, errors.New("openapi: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation := findOperation(doc, opts.OperationID)
	if operation == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", opts.OperationID)
	}

	schema := requestBodySchema(operation)
	if schema == nil {
		return nil, fmt.Errorf("openapi: operation %q has no JSON request body schema", opts.OperationID)
	}

	items, err := itemsFromObject("", schema)
	if err != nil {
		return nil, err
	}

	title := opts.Title
	if title == "" {
		title = operation.Summary
	}
	if title == "" {
		title = opts.OperationID
	}

	return &fhir.Questionnaire{
		ResourceType: "Questionnaire",
		ID:           opts.OperationID,
		Title:        title,
		Status:       "draft",
		Item:         items,
	}, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range []*openapi3.Operation{
			item.Get, item.Put, item.Post, item.Delete,
			item.Patch, item.Head, item.Options, item.Trace,
		} {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestBodySchema(operation *openapi3.Operation) *openapi3.Schema {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	media, ok := operation.RequestBody.Value.Content["application/json"]
	if !ok || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

// itemsFromObject maps an object schema's properties to sibling items.
// Properties convert in name order so regeneration is deterministic.
func itemsFromObject(prefix string, schema *openapi3.Schema) ([]*fhir.QuestionnaireItem, error) {
	if schema == nil || !hasType(schema, "object") {
		return nil, errors.New("openapi: request body schema must be an object")
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []*fhir.QuestionnaireItem
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		linkID := name
		if prefix != "" {
			linkID = prefix + "." + name
		}
		item, err := itemForSchema(linkID, name, ref.Value, required[name])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func itemForSchema(linkID, name string, schema *openapi3.Schema, required bool) (*fhir.QuestionnaireItem, error) {
	item := &fhir.QuestionnaireItem{
		LinkID:   linkID,
		Text:     schemaLabel(name, schema),
		Required: required,
		ReadOnly: schema.ReadOnly,
	}

	// Arrays collapse onto their element schema with repeats set.
	if hasType(schema, "array") {
		if schema.Items == nil || schema.Items.Value == nil {
			return nil, fmt.Errorf("openapi: array property %q has no items schema", linkID)
		}
		element, err := itemForSchema(linkID, name, schema.Items.Value, required)
		if err != nil {
			return nil, err
		}
		element.Repeats = true
		return element, nil
	}

	if hasType(schema, "object") {
		item.Type = fhir.ItemTypeGroup
		children, err := itemsFromObject(linkID, schema)
		if err != nil {
			return nil, err
		}
		item.Item = children
		return item, nil
	}

	if len(schema.Enum) > 0 {
		item.Type = fhir.ItemTypeChoice
		item.AnswerOption = optionsFromEnum(schema.Enum)
		if schema.Default != nil {
			applyDefault(item, schema)
		}
		return item, nil
	}

	itemType, err := scalarItemType(linkID, schema)
	if err != nil {
		return nil, err
	}
	item.Type = itemType
	if schema.Default != nil {
		applyDefault(item, schema)
	}
	return item, nil
}

func scalarItemType(linkID string, schema *openapi3.Schema) (fhir.ItemType, error) {
	switch {
	case hasType(schema, "boolean"):
		return fhir.ItemTypeBoolean, nil
	case hasType(schema, "integer"):
		return fhir.ItemTypeInteger, nil
	case hasType(schema, "number"):
		return fhir.ItemTypeDecimal, nil
	case hasType(schema, "string"):
		switch schema.Format {
		case "date":
			return fhir.ItemTypeDate, nil
		case "date-time":
			return fhir.ItemTypeDateTime, nil
		case "time":
			return fhir.ItemTypeTime, nil
		case "uri", "url":
			return fhir.ItemTypeURL, nil
		default:
			return fhir.ItemTypeString, nil
		}
	default:
		return "", fmt.Errorf("openapi: property %q has unsupported schema type", linkID)
	}
}

func hasType(schema *openapi3.Schema, want string) bool {
	if schema.Type == nil {
		return false
	}
	for _, t := range schema.Type.Slice() {
		if t == want {
			return true
		}
	}
	return false
}

func schemaLabel(name string, schema *openapi3.Schema) string {
	if schema.Title != "" {
		return schema.Title
	}
	return name
}

func optionsFromEnum(values []any) []fhir.AnswerOption {
	options := make([]fhir.AnswerOption, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case string:
			s := v
			options = append(options, fhir.AnswerOption{ValueString: &s})
		case float64:
			i := int(v)
			options = append(options, fhir.AnswerOption{ValueInteger: &i})
		case int:
			i := v
			options = append(options, fhir.AnswerOption{ValueInteger: &i})
		default:
			s := fmt.Sprintf("%v", v)
			options = append(options, fhir.AnswerOption{ValueString: &s})
		}
	}
	return options
}

// applyDefault records the schema default as the item's initial value,
// keyed by the item type already derived from the schema.
func applyDefault(item *fhir.QuestionnaireItem, schema *openapi3.Schema) {
	switch item.Type {
	case fhir.ItemTypeBoolean:
		if b, ok := schema.Default.(bool); ok {
			item.Initial = []fhir.Initial{{ValueBoolean: &b}}
		}
	case fhir.ItemTypeInteger:
		if n, ok := defaultNumber(schema.Default); ok {
			i := int(n)
			item.Initial = []fhir.Initial{{ValueInteger: &i}}
		}
	case fhir.ItemTypeDecimal:
		if n, ok := defaultNumber(schema.Default); ok {
			item.Initial = []fhir.Initial{{ValueDecimal: &n}}
		}
	case fhir.ItemTypeDate:
		if s, ok := schema.Default.(string); ok {
			item.Initial = []fhir.Initial{{ValueDate: &s}}
		}
	case fhir.ItemTypeDateTime:
		if s, ok := schema.Default.(string); ok {
			item.Initial = []fhir.Initial{{ValueDateTime: &s}}
		}
	case fhir.ItemTypeTime:
		if s, ok := schema.Default.(string); ok {
			item.Initial = []fhir.Initial{{ValueTime: &s}}
		}
	case fhir.ItemTypeURL:
		if s, ok := schema.Default.(string); ok {
			item.Initial = []fhir.Initial{{ValueURI: &s}}
		}
	case fhir.ItemTypeString, fhir.ItemTypeText, fhir.ItemTypeChoice:
		if s, ok := schema.Default.(string); ok {
			item.Initial = []fhir.Initial{{ValueString: &s}}
		}
	}
}

func defaultNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// OperationIDs lists the operation ids present in the document, in sorted
// order, for CLI discovery.
func OperationIDs(ctx context.Context, data []byte) ([]string, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Paths == nil {
		return nil, nil
	}

	var ids []string
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range []*openapi3.Operation{
			item.Get, item.Put, item.Post, item.Delete,
			item.Patch, item.Head, item.Options, item.Trace,
		} {
			if operation != nil && operation.OperationID != "" {
				ids = append(ids, operation.OperationID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
