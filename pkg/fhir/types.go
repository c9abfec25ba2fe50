// Package fhir holds the minimal FHIR R4 data model consumed by the form
// state engine: Questionnaire definition trees, QuestionnaireResponse
// answer trees, and the handful of supporting datatypes they reference.
//
// Only the fields the engine reads or writes are modelled; payloads with
// additional FHIR fields still unmarshal, the extras are simply dropped.
package fhir

// ItemType enumerates the closed set of questionnaire item kinds.
//
// See: https://hl7.org/fhir/R4/valueset-item-type.html
type ItemType string

const (
	ItemTypeGroup      ItemType = "group"
	ItemTypeDisplay    ItemType = "display"
	ItemTypeBoolean    ItemType = "boolean"
	ItemTypeDecimal    ItemType = "decimal"
	ItemTypeInteger    ItemType = "integer"
	ItemTypeDate       ItemType = "date"
	ItemTypeDateTime   ItemType = "dateTime"
	ItemTypeTime       ItemType = "time"
	ItemTypeString     ItemType = "string"
	ItemTypeText       ItemType = "text"
	ItemTypeURL        ItemType = "url"
	ItemTypeChoice     ItemType = "choice"
	ItemTypeOpenChoice ItemType = "open-choice"
	ItemTypeAttachment ItemType = "attachment"
	ItemTypeReference  ItemType = "reference"
	ItemTypeQuantity   ItemType = "quantity"
)

// IsChoice reports whether the type carries answer options.
func (t ItemType) IsChoice() bool {
	return t == ItemTypeChoice || t == ItemTypeOpenChoice
}

// EnableBehavior controls how multiple enableWhen conditions combine.
type EnableBehavior string

const (
	EnableBehaviorAny EnableBehavior = "any"
	EnableBehaviorAll EnableBehavior = "all"
)

// EnableOperator is the comparison operator of an enableWhen condition.
type EnableOperator string

const (
	OperatorExists         EnableOperator = "exists"
	OperatorEquals         EnableOperator = "="
	OperatorNotEquals      EnableOperator = "!="
	OperatorGreater        EnableOperator = ">"
	OperatorLess           EnableOperator = "<"
	OperatorGreaterOrEqual EnableOperator = ">="
	OperatorLessOrEqual    EnableOperator = "<="
)

// Questionnaire is the read-only form definition resource.
type Questionnaire struct {
	ResourceType string               `json:"resourceType"`
	ID           string               `json:"id,omitempty"`
	URL          string               `json:"url,omitempty"`
	Title        string               `json:"title,omitempty"`
	Status       string               `json:"status,omitempty"`
	Item         []*QuestionnaireItem `json:"item,omitempty"`
	Extension    []Extension          `json:"extension,omitempty"`
}

// QuestionnaireItem is one node of the definition tree. LinkID is unique
// within its sibling context, not globally.
type QuestionnaireItem struct {
	LinkID         string               `json:"linkId"`
	Text           string               `json:"text,omitempty"`
	Type           ItemType             `json:"type"`
	Required       bool                 `json:"required,omitempty"`
	Repeats        bool                 `json:"repeats,omitempty"`
	ReadOnly       bool                 `json:"readOnly,omitempty"`
	EnableBehavior EnableBehavior       `json:"enableBehavior,omitempty"`
	EnableWhen     []EnableWhen         `json:"enableWhen,omitempty"`
	AnswerOption   []AnswerOption       `json:"answerOption,omitempty"`
	Initial        []Initial            `json:"initial,omitempty"`
	Item           []*QuestionnaireItem `json:"item,omitempty"`
	Extension      []Extension          `json:"extension,omitempty"`
}

// EnableWhen gates an item on the answer of another item, addressed by its
// linkId. Exactly one answer[x] field carries the expected value.
type EnableWhen struct {
	Question        string         `json:"question"`
	Operator        EnableOperator `json:"operator"`
	AnswerBoolean   *bool          `json:"answerBoolean,omitempty"`
	AnswerDecimal   *float64       `json:"answerDecimal,omitempty"`
	AnswerInteger   *int           `json:"answerInteger,omitempty"`
	AnswerDate      *string        `json:"answerDate,omitempty"`
	AnswerDateTime  *string        `json:"answerDateTime,omitempty"`
	AnswerTime      *string        `json:"answerTime,omitempty"`
	AnswerString    *string        `json:"answerString,omitempty"`
	AnswerCoding    *Coding        `json:"answerCoding,omitempty"`
	AnswerQuantity  *Quantity      `json:"answerQuantity,omitempty"`
	AnswerReference *Reference     `json:"answerReference,omitempty"`
}

// AnswerValue returns the expected answer as a typed value.
func (e EnableWhen) AnswerValue() (TypedValue, bool) {
	return firstTypedValue(
		boolValue(e.AnswerBoolean),
		decimalValue(e.AnswerDecimal),
		integerValue(e.AnswerInteger),
		stringKindValue(KindDate, e.AnswerDate),
		stringKindValue(KindDateTime, e.AnswerDateTime),
		stringKindValue(KindTime, e.AnswerTime),
		stringKindValue(KindString, e.AnswerString),
		codingValue(e.AnswerCoding),
		quantityValue(e.AnswerQuantity),
		referenceValue(e.AnswerReference),
	)
}

// Initial declares a default answer on a definition item.
type Initial struct {
	ValueBoolean    *bool       `json:"valueBoolean,omitempty"`
	ValueDecimal    *float64    `json:"valueDecimal,omitempty"`
	ValueInteger    *int        `json:"valueInteger,omitempty"`
	ValueDate       *string     `json:"valueDate,omitempty"`
	ValueDateTime   *string     `json:"valueDateTime,omitempty"`
	ValueTime       *string     `json:"valueTime,omitempty"`
	ValueString     *string     `json:"valueString,omitempty"`
	ValueURI        *string     `json:"valueUri,omitempty"`
	ValueAttachment *Attachment `json:"valueAttachment,omitempty"`
	ValueCoding     *Coding     `json:"valueCoding,omitempty"`
	ValueQuantity   *Quantity   `json:"valueQuantity,omitempty"`
	ValueReference  *Reference  `json:"valueReference,omitempty"`
}

// Value returns the initial value as a typed value.
func (i Initial) Value() (TypedValue, bool) {
	return firstTypedValue(
		boolValue(i.ValueBoolean),
		decimalValue(i.ValueDecimal),
		integerValue(i.ValueInteger),
		stringKindValue(KindDate, i.ValueDate),
		stringKindValue(KindDateTime, i.ValueDateTime),
		stringKindValue(KindTime, i.ValueTime),
		stringKindValue(KindString, i.ValueString),
		stringKindValue(KindURI, i.ValueURI),
		attachmentValue(i.ValueAttachment),
		codingValue(i.ValueCoding),
		quantityValue(i.ValueQuantity),
		referenceValue(i.ValueReference),
	)
}

// Answer maps the initial value onto a response answer entry. Initial and
// Answer share the same value[x] fields, so this is a field-wise copy.
func (i Initial) Answer() Answer {
	return Answer{
		ValueBoolean:    i.ValueBoolean,
		ValueDecimal:    i.ValueDecimal,
		ValueInteger:    i.ValueInteger,
		ValueDate:       i.ValueDate,
		ValueDateTime:   i.ValueDateTime,
		ValueTime:       i.ValueTime,
		ValueString:     i.ValueString,
		ValueURI:        i.ValueURI,
		ValueAttachment: i.ValueAttachment,
		ValueCoding:     i.ValueCoding,
		ValueQuantity:   i.ValueQuantity,
		ValueReference:  i.ValueReference,
	}
}

// AnswerOption is one permitted answer of a choice question.
type AnswerOption struct {
	ValueInteger    *int       `json:"valueInteger,omitempty"`
	ValueDate       *string    `json:"valueDate,omitempty"`
	ValueTime       *string    `json:"valueTime,omitempty"`
	ValueString     *string    `json:"valueString,omitempty"`
	ValueCoding     *Coding    `json:"valueCoding,omitempty"`
	ValueReference  *Reference `json:"valueReference,omitempty"`
	InitialSelected bool       `json:"initialSelected,omitempty"`
}

// Value returns the option value as a typed value.
func (o AnswerOption) Value() (TypedValue, bool) {
	return firstTypedValue(
		integerValue(o.ValueInteger),
		stringKindValue(KindDate, o.ValueDate),
		stringKindValue(KindTime, o.ValueTime),
		stringKindValue(KindString, o.ValueString),
		codingValue(o.ValueCoding),
		referenceValue(o.ValueReference),
	)
}

// Answer maps the option onto a response answer entry.
func (o AnswerOption) Answer() Answer {
	return Answer{
		ValueInteger:   o.ValueInteger,
		ValueDate:      o.ValueDate,
		ValueTime:      o.ValueTime,
		ValueString:    o.ValueString,
		ValueCoding:    o.ValueCoding,
		ValueReference: o.ValueReference,
	}
}

// Coding is a reference to a code defined by a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept wraps one or more codings plus free text.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Quantity is a measured amount.
type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// Attachment refers to content defined elsewhere.
type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Data        string `json:"data,omitempty"`
}

// Reference points at another resource.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Signature is a digital or graphical signature.
type Signature struct {
	Type      []Coding   `json:"type,omitempty"`
	When      string     `json:"when,omitempty"`
	Who       *Reference `json:"who,omitempty"`
	SigFormat string     `json:"sigFormat,omitempty"`
	Data      string     `json:"data,omitempty"`
}

// Expression holds a declarative formula carried by an extension.
type Expression struct {
	Language   string `json:"language,omitempty"`
	Expression string `json:"expression"`
}
