package fhir

// QuestionnaireResponse is the mutable answer document. Its item tree
// mirrors the shape of the originating Questionnaire, except that display
// items produce no response item and repeated groups/answers may fan out.
type QuestionnaireResponse struct {
	ResourceType  string                       `json:"resourceType"`
	ID            string                       `json:"id,omitempty"`
	Questionnaire string                       `json:"questionnaire,omitempty"`
	Status        string                       `json:"status,omitempty"`
	Item          []*QuestionnaireResponseItem `json:"item,omitempty"`
	Extension     []Extension                  `json:"extension,omitempty"`
}

// QuestionnaireResponseItem captures the answers for one definition item.
// ID is generated by the engine and is unique within the whole document;
// LinkID links back to the definition item.
type QuestionnaireResponseItem struct {
	ID        string                       `json:"id,omitempty"`
	LinkID    string                       `json:"linkId"`
	Text      string                       `json:"text,omitempty"`
	Item      []*QuestionnaireResponseItem `json:"item,omitempty"`
	Answer    []Answer                     `json:"answer,omitempty"`
	Extension []Extension                  `json:"extension,omitempty"`
}

// Answer is the value[x] union of a single response answer. At most one
// value field is set; an Answer with no value set is an empty placeholder
// slot (as appended by the add-answer operation).
type Answer struct {
	ValueBoolean    *bool                        `json:"valueBoolean,omitempty"`
	ValueDecimal    *float64                     `json:"valueDecimal,omitempty"`
	ValueInteger    *int                         `json:"valueInteger,omitempty"`
	ValueDate       *string                      `json:"valueDate,omitempty"`
	ValueDateTime   *string                      `json:"valueDateTime,omitempty"`
	ValueTime       *string                      `json:"valueTime,omitempty"`
	ValueString     *string                      `json:"valueString,omitempty"`
	ValueURI        *string                      `json:"valueUri,omitempty"`
	ValueAttachment *Attachment                  `json:"valueAttachment,omitempty"`
	ValueCoding     *Coding                      `json:"valueCoding,omitempty"`
	ValueQuantity   *Quantity                    `json:"valueQuantity,omitempty"`
	ValueReference  *Reference                   `json:"valueReference,omitempty"`
	Item            []*QuestionnaireResponseItem `json:"item,omitempty"`
}

// Value returns the populated value as a typed value. ok is false for an
// empty placeholder answer.
func (a Answer) Value() (TypedValue, bool) {
	return firstTypedValue(
		boolValue(a.ValueBoolean),
		decimalValue(a.ValueDecimal),
		integerValue(a.ValueInteger),
		stringKindValue(KindDate, a.ValueDate),
		stringKindValue(KindDateTime, a.ValueDateTime),
		stringKindValue(KindTime, a.ValueTime),
		stringKindValue(KindString, a.ValueString),
		stringKindValue(KindURI, a.ValueURI),
		attachmentValue(a.ValueAttachment),
		codingValue(a.ValueCoding),
		quantityValue(a.ValueQuantity),
		referenceValue(a.ValueReference),
	)
}

// IsEmpty reports whether no value field is populated.
func (a Answer) IsEmpty() bool {
	_, ok := a.Value()
	return !ok
}

// AnswersByLinkID searches the item tree for the first item with the given
// linkId and returns its answers. The search replicates the original
// renderer behaviour: a top-level linkId match returns immediately (even
// when the item carries no answers), while nested matches only surface
// when they yield answers.
func AnswersByLinkID(items []*QuestionnaireResponseItem, linkID string) []Answer {
	for _, item := range items {
		if item.LinkID == linkID {
			return item.Answer
		}
		if nested := AnswersByLinkID(item.Item, linkID); nested != nil {
			return nested
		}
	}
	return nil
}
