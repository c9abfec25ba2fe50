package fhir

const hl7 = "http://hl7.org/fhir"

// Extension URLs the engine understands. These are the published HL7 and
// SDC structure definitions.
const (
	// ExtItemControl tags a group with a rendering control code; a first
	// top-level item with code "page" switches the form into page mode.
	ExtItemControl = hl7 + "/StructureDefinition/questionnaire-itemControl"

	// ExtEnableWhenExpression carries a boolean expression that overrides
	// the item's enableWhen conditions entirely.
	ExtEnableWhenExpression = hl7 + "/uv/sdc/StructureDefinition/sdc-questionnaire-enableWhenExpression"

	// ExtCalculatedExpression carries a formula whose result is
	// authoritative for the item's answer.
	ExtCalculatedExpression = hl7 + "/uv/sdc/StructureDefinition/sdc-questionnaire-calculatedExpression"

	// ExtValidationError annotates a response item with a user-visible
	// validation message.
	ExtValidationError = hl7 + "/StructureDefinition/questionnaire-validationError"

	// ExtSignatureRequired marks a questionnaire as requiring a signature.
	ExtSignatureRequired = hl7 + "/StructureDefinition/questionnaire-signatureRequired"

	// ExtResponseSignature holds the single signature on a response.
	ExtResponseSignature = hl7 + "/StructureDefinition/questionnaireresponse-signature"
)

// Extension is a FHIR extension with the value[x] variants used here.
type Extension struct {
	URL                  string           `json:"url"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueCode            *string          `json:"valueCode,omitempty"`
	ValueString          *string          `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueExpression      *Expression      `json:"valueExpression,omitempty"`
	ValueSignature       *Signature       `json:"valueSignature,omitempty"`
}

// GetExtension returns the first extension with the given URL, or nil.
func GetExtension(extensions []Extension, url string) *Extension {
	for i := range extensions {
		if extensions[i].URL == url {
			return &extensions[i]
		}
	}
	return nil
}

// ExpressionExtension returns the expression carried by the extension with
// the given URL, if the item has one.
func (item *QuestionnaireItem) ExpressionExtension(url string) (string, bool) {
	ext := GetExtension(item.Extension, url)
	if ext == nil || ext.ValueExpression == nil || ext.ValueExpression.Expression == "" {
		return "", false
	}
	return ext.ValueExpression.Expression, true
}

// Signature returns the response's signature extension value, or nil when
// the response is unsigned.
func (r *QuestionnaireResponse) Signature() *Signature {
	ext := GetExtension(r.Extension, ExtResponseSignature)
	if ext == nil {
		return nil
	}
	return ext.ValueSignature
}
