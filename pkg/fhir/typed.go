package fhir

import "strings"

// Kind identifies the runtime type of a TypedValue. Primitive kinds use
// the lowercase FHIRPath spelling, complex kinds the resource type name.
type Kind string

const (
	KindBoolean    Kind = "boolean"
	KindInteger    Kind = "integer"
	KindDecimal    Kind = "decimal"
	KindDate       Kind = "date"
	KindDateTime   Kind = "dateTime"
	KindTime       Kind = "time"
	KindString     Kind = "string"
	KindURI        Kind = "uri"
	KindCoding     Kind = "Coding"
	KindQuantity   Kind = "Quantity"
	KindAttachment Kind = "Attachment"
	KindReference  Kind = "Reference"
)

// TypedValue pairs a value with its declared kind, so consumers can
// validate an evaluator result against the item type that will hold it
// instead of trusting the dynamic shape. The concrete Value types are:
// bool, int, float64, string, Coding, Quantity, Attachment, Reference.
type TypedValue struct {
	Kind  Kind
	Value any
}

// IsZero reports whether the typed value is absent.
func (tv TypedValue) IsZero() bool { return tv.Kind == "" }

// Bool unwraps a boolean value.
func (tv TypedValue) Bool() (bool, bool) {
	b, ok := tv.Value.(bool)
	return b, ok
}

// Number unwraps integer and decimal values to float64.
func (tv TypedValue) Number() (float64, bool) {
	switch v := tv.Value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Str unwraps string-shaped values (string, date/time kinds, uri).
func (tv TypedValue) Str() (string, bool) {
	s, ok := tv.Value.(string)
	return s, ok
}

// Truthy reports JS-style truthiness: absent values, false, zero numbers
// and empty strings are falsy; everything else is truthy.
func (tv TypedValue) Truthy() bool {
	if tv.IsZero() || tv.Value == nil {
		return false
	}
	switch v := tv.Value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Boolean wraps a bool.
func Boolean(v bool) TypedValue { return TypedValue{Kind: KindBoolean, Value: v} }

// Integer wraps an int.
func Integer(v int) TypedValue { return TypedValue{Kind: KindInteger, Value: v} }

// Decimal wraps a float64.
func Decimal(v float64) TypedValue { return TypedValue{Kind: KindDecimal, Value: v} }

// String wraps a string.
func String(v string) TypedValue { return TypedValue{Kind: KindString, Value: v} }

// Equal reports value equality between two typed values. Numbers compare
// numerically across the integer/decimal kinds. Codings are equal when
// their codes match and their systems do not disagree (overlap semantics);
// quantities compare on value and unit/code; references and attachments
// compare on their target.
func Equal(a, b TypedValue) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	if an, ok := a.Number(); ok {
		bn, ok := b.Number()
		return ok && an == bn
	}
	switch av := a.Value.(type) {
	case Coding:
		bv, ok := b.Value.(Coding)
		if !ok {
			return false
		}
		if av.Code != bv.Code {
			return false
		}
		return av.System == "" || bv.System == "" || av.System == bv.System
	case Quantity:
		bv, ok := b.Value.(Quantity)
		if !ok || av.Value == nil || bv.Value == nil || *av.Value != *bv.Value {
			return false
		}
		if av.Code != "" && bv.Code != "" {
			return av.Code == bv.Code
		}
		return av.Unit == bv.Unit
	case Reference:
		bv, ok := b.Value.(Reference)
		return ok && av.Reference == bv.Reference
	case Attachment:
		bv, ok := b.Value.(Attachment)
		return ok && av.URL == bv.URL
	default:
		return a.Value == b.Value
	}
}

// Compare orders two typed values, returning <0, 0, or >0. ok is false
// when the kinds have no defined ordering (complex types, or a number
// against a string). Numbers order numerically; the string-shaped kinds
// (string, date, dateTime, time, uri) order lexically, which matches
// chronological order for the ISO date/time encodings.
func Compare(a, b TypedValue) (int, bool) {
	if an, aok := a.Number(); aok {
		bn, bok := b.Number()
		if !bok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.Str()
	bs, bok := b.Str()
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

func firstTypedValue(values ...TypedValue) (TypedValue, bool) {
	for _, v := range values {
		if !v.IsZero() {
			return v, true
		}
	}
	return TypedValue{}, false
}

func boolValue(v *bool) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return Boolean(*v)
}

func decimalValue(v *float64) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return Decimal(*v)
}

func integerValue(v *int) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return Integer(*v)
}

func stringKindValue(kind Kind, v *string) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return TypedValue{Kind: kind, Value: *v}
}

func codingValue(v *Coding) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return TypedValue{Kind: KindCoding, Value: *v}
}

func quantityValue(v *Quantity) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return TypedValue{Kind: KindQuantity, Value: *v}
}

func attachmentValue(v *Attachment) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return TypedValue{Kind: KindAttachment, Value: *v}
}

func referenceValue(v *Reference) TypedValue {
	if v == nil {
		return TypedValue{}
	}
	return TypedValue{Kind: KindReference, Value: *v}
}
