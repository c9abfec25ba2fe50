// Package expr provides the built-in expression evaluator for form state
// enablement and calculated fields: a small, dependency-free language
// evaluated against a QuestionnaireResponse document.
//
// Supported syntax:
//   - literals: numbers (20, 3.5), strings ('Yes', "No"), true/false, null
//   - identifiers: resolve to the first answer of the response item with
//     that linkId, searched through the whole document
//   - arithmetic: + - * / (strings concatenate with +)
//   - comparisons: = (or ==), !=, >, >=, <, <=
//   - boolean composition: && || ! and parentheses
//
// Comparisons and arithmetic over an absent operand yield an empty
// result, mirroring FHIRPath's empty propagation; hosts treat empty as
// "not enabled" / "no calculated value".
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

// Evaluator is the default formstate expression evaluator. The zero value
// is ready to use; expressions are parsed on every call, which keeps the
// evaluator stateless and trivially safe to share.
type Evaluator struct{}

// New returns a ready-to-use Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Evaluate parses and evaluates the expression against the response
// document. An empty expression or an empty result yields no values; a
// scalar result yields exactly one typed value.
func (e *Evaluator) Evaluate(expression string, doc *fhir.QuestionnaireResponse) ([]fhir.TypedValue, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}

	value, err := root.eval(doc)
	if err != nil {
		return nil, err
	}
	if value.IsZero() {
		return nil, nil
	}
	return []fhir.TypedValue{value}, nil
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenGt
	tokenGte
	tokenLt
	tokenLte
	tokenAnd
	tokenOr
	tokenNot
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i < len(input) {
		ch := peek()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			continue
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			continue
		case '+':
			i++
			tokens = append(tokens, token{kind: tokenPlus, raw: "+"})
			continue
		case '-':
			i++
			tokens = append(tokens, token{kind: tokenMinus, raw: "-"})
			continue
		case '*':
			i++
			tokens = append(tokens, token{kind: tokenStar, raw: "*"})
			continue
		case '/':
			i++
			tokens = append(tokens, token{kind: tokenSlash, raw: "/"})
			continue
		case '!':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			continue
		case '=':
			i++
			// FHIR authors write a single '='; the doubled form is
			// accepted for familiarity.
			if peek() == '=' {
				i++
			}
			tokens = append(tokens, token{kind: tokenEq, raw: "="})
			continue
		case '>':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenGte, raw: ">="})
				continue
			}
			tokens = append(tokens, token{kind: tokenGt, raw: ">"})
			continue
		case '<':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenLte, raw: "<="})
				continue
			}
			tokens = append(tokens, token{kind: tokenLt, raw: "<"})
			continue
		case '&':
			i++
			if peek() != '&' {
				return nil, errors.New("expr: unexpected '&'; use '&&'")
			}
			i++
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			continue
		case '|':
			i++
			if peek() != '|' {
				return nil, errors.New("expr: unexpected '|'; use '||'")
			}
			i++
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			continue
		case '"', '\'':
			value, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			i = next
			tokens = append(tokens, token{kind: tokenString, raw: value})
			continue
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}

	return tokens, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>', '+', '-', '*', '/', '"', '\'':
		return true
	}
	return false
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	if raw[0] >= '0' && raw[0] <= '9' {
		return true
	}
	return raw[0] == '.' && len(raw) > 1 && raw[1] >= '0' && raw[1] <= '9'
}

// scanString consumes a quoted literal starting at input[start] and
// returns the unescaped value plus the index past the closing quote.
func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	var out strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\\' {
			if i+1 >= len(input) {
				break
			}
			next := input[i+1]
			switch next {
			case '\\', quote:
				out.WriteByte(next)
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			default:
				out.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == quote {
			return out.String(), i + 1, nil
		}
		out.WriteByte(c)
		i++
	}
	return "", 0, errors.New("expr: unterminated string literal")
}

type exprNode interface {
	eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error)
}

type literalNode struct {
	value fhir.TypedValue
}

func (n literalNode) eval(*fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	return n.value, nil
}

// identNode resolves a linkId to the first populated answer of the first
// response item carrying it.
type identNode struct {
	name string
}

func (n identNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	if doc == nil {
		return fhir.TypedValue{}, nil
	}
	for _, answer := range fhir.AnswersByLinkID(doc.Item, n.name) {
		if value, ok := answer.Value(); ok {
			return value, nil
		}
	}
	return fhir.TypedValue{}, nil
}

type orNode struct{ left, right exprNode }

func (n orNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	left, err := n.left.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	if left.Truthy() {
		return fhir.Boolean(true), nil
	}
	right, err := n.right.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	return fhir.Boolean(right.Truthy()), nil
}

type andNode struct{ left, right exprNode }

func (n andNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	left, err := n.left.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	if !left.Truthy() {
		return fhir.Boolean(false), nil
	}
	right, err := n.right.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	return fhir.Boolean(right.Truthy()), nil
}

type notNode struct{ inner exprNode }

func (n notNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	inner, err := n.inner.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	return fhir.Boolean(!inner.Truthy()), nil
}

type negNode struct{ inner exprNode }

func (n negNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	inner, err := n.inner.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	if inner.IsZero() {
		return fhir.TypedValue{}, nil
	}
	switch v := inner.Value.(type) {
	case int:
		return fhir.Integer(-v), nil
	case float64:
		return fhir.Decimal(-v), nil
	default:
		return fhir.TypedValue{}, fmt.Errorf("expr: cannot negate %s value", inner.Kind)
	}
}

type compareNode struct {
	op          tokenKind
	left, right exprNode
}

func (n compareNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	left, err := n.left.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	right, err := n.right.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	if left.IsZero() || right.IsZero() {
		return fhir.TypedValue{}, nil
	}

	switch n.op {
	case tokenEq:
		return fhir.Boolean(fhir.Equal(left, right)), nil
	case tokenNeq:
		return fhir.Boolean(!fhir.Equal(left, right)), nil
	}

	cmp, ok := fhir.Compare(left, right)
	if !ok {
		return fhir.TypedValue{}, fmt.Errorf("expr: cannot compare %s and %s", left.Kind, right.Kind)
	}
	switch n.op {
	case tokenGt:
		return fhir.Boolean(cmp > 0), nil
	case tokenGte:
		return fhir.Boolean(cmp >= 0), nil
	case tokenLt:
		return fhir.Boolean(cmp < 0), nil
	case tokenLte:
		return fhir.Boolean(cmp <= 0), nil
	default:
		return fhir.TypedValue{}, errors.New("expr: unsupported comparison operator")
	}
}

type arithmeticNode struct {
	op          tokenKind
	left, right exprNode
}

func (n arithmeticNode) eval(doc *fhir.QuestionnaireResponse) (fhir.TypedValue, error) {
	left, err := n.left.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	right, err := n.right.eval(doc)
	if err != nil {
		return fhir.TypedValue{}, err
	}
	if left.IsZero() || right.IsZero() {
		return fhir.TypedValue{}, nil
	}

	if n.op == tokenPlus {
		if ls, ok := left.Str(); ok {
			if rs, ok := right.Str(); ok {
				return fhir.String(ls + rs), nil
			}
		}
	}

	ln, lok := left.Number()
	rn, rok := right.Number()
	if !lok || !rok {
		return fhir.TypedValue{}, fmt.Errorf("expr: cannot apply arithmetic to %s and %s", left.Kind, right.Kind)
	}

	li, leftInt := left.Value.(int)
	ri, rightInt := right.Value.(int)
	bothInt := leftInt && rightInt

	switch n.op {
	case tokenPlus:
		if bothInt {
			return fhir.Integer(li + ri), nil
		}
		return fhir.Decimal(ln + rn), nil
	case tokenMinus:
		if bothInt {
			return fhir.Integer(li - ri), nil
		}
		return fhir.Decimal(ln - rn), nil
	case tokenStar:
		if bothInt {
			return fhir.Integer(li * ri), nil
		}
		return fhir.Decimal(ln * rn), nil
	case tokenSlash:
		if rn == 0 {
			return fhir.TypedValue{}, errors.New("expr: division by zero")
		}
		return fhir.Decimal(ln / rn), nil
	default:
		return fhir.TypedValue{}, errors.New("expr: unsupported arithmetic operator")
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseComparison(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseComparison(stream)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseComparison(stream *tokenStream) (exprNode, error) {
	left, err := parseSum(stream)
	if err != nil {
		return nil, err
	}
	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenGte, tokenGt, tokenLte, tokenLt} {
		if stream.match(op) {
			right, err := parseSum(stream)
			if err != nil {
				return nil, err
			}
			return compareNode{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func parseSum(stream *tokenStream) (exprNode, error) {
	left, err := parseTerm(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.match(tokenPlus):
			right, err := parseTerm(stream)
			if err != nil {
				return nil, err
			}
			left = arithmeticNode{op: tokenPlus, left: left, right: right}
		case stream.match(tokenMinus):
			right, err := parseTerm(stream)
			if err != nil {
				return nil, err
			}
			left = arithmeticNode{op: tokenMinus, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func parseTerm(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.match(tokenStar):
			right, err := parseUnary(stream)
			if err != nil {
				return nil, err
			}
			left = arithmeticNode{op: tokenStar, left: left, right: right}
		case stream.match(tokenSlash):
			right, err := parseUnary(stream)
			if err != nil {
				return nil, err
			}
			left = arithmeticNode{op: tokenSlash, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	if stream.match(tokenMinus) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return negNode{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("expr: missing closing ')'")
		}
		return inner, nil
	}

	if stream.pos >= len(stream.tokens) {
		return nil, errors.New("expr: unexpected end of expression")
	}

	tok := stream.tokens[stream.pos]
	stream.pos++
	switch tok.kind {
	case tokenString:
		return literalNode{value: fhir.String(tok.raw)}, nil
	case tokenBool:
		return literalNode{value: fhir.Boolean(tok.raw == "true")}, nil
	case tokenNull:
		return literalNode{}, nil
	case tokenNumber:
		if strings.ContainsAny(tok.raw, ".eE") {
			f, err := strconv.ParseFloat(tok.raw, 64)
			if err != nil {
				return nil, fmt.Errorf("expr: invalid number literal %q", tok.raw)
			}
			return literalNode{value: fhir.Decimal(f)}, nil
		}
		n, err := strconv.Atoi(tok.raw)
		if err != nil {
			return nil, fmt.Errorf("expr: invalid number literal %q", tok.raw)
		}
		return literalNode{value: fhir.Integer(n)}, nil
	case tokenIdentifier:
		return identNode{name: tok.raw}, nil
	default:
		return nil, fmt.Errorf("expr: unexpected token %q", tok.raw)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}
