package tools

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxExpressionLength bounds calculator input to prevent abuse.
const MaxExpressionLength = 1024

// Calculator evaluation errors.
var (
	ErrEmptyExpression  = errors.New("empty expression")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrInvalidCharacter = errors.New("invalid character in expression")
)

// evaluateExpression evaluates a pure arithmetic expression.
// Supported: + - * / % ^, unary minus, parentheses, decimal numbers.
// Nothing else parses, so model-supplied input cannot reach anything
// beyond arithmetic.
func evaluateExpression(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, ErrEmptyExpression
	}
	if len(expr) > MaxExpressionLength {
		return 0, fmt.Errorf("expression length %d exceeds maximum %d", len(expr), MaxExpressionLength)
	}

	p := &exprParser{input: expr}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, errors.New("result is not a finite number")
	}
	return result, nil
}

// exprParser is a recursive descent parser over a byte offset.
//
// Grammar:
//
//	expr    = term (('+' | '-') term)*
//	term    = unary (('*' | '/' | '%') unary)*
//	unary   = '-' unary | power
//	power   = primary ('^' unary)?          right associative
//	primary = number | '(' expr ')'
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	c := p.peek()

	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return v, nil
	}

	if unicode.IsDigit(rune(c)) || c == '.' {
		start := p.pos
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if !unicode.IsDigit(rune(c)) && c != '.' {
				break
			}
			p.pos++
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", p.input[start:p.pos], err)
		}
		return v, nil
	}

	if c == 0 {
		return 0, errors.New("unexpected end of expression")
	}
	return 0, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, c, p.pos)
}

// peek returns the current byte or 0 at end of input.
func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
