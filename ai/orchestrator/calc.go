package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Arithmetic is evaluated by a small recursive-descent parser over
// `+ - * / ( )` and numeric literals. Anything else is not arithmetic and
// falls through to later stages.

var calcPrefixes = []string{
	"what is",
	"what's",
	"calculate",
	"compute",
	"how much is",
}

// extractArithmetic strips a leading question phrase and reports whether the
// remainder looks like a pure arithmetic expression.
func extractArithmetic(query string) (string, bool) {
	expr := strings.TrimSpace(query)
	for _, prefix := range calcPrefixes {
		if strings.HasPrefix(expr, prefix+" ") {
			expr = strings.TrimSpace(strings.TrimPrefix(expr, prefix))
			break
		}
	}
	expr = strings.TrimRight(expr, "?")
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", false
	}

	digits := 0
	for _, r := range expr {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '(' || r == ')' || r == '.' || r == ' ':
		default:
			return "", false
		}
	}
	if digits == 0 {
		return "", false
	}
	// A bare number is a statement, not a calculation.
	if !strings.ContainsAny(expr, "+-*/") {
		return "", false
	}
	return expr, true
}

// evaluate parses and evaluates an arithmetic expression.
func evaluate(expr string) (float64, error) {
	p := &calcParser{input: []rune(expr)}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return result, nil
}

type calcParser struct {
	input []rune
	pos   int
}

func (p *calcParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *calcParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *calcParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch p.input[p.pos] {
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", p.pos)
	}
	v, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", string(p.input[start:p.pos]))
	}
	return v, nil
}

func (p *calcParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// formatNumber renders integers without a decimal tail.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
