package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"addition", "2 + 3", 5},
		{"subtraction", "10 - 4", 6},
		{"multiplication", "6 * 7", 42},
		{"division", "15 / 4", 3.75},
		{"modulo", "10 % 3", 1},
		{"power", "2 ^ 10", 1024},
		{"power right assoc", "2 ^ 3 ^ 2", 512},
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(2 + 3) * 4", 20},
		{"nested parens", "((1 + 2) * (3 + 4))", 21},
		{"unary minus", "-5 + 3", -2},
		{"double negative", "--5", 5},
		{"decimal", "0.1 + 0.2", 0.30000000000000004},
		{"no spaces", "1+2*3", 7},
		{"single number", "42", 42},
		{"negative parens", "-(2 + 3)", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluateExpression(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"division by zero", "1 / 0"},
		{"modulo by zero", "5 % 0"},
		{"letters", "two + two"},
		{"function call", "abs(-1)"},
		{"trailing operator", "1 +"},
		{"unclosed paren", "(1 + 2"},
		{"stray paren", "1 + 2)"},
		{"double dot", "1..5 + 2"},
		{"shell injection", "$(rm -rf /)"},
		{"python dunder", "__import__('os')"},
		{"too long", strings.Repeat("1+", 600) + "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluateExpression(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestEvaluateExpressionSentinels(t *testing.T) {
	_, err := evaluateExpression("")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = evaluateExpression("3 / 0")
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = evaluateExpression("a + 1")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}
