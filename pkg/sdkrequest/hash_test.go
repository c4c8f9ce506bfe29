package sdkrequest

import (
	"testing"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/stretchr/testify/require"
)

func TestUnhashedOpHash(t *testing.T) {
	tests := []struct {
		name     string
		op       UnhashedOp
		expected string
	}{
		{
			name:     "first occurrence",
			op:       UnhashedOp{Name: "A", Op: enums.OpcodeStep},
			expected: "13a022b909c6fa8580ae1b352932dca5df069e84",
		},
		{
			name:     "second occurrence",
			op:       UnhashedOp{Name: "A", Op: enums.OpcodeStep, Pos: 1},
			expected: "63c677d54019c181308034676c1fd8fd22e4337b",
		},
		{
			name:     "opcode is part of the identity",
			op:       UnhashedOp{Name: "A", Op: enums.OpcodeSleep},
			expected: "0b069bb2c4d14c4c5123a73b6c6312f93fc68394",
		},
		{
			name:     "opts are not part of the identity",
			op:       UnhashedOp{Name: "B", Op: enums.OpcodeStep, Opts: map[string]any{"x": 1}},
			expected: "5524a9559c791a426d1e6eb699cadd79ed69c132",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			first, err := test.op.Hash()
			require.NoError(t, err)
			second, err := test.op.Hash()
			require.NoError(t, err)
			require.Equal(t, test.expected, first)
			require.Equal(t, first, second)
		})
	}
}

func TestUnhashedOpHashEmptyName(t *testing.T) {
	_, err := UnhashedOp{Op: enums.OpcodeStep}.Hash()
	require.ErrorIs(t, err, ErrEmptyStepName)

	require.Panics(t, func() {
		_ = UnhashedOp{Op: enums.OpcodeStep}.MustHash()
	})
}
