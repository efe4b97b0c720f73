package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `validate:"required"`
	Sigma float64 `validate:"gt=0"`
	Prob  float64 `validate:"gte=0,lte=1"`
	Low   int     `validate:"gte=0,lte=23"`
	High  int     `validate:"gtfield=Low,lte=24"`
	Mode  string  `validate:"oneof=gradual sudden"`
}

func TestStruct(t *testing.T) {
	valid := sample{Name: "x", Sigma: 1, Prob: 0.5, Low: 8, High: 18, Mode: "sudden"}

	t.Run("valid value passes", func(t *testing.T) {
		require.NoError(t, Struct(valid))
	})

	tests := []struct {
		name    string
		mutate  func(s *sample)
		field   string
		message string
	}{
		{"missing name", func(s *sample) { s.Name = "" }, "sample.Name", "is required"},
		{"non-positive sigma", func(s *sample) { s.Sigma = 0 }, "sample.Sigma", "must be greater than 0"},
		{"probability above one", func(s *sample) { s.Prob = 1.5 }, "sample.Prob", "must be less than or equal to 1"},
		{"negative probability", func(s *sample) { s.Prob = -0.1 }, "sample.Prob", "must be greater than or equal to 0"},
		{"inverted window", func(s *sample) { s.High = 4 }, "sample.High", "must be greater than Low"},
		{"unknown mode", func(s *sample) { s.Mode = "wild" }, "sample.Mode", "must be one of: gradual sudden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)

			err := Struct(s)
			require.Error(t, err)

			var errs Errors
			require.True(t, errors.As(err, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("collects every failure", func(t *testing.T) {
		err := Struct(sample{Mode: "gradual", High: 1})
		var errs Errors
		require.True(t, errors.As(err, &errs))
		assert.GreaterOrEqual(t, len(errs), 2)
	})

	t.Run("non-struct input is wrapped", func(t *testing.T) {
		err := Struct(42)
		require.Error(t, err)
		var errs Errors
		assert.False(t, errors.As(err, &errs))
	})
}
