package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractModelName(t *testing.T) {
	model, err := ExtractModelName([]byte(`{"model":"test-model","messages":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "test-model", model)
}

func TestExtractModelName_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing field", `{"messages":[]}`},
		{"non-string model", `{"model":42}`},
		{"empty model", `{"model":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractModelName([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
