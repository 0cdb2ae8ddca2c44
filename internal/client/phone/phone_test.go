package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"+380 (67) 123-45-67": "+380671234567",
		"380671234567":        "+380671234567",
		"80671234567":         "+380671234567",
		"0671234567":          "+380671234567",
		"067 123 45 67":       "+380671234567",
		"":                    "",
		"12345":               "+12345",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("+380671234567"))
	assert.False(t, IsValid("+38067123456"))
	assert.False(t, IsValid("0671234567"))
	assert.False(t, IsValid("+12345"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "+380 (67) 123-45-67", Format("+380671234567"))
	assert.Equal(t, "0671234567", Format("0671234567"))
}
