package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("123456789"))
	assert.Equal(t, "sandbox_****", MaskSecret("sandbox_i1"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+380*******67", MaskPhone("+380671234567"))
	assert.Equal(t, "****", MaskPhone("+380"))
}

func TestMaskJSON(t *testing.T) {
	out := MaskJSON(map[string]any{
		"status":         "success",
		"transaction_id": "1234567890",
		"":               "dropped",
	}, "transaction_id")

	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "****7890", out["transaction_id"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskJSON(nil))
}
