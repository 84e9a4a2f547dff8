package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "****7890", MaskAccount(" 1234567890 "))
	assert.Equal(t, "****", MaskAccount("123"))
	assert.Empty(t, MaskAccount(""))
}

func TestMaskJSONOnlySensitiveKeys(t *testing.T) {
	masked := MaskJSON(map[string]any{
		"account_number": "110-222-333444",
		"bank_name":      "Shinhan",
		"amount":         5000,
		"payout": map[string]any{
			"account_holder": "Kim Minsu",
		},
		" ": "dropped",
	})

	assert.Equal(t, "****3444", masked["account_number"])
	assert.Equal(t, "Shinhan", masked["bank_name"])
	assert.Equal(t, 5000, masked["amount"])
	assert.Equal(t, map[string]any{"account_holder": "****insu"}, masked["payout"])
	assert.NotContains(t, masked, " ")
	assert.Nil(t, MaskJSON(nil))
}
