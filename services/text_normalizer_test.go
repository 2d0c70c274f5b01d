package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wantam-ink/pledge-backend/shared"
)

func TestNormalizePhoneNumber(t *testing.T) {
	for input, want := range map[string]string{
		"0712345678":       "254712345678",
		"712345678":        "254712345678",
		"+254 712 345 678": "254712345678",
		"254112345678":     "254112345678",
	} {
		got, err := NormalizePhoneNumber(input)
		assert.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "12345", "255712345678", "0812345678"} {
		_, err := NormalizePhoneNumber(input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput, input)
	}
}

func TestNormalizeRegion(t *testing.T) {
	assert.Equal(t, "Uasin Gishu", NormalizeRegion("  Uasin   Gishu "))
	assert.Equal(t, "N/A", NormalizeRegion(" N/A "))
	assert.Equal(t, "TBD", NormalizeRegion("TBD"))
	assert.Equal(t, "", NormalizeRegion("\t"))
	assert.Equal(t, "", NormalizeRegion(" \n "))
}
