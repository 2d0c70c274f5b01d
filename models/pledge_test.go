package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringAcceptsStringsAndNumbers(t *testing.T) {
	var cb PledgeCallback
	raw := `{"TransAmount":1.00,"BusinessShortCode":174379,"MSISDN":"254712345678","OrgAccountBalance":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))

	assert.Equal(t, FlexString("1.00"), cb.TransAmount)
	assert.Equal(t, FlexString("174379"), cb.BusinessShortCode)
	assert.Equal(t, FlexString("254712345678"), cb.MSISDN)
	assert.Equal(t, FlexString(""), cb.OrgAccountBalance)
}

func TestFlexStringRejectsOtherTypes(t *testing.T) {
	var cb PledgeCallback
	assert.Error(t, json.Unmarshal([]byte(`{"TransAmount":true}`), &cb))
	assert.Error(t, json.Unmarshal([]byte(`{"TransAmount":{"value":1}}`), &cb))
}
