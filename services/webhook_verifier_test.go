package services

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

func newTestVerifier(secret string) *WebhookVerifier {
	return NewWebhookVerifier(shared.WebhookConfig{
		Secret:            secret,
		ExpectedShortcode: testShortcode,
	})
}

func TestVerifyAcceptsValidCallback(t *testing.T) {
	v := newTestVerifier("")

	cb, err := v.Verify(mustJSON(t, validCallbackFields("QHX1")), "")
	require.NoError(t, err)
	assert.Equal(t, models.FlexString("QHX1"), cb.TransID)
	assert.Equal(t, models.FlexString("254712345678"), cb.MSISDN)
	assert.Equal(t, int64(1), v.Metrics().Counter("accepted"))
}

func TestVerifyAcceptsNumericFields(t *testing.T) {
	fields := validCallbackFields("QHX2")
	fields["TransAmount"] = 1
	fields["MSISDN"] = 254712345678
	fields["BusinessShortCode"] = 174379

	_, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
	assert.NoError(t, err)
}

func TestVerifyAcceptsNumericTransactionID(t *testing.T) {
	fields := validCallbackFields("")
	fields["TransID"] = 123456

	cb, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
	require.NoError(t, err)
	assert.Equal(t, models.FlexString("123456"), cb.TransID)

	result, err := NewPledgeService(UnavailableStore(), nil).Ingest(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, "123456", result.Record.TransactionID)
}

func TestSignatureProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a correct signature is accepted", prop.ForAll(
		func(secret, transactionID string) bool {
			raw := mustJSON(t, validCallbackFields("TX"+transactionID))
			_, err := newTestVerifier(secret).Verify(raw, SignPayload(secret, raw))
			return err == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.Identifier(),
	))

	properties.Property("any single-byte body mutation is rejected", prop.ForAll(
		func(secret string, index int, mask int) bool {
			raw := mustJSON(t, validCallbackFields("QHXMUT"))
			signature := SignPayload(secret, raw)

			mutated := append([]byte(nil), raw...)
			mutated[index%len(mutated)] ^= byte(mask)

			_, err := newTestVerifier(secret).Verify(mutated, signature)
			return errors.Is(err, shared.ErrInvalidSignature)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(0, 10000),
		gen.IntRange(1, 255),
	))

	properties.Property("any single-byte signature mutation is rejected", prop.ForAll(
		func(secret string, index int, mask int) bool {
			raw := mustJSON(t, validCallbackFields("QHXSIG"))
			signature := []byte(SignPayload(secret, raw))
			signature[index%len(signature)] ^= byte(mask)

			_, err := newTestVerifier(secret).Verify(raw, string(signature))
			return errors.Is(err, shared.ErrInvalidSignature)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(0, 10000),
		gen.IntRange(1, 255),
	))

	properties.TestingRun(t)
}

func TestSignatureSkippedWithoutSecretOrHeader(t *testing.T) {
	raw := mustJSON(t, validCallbackFields("QHXSKIP"))

	_, err := newTestVerifier("").Verify(raw, "not-even-base64")
	assert.NoError(t, err, "no secret configured")

	_, err = newTestVerifier("secret").Verify(raw, "")
	assert.NoError(t, err, "no header supplied")
}

func TestSignatureRequiredRejectsMissingHeader(t *testing.T) {
	v := NewWebhookVerifier(shared.WebhookConfig{
		Secret:            "secret",
		RequireSignature:  true,
		ExpectedShortcode: testShortcode,
	})
	raw := mustJSON(t, validCallbackFields("QHXREQ"))

	_, err := v.Verify(raw, "")
	assert.ErrorIs(t, err, shared.ErrInvalidSignature)

	_, err = v.Verify(raw, SignPayload("secret", raw))
	assert.NoError(t, err)
}

func TestInvalidSignatureBeforeSchema(t *testing.T) {
	_, err := newTestVerifier("secret").Verify([]byte("not json"), "AAAA")
	assert.ErrorIs(t, err, shared.ErrInvalidSignature)
}

func TestMissingFieldProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a missing required field is a SchemaError naming it", prop.ForAll(
		func(index int, blank bool) bool {
			field := models.RequiredCallbackFields[index]
			fields := validCallbackFields("QHXMISS")
			if blank {
				fields[field] = "  "
			} else {
				delete(fields, field)
			}

			_, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
			serviceErr, ok := shared.AsServiceError(err)
			return ok && errors.Is(err, shared.ErrSchema) && serviceErr.Field == field
		},
		gen.IntRange(0, len(models.RequiredCallbackFields)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestValidateCallbackSchemaReportsAllMissing(t *testing.T) {
	missing, err := ValidateCallbackSchema([]byte(`{"TransID":"X","TransAmount":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"TransactionType", "TransTime", "TransAmount", "BusinessShortCode", "MSISDN", "OrgAccountBalance",
	}, missing)

	for _, body := range []string{"", "[]", "null", "{", `"text"`} {
		_, err := ValidateCallbackSchema([]byte(body))
		assert.ErrorIs(t, err, shared.ErrSchema, body)
	}
}

func TestInvalidAmountProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any amount other than 1.00 is InvalidAmount", prop.ForAll(
		func(cents int) bool {
			fields := validCallbackFields("QHXAMT")
			fields["TransAmount"] = decimal.New(int64(cents), -2).StringFixed(2)

			_, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
			return errors.Is(err, shared.ErrInvalidAmount)
		},
		gen.IntRange(-100000, 100000).SuchThat(func(c int) bool { return c != 100 }),
	))

	properties.TestingRun(t)
}

func TestAmountEqualityIsNumeric(t *testing.T) {
	for _, amount := range []string{"1", "1.0", "1.00", "1.000"} {
		fields := validCallbackFields("QHXEQ")
		fields["TransAmount"] = amount
		_, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
		assert.NoError(t, err, amount)
	}

	for _, amount := range []string{"1.001", "0.99", "one", "1,00"} {
		fields := validCallbackFields("QHXNEQ")
		fields["TransAmount"] = amount
		_, err := newTestVerifier("").Verify(mustJSON(t, fields), "")
		assert.ErrorIs(t, err, shared.ErrInvalidAmount, amount)
	}
}

func TestShortcodeCheck(t *testing.T) {
	fields := validCallbackFields("QHXSC")
	fields["BusinessShortCode"] = "600000"
	raw := mustJSON(t, fields)

	_, err := newTestVerifier("").Verify(raw, "")
	assert.ErrorIs(t, err, shared.ErrInvalidShortcode)

	for _, expected := range []string{"", shared.PlaceholderShortcode} {
		v := NewWebhookVerifier(shared.WebhookConfig{ExpectedShortcode: expected})
		_, err := v.Verify(raw, "")
		assert.NoError(t, err, "check skipped for %q", expected)
	}
}
