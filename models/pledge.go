package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethodMpesa tags pledges ingested from M-Pesa confirmations.
const PaymentMethodMpesa = "mpesa"

// FlexString decodes from a JSON string or a JSON number. The gateway sends
// amounts and balances as strings, but sandbox tools often send numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// PledgeCallback is the M-Pesa C2B confirmation payload.
type PledgeCallback struct {
	TransactionType   string     `json:"TransactionType"`
	TransID           FlexString `json:"TransID"`
	TransTime         FlexString `json:"TransTime"`
	TransAmount       FlexString `json:"TransAmount"`
	BusinessShortCode FlexString `json:"BusinessShortCode"`
	BillRefNumber     string     `json:"BillRefNumber,omitempty"`
	InvoiceNumber     string     `json:"InvoiceNumber,omitempty"`
	OrgAccountBalance FlexString `json:"OrgAccountBalance"`
	ThirdPartyTransID string     `json:"ThirdPartyTransID,omitempty"`
	MSISDN            FlexString `json:"MSISDN"`
	FirstName         string     `json:"FirstName,omitempty"`
	MiddleName        string     `json:"MiddleName,omitempty"`
	LastName          string     `json:"LastName,omitempty"`
}

// RequiredCallbackFields lists the fields a callback must carry, in reporting order.
var RequiredCallbackFields = []string{
	"TransactionType",
	"TransID",
	"TransTime",
	"TransAmount",
	"BusinessShortCode",
	"MSISDN",
	"OrgAccountBalance",
}

// PledgeRecord is the durable pledge created by a successful ingestion.
type PledgeRecord struct {
	ID            uuid.UUID       `json:"id"`
	Phone         string          `json:"phone"`
	Region        string          `json:"region"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	PaymentMethod string          `json:"payment_method"`
	Verified      bool            `json:"verified"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RegionAggregate is one row of the per-region pledge count view.
type RegionAggregate struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}
