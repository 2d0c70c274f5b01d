package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wantam-ink/pledge-backend/database"
	"github.com/wantam-ink/pledge-backend/shared"
)

const testShortcode = "174379"

func validCallbackFields(transactionID string) map[string]interface{} {
	return map[string]interface{}{
		"TransactionType":   "Pay Bill",
		"TransID":           transactionID,
		"TransTime":         "20240808103000",
		"TransAmount":       "1.00",
		"BusinessShortCode": testShortcode,
		"BillRefNumber":     "Nairobi",
		"InvoiceNumber":     "",
		"OrgAccountBalance": "1500.00",
		"ThirdPartyTransID": "",
		"MSISDN":            "254712345678",
		"FirstName":         "Wanjiku",
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// newSQLiteRepository returns a repository over a migrated in-memory database.
func newSQLiteRepository(t *testing.T) *database.PledgeRepository {
	t.Helper()
	config := shared.NewDefaultUnifiedConfiguration().Database
	config.Driver = "sqlite"
	config.URL = ":memory:"

	db, dialect, err := database.Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, dialect))

	return database.NewPledgeRepository(db, dialect, nil)
}
