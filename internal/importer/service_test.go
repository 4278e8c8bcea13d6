package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/spendsight/internal/importer"
)

func TestService_Parse_Latin1(t *testing.T) {
	csv := "account_id,customer_name,date,amount,category,merchant\n" +
		"A123,José Müller,2024-11-03,12.00,Dining,Café Ñandú\n"

	encoded, err := charmap.ISO8859_1.NewEncoder().String(csv)
	require.NoError(t, err)

	batch, err := importer.NewService().Parse(importer.FormatLedgerCSV, bytes.NewBufferString(encoded))
	require.NoError(t, err)

	require.Len(t, batch.Transactions, 1)
	assert.Equal(t, "Café Ñandú", batch.Transactions[0].Merchant)
	assert.Equal(t, "José Müller", batch.Accounts[0].CustomerName)
}

func TestService_Parse_UTF8BOM(t *testing.T) {
	csv := "\xEF\xBB\xBFaccount_id,date,amount,category,merchant\nA123,2024-11-03,12.00,Dining,Kopitiam\n"

	batch, err := importer.NewService().Parse(importer.FormatLedgerCSV, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "A123", batch.Transactions[0].AccountID)
}

func TestService_Parse_UnknownFormat(t *testing.T) {
	_, err := importer.NewService().Parse("ofx", strings.NewReader(""))
	assert.ErrorContains(t, err, "unknown format")
}
