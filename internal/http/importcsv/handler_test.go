package importcsv_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/http/importcsv"
	"github.com/MrJamesThe3rd/spendsight/internal/importer"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

const ledger = `account_id,customer_name,date,amount,category,merchant
A123,Tan Wei Ming,2024-11-03,120.50,Dining,Hawker Centre
A123,Tan Wei Ming,2024-11-05,80.00,Transport,Grab
`

func newRouter(t *testing.T, setup func(m *transaction.MockRepository)) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)
	if setup != nil {
		setup(repo)
	}

	guard := guardrail.New(guardrail.DefaultLimits(), func() time.Time {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	h := importcsv.NewHandler(importer.NewService(), transaction.NewService(repo, guard, nil))

	r := chi.NewRouter()
	r.Route("/import", h.Routes)

	return r
}

func upload(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != "" {
		fw, err := mw.CreateFormFile("file", "ledger.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(file))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Import(t *testing.T) {
	router := newRouter(t, func(m *transaction.MockRepository) {
		m.EXPECT().GetAccount(gomock.Any(), "A123").Return(nil, transaction.ErrNotFound)
		m.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil)
		m.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(2)).Return(nil)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload(t, nil, ledger))

	require.Equal(t, http.StatusCreated, rec.Code)

	var got struct {
		Format          string   `json:"format"`
		AccountsCreated int      `json:"accounts_created"`
		Imported        int      `json:"imported"`
		Accounts        []string `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "ledger-csv", got.Format)
	assert.Equal(t, 1, got.AccountsCreated)
	assert.Equal(t, 2, got.Imported)
	assert.Equal(t, []string{"A123"}, got.Accounts)
}

func TestHandler_Import_BadRequests(t *testing.T) {
	type testCase struct {
		name   string
		fields map[string]string
		file   string
		want   string
	}

	tests := []testCase{
		{name: "MissingFile", want: "file field is required"},
		{name: "UnknownFormat", fields: map[string]string{"format": "ofx"}, file: ledger, want: "unknown format"},
		{name: "NoHeader", file: "a,b,c\n1,2,3\n", want: "no header found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(t, nil).ServeHTTP(rec, upload(t, tt.fields, tt.file))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
