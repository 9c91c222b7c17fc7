package dnspod

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(domain.DnspodCredentials{SecretID: "id", SecretKey: "key"},
		transport.NewClient(testLogger()), testLogger())
	c.SetEndpoint(srv.URL)
	return c
}

func writeResponse(w http.ResponseWriter, payload any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"Response": payload})
}

func TestListDomainsPagination(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DescribeDomainList", r.Header.Get("X-TC-Action"))
		assert.Equal(t, apiVersion, r.Header.Get("X-TC-Version"))

		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		// Page 3 at size 20 starts at offset 40.
		assert.Equal(t, float64(40), args["Offset"])
		assert.Equal(t, float64(20), args["Limit"])

		writeResponse(w, map[string]any{
			"DomainCountInfo": map[string]int{"DomainTotal": 55},
			"DomainList": []map[string]any{
				{"DomainId": 1, "Name": "Example.COM", "Status": "ENABLE"},
				{"DomainId": 2, "Name": "paused.net", "Status": "PAUSE"},
				{"DomainId": 3, "Name": "locked.net", "Status": "LOCK"},
			},
		})
	}))

	resp, err := c.ListDomains(context.Background(), domain.PaginationParams{Page: 3, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, 55, resp.TotalCount)
	// Zone ID is the normalized domain name.
	assert.Equal(t, "example.com", resp.Items[0].ID)
	assert.Equal(t, domain.DomainActive, resp.Items[0].Status)
	assert.Equal(t, domain.DomainPaused, resp.Items[1].Status)
	assert.Equal(t, domain.DomainError, resp.Items[2].Status)
}

func TestListRecords(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "example.com", args["Domain"])

		writeResponse(w, map[string]any{
			"RecordCountInfo": map[string]int{"TotalCount": 2},
			"RecordList": []map[string]any{
				{"RecordId": 100, "Name": "www", "Type": "A", "Value": "192.0.2.1", "TTL": 600},
				{"RecordId": 101, "Name": "@", "Type": "MX", "Value": "mx1.example.com.", "TTL": 600, "MX": 10},
			},
		})
	}))

	resp, err := c.ListRecords(context.Background(), "example.com", domain.RecordQueryParams{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)

	assert.Equal(t, "100", resp.Items[0].ID)
	assert.Equal(t, "www", resp.Items[0].Name)

	mx := resp.Items[1].Data
	assert.Equal(t, uint16(10), mx.Priority)
	assert.Equal(t, "mx1.example.com", mx.Exchange)
}

func TestCreateRecordSendsDefaultLine(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "CreateRecord", r.Header.Get("X-TC-Action"))
		assert.Equal(t, defaultRecordLine, args["RecordLine"])
		assert.Equal(t, "www", args["SubDomain"])
		writeResponse(w, map[string]any{"RecordId": 7})
	}))

	rec, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "example.com", Name: "www", TTL: 600,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", rec.ID)
}

func TestCreateRecordEnforcesTTLFloor(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the API")
	}))

	_, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "example.com", Name: "www", TTL: 120,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.CodeInvalidParameter, derr.Code)
	assert.Equal(t, "ttl", derr.Param)
}

func TestUpdateRecordRejectsMalformedID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the API")
	}))

	_, err := c.UpdateRecord(context.Background(), "not-a-number", domain.UpdateDnsRecordRequest{
		ZoneID: "example.com", Name: "www", TTL: 600,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	assert.True(t, domain.IsCode(err, domain.CodeRecordNotFound))

	err = c.DeleteRecord(context.Background(), "not-a-number", "example.com")
	assert.True(t, domain.IsCode(err, domain.CodeRecordNotFound))
}

func TestAPIErrorsAreMapped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, map[string]any{
			"Error": map[string]string{
				"Code":    "InvalidParameter.DomainRecordExist",
				"Message": "record exists",
			},
		})
	}))

	_, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "example.com", Name: "www", TTL: 600,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	assert.True(t, domain.IsCode(err, domain.CodeRecordExists))
}

func TestValidateCredentialsRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, map[string]any{
			"Error": map[string]string{
				"Code":    "AuthFailure.SignatureFailure",
				"Message": "signature mismatch",
			},
		})
	}))

	ok, err := c.ValidateCredentials(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedEnvelopeIsParseError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"NotAResponse":1}`))
	}))

	_, err := c.ListDomains(context.Background(), domain.PaginationParams{})
	assert.True(t, domain.IsCode(err, domain.CodeParseError))
}
