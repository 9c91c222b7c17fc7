package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(domain.CloudflareCredentials{APIToken: "test-token"}, transport.NewClient(testLogger()), testLogger(), nil)
	c.SetBaseURL(srv.URL)
	return c, srv
}

func writeEnvelope(w http.ResponseWriter, result any, info *resultInfo) {
	env := map[string]any{"success": true, "errors": []any{}, "result": result}
	if info != nil {
		env["result_info"] = info
	}
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"errors":  []map[string]any{{"code": code, "message": message}},
	})
}

func TestValidateCredentials(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user/tokens/verify", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			writeEnvelope(w, map[string]string{"status": "active"}, nil)
		}))
		ok, err := c.ValidateCredentials(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejected", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusUnauthorized, 9109, "Invalid access token")
		}))
		ok, err := c.ValidateCredentials(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestListDomains(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		writeEnvelope(w, []zoneJSON{
			{ID: "z1", Name: "Example.COM.", Status: "active"},
			{ID: "z2", Name: "paused.org", Status: "active", Paused: true},
			{ID: "z3", Name: "pending.net", Status: "pending"},
			{ID: "z4", Name: "moved.net", Status: "moved"},
		}, &resultInfo{Page: 1, PerPage: 50, TotalCount: 4})
	}))

	resp, err := c.ListDomains(context.Background(), domain.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)
	assert.Equal(t, 4, resp.TotalCount)

	assert.Equal(t, "example.com", resp.Items[0].Name)
	assert.Equal(t, domain.DomainActive, resp.Items[0].Status)
	assert.Equal(t, domain.DomainPaused, resp.Items[1].Status)
	assert.Equal(t, domain.DomainPending, resp.Items[2].Status)
	assert.Equal(t, domain.DomainError, resp.Items[3].Status)
	assert.Equal(t, domain.ProviderCloudflare, resp.Items[0].Provider)
}

// fakeCache records Get/Set traffic for cache wiring assertions.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
	gets  int
	sets  int
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.items[key]
	return v, ok
}

func (f *fakeCache) Set(_ context.Context, key string, data []byte, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.items[key] = data
}

func TestListDomainsUsesCache(t *testing.T) {
	var apiCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		writeEnvelope(w, []zoneJSON{{ID: "z1", Name: "example.com", Status: "active"}}, nil)
	}))
	t.Cleanup(srv.Close)

	cache := &fakeCache{items: map[string][]byte{}}
	c := New(domain.CloudflareCredentials{APIToken: "tok"}, transport.NewClient(testLogger()), testLogger(), cache)
	c.SetBaseURL(srv.URL)

	_, err := c.ListDomains(context.Background(), domain.PaginationParams{})
	require.NoError(t, err)
	resp, err := c.ListDomains(context.Background(), domain.PaginationParams{})
	require.NoError(t, err)

	assert.Equal(t, 1, apiCalls, "second listing must come from cache")
	assert.Equal(t, 1, cache.sets)
	assert.Len(t, resp.Items, 1)
}

func TestListRecordsMapsVariants(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones/z1/dns_records", r.URL.Path)
		writeEnvelope(w, []json.RawMessage{
			json.RawMessage(`{"id":"r1","zone_id":"z1","zone_name":"example.com","name":"example.com","type":"A","content":"192.0.2.1","ttl":300}`),
			json.RawMessage(`{"id":"r2","zone_id":"z1","zone_name":"example.com","name":"mail.example.com","type":"MX","content":"mx1.example.com","priority":10,"ttl":300}`),
			json.RawMessage(`{"id":"r3","zone_id":"z1","zone_name":"example.com","name":"_sip._tcp.example.com","type":"SRV","content":"","ttl":300,"data":{"priority":1,"weight":5,"port":443,"target":"sip.example.com"}}`),
			json.RawMessage(`{"id":"r4","zone_id":"z1","zone_name":"example.com","name":"example.com","type":"CAA","content":"","ttl":300,"data":{"flags":0,"tag":"issue","value":"letsencrypt.org"}}`),
		}, &resultInfo{TotalCount: 4})
	}))

	resp, err := c.ListRecords(context.Background(), "z1", domain.RecordQueryParams{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)

	assert.Equal(t, "@", resp.Items[0].Name)
	assert.Equal(t, "192.0.2.1", resp.Items[0].Data.Address)

	assert.Equal(t, "mail", resp.Items[1].Name)
	assert.Equal(t, uint16(10), resp.Items[1].Data.Priority)
	assert.Equal(t, "mx1.example.com", resp.Items[1].Data.Exchange)

	srv := resp.Items[2].Data
	assert.Equal(t, uint16(1), srv.Priority)
	assert.Equal(t, uint16(5), srv.Weight)
	assert.Equal(t, uint16(443), srv.Port)
	assert.Equal(t, "sip.example.com", srv.Target)

	caa := resp.Items[3].Data
	assert.Equal(t, "issue", caa.Tag)
	assert.Equal(t, "letsencrypt.org", caa.Value)
}

func TestListRecordsSkipsUnparseable(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []json.RawMessage{
			json.RawMessage(`{"id":"r1","zone_id":"z1","zone_name":"example.com","name":"a.example.com","type":"A","content":"192.0.2.1","ttl":300}`),
			json.RawMessage(`{"id":"r2","zone_id":"z1","zone_name":"example.com","name":"x.example.com","type":"NAPTR","content":"?","ttl":300}`),
		}, nil)
	}))

	resp, err := c.ListRecords(context.Background(), "z1", domain.RecordQueryParams{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "r1", resp.Items[0].ID)
}

func TestCreateRecord(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var p recordPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "A", p.Type)
		assert.Equal(t, "www", p.Name)
		assert.Equal(t, "192.0.2.1", p.Content)
		writeEnvelope(w, recordJSON{
			ID: "new1", ZoneID: "z1", ZoneName: "example.com",
			Name: "www.example.com", Type: "A", Content: "192.0.2.1", TTL: 300,
		}, nil)
	}))

	rec, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "z1",
		Name:   "www",
		TTL:    300,
		Data:   domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", rec.ID)
	assert.Equal(t, "www", rec.Name)
}

func TestCreateRecordRejectsBadTTL(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the API")
	}))

	_, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "z1",
		Name:   "www",
		TTL:    60,
		Data:   domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	require.Error(t, err)
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.CodeInvalidParameter, derr.Code)
	assert.Equal(t, "ttl", derr.Param)
}

func TestCreateRecordAcceptsAutomaticTTL(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, recordJSON{ID: "n", ZoneID: "z1", ZoneName: "example.com", Name: "www.example.com", Type: "A", Content: "192.0.2.1", TTL: 1}, nil)
	}))
	_, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "z1", Name: "www", TTL: 1,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	assert.NoError(t, err)
}

func TestAPIErrorsAreMapped(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, 81053, "An identical record already exists.")
	}))

	_, err := c.CreateRecord(context.Background(), domain.CreateDnsRecordRequest{
		ZoneID: "z1", Name: "www", TTL: 300,
		Data: domain.RecordData{Type: domain.TypeA, Address: "192.0.2.1"},
	})
	assert.True(t, domain.IsCode(err, domain.CodeRecordExists), fmt.Sprintf("got %v", err))
}

func TestDeleteRecord(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/zones/z1/dns_records/r1", r.URL.Path)
		writeEnvelope(w, map[string]string{"id": "r1"}, nil)
	}))
	assert.NoError(t, c.DeleteRecord(context.Background(), "r1", "z1"))
}
