// Package cloudflare implements the provider contract against the Cloudflare
// v4 API. Authentication is a bearer token; there is no request signing.
package cloudflare

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/infrastructure/metrics"
	"dnsbridge/internal/provider/transport"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4"

	maxZonePageSize   = 50
	maxRecordPageSize = 100

	// TTL 1 means "automatic"; everything else must be >= 120.
	automaticTTL = 1
	minTTL       = 120

	domainCacheTTL = 60 * time.Second
)

// Client talks to the Cloudflare API for one account's token.
type Client struct {
	token   string
	baseURL string
	http    *transport.Client
	logger  *slog.Logger

	// cache holds recent zone listings. Latency optimization only: it is
	// never consulted on GetDomain and misses always hit the API.
	cache    ports.DomainCache
	cacheKey string
}

func New(creds domain.CloudflareCredentials, httpc *transport.Client, logger *slog.Logger, cache ports.DomainCache) *Client {
	sum := sha256.Sum256([]byte(creds.APIToken))
	return &Client{
		token:    creds.APIToken,
		baseURL:  defaultBaseURL,
		http:     httpc,
		logger:   logger,
		cache:    cache,
		cacheKey: "cf:zones:" + hex.EncodeToString(sum[:8]),
	}
}

// SetBaseURL overrides the API endpoint. Tests only.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderCloudflare }

type envelope struct {
	Success    bool            `json:"success"`
	Errors     []apiError      `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
}

type zoneJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Paused bool   `json:"paused"`
}

type recordJSON struct {
	ID       string          `json:"id"`
	ZoneID   string          `json:"zone_id"`
	ZoneName string          `json:"zone_name"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Content  string          `json:"content"`
	TTL      uint32          `json:"ttl"`
	Priority *uint16         `json:"priority,omitempty"`
	Proxied  *bool           `json:"proxied,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Created  *domain.FlexTime `json:"created_on,omitempty"`
	Modified *domain.FlexTime `json:"modified_on,omitempty"`
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	var out json.RawMessage
	_, err := c.doJSON(ctx, "validate_credentials", http.MethodGet, "/user/tokens/verify", nil, nil, &out, transport.CallContext{})
	if err != nil {
		if domain.IsCode(err, domain.CodeInvalidCredentials) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) ListDomains(ctx context.Context, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error) {
	params = params.Normalize(maxZonePageSize)

	key := fmt.Sprintf("%s:%d:%d", c.cacheKey, params.Page, params.PageSize)
	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, key); ok {
			var cached domain.PaginatedResponse[domain.ProviderDomain]
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.DomainCacheOperations.WithLabelValues("cloudflare", "hit").Inc()
				return &cached, nil
			}
		}
		metrics.DomainCacheOperations.WithLabelValues("cloudflare", "miss").Inc()
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("per_page", strconv.Itoa(params.PageSize))

	var zones []zoneJSON
	info, err := c.doJSON(ctx, "list_domains", http.MethodGet, "/zones", q, nil, &zones, transport.CallContext{})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.ProviderDomain]{
		Items:      make([]domain.ProviderDomain, 0, len(zones)),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: len(zones),
	}
	if info != nil {
		resp.TotalCount = info.TotalCount
	}
	for _, z := range zones {
		resp.Items = append(resp.Items, toDomain(z))
	}

	if c.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			c.cache.Set(ctx, key, data, domainCacheTTL)
		}
	}
	return resp, nil
}

func (c *Client) GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error) {
	var z zoneJSON
	_, err := c.doJSON(ctx, "get_domain", http.MethodGet, "/zones/"+url.PathEscape(zoneID), nil, nil, &z, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}
	d := toDomain(z)
	return &d, nil
}

func (c *Client) ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	p := params.Pagination().Normalize(maxRecordPageSize)

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PageSize))
	if params.RecordType != "" {
		q.Set("type", string(params.RecordType))
	}
	if params.Keyword != "" {
		q.Set("name.contains", params.Keyword)
	}

	var records []recordJSON
	info, err := c.doJSON(ctx, "list_records", http.MethodGet, "/zones/"+url.PathEscape(zoneID)+"/dns_records", q, nil, &records, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.DnsRecord]{
		Items:      make([]domain.DnsRecord, 0, len(records)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: len(records),
	}
	if info != nil {
		resp.TotalCount = info.TotalCount
	}
	for _, r := range records {
		rec, err := toRecord(r)
		if err != nil {
			c.logger.Warn("skipping unparseable record", "provider", "cloudflare", "record_id", r.ID, "error", err)
			continue
		}
		resp.Items = append(resp.Items, rec)
	}
	return resp, nil
}

func (c *Client) CreateRecord(ctx context.Context, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error) {
	payload, err := buildPayload(req.Name, req.TTL, req.Data, req.Proxied)
	if err != nil {
		return nil, err
	}
	var out recordJSON
	_, err = c.doJSON(ctx, "create_record", http.MethodPost, "/zones/"+url.PathEscape(req.ZoneID)+"/dns_records", nil, payload, &out, transport.CallContext{Domain: req.ZoneID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}
	rec, err := toRecord(out)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	payload, err := buildPayload(req.Name, req.TTL, req.Data, req.Proxied)
	if err != nil {
		return nil, err
	}
	var out recordJSON
	_, err = c.doJSON(ctx, "update_record", http.MethodPut, "/zones/"+url.PathEscape(req.ZoneID)+"/dns_records/"+url.PathEscape(recordID), nil, payload, &out, transport.CallContext{Domain: req.ZoneID, RecordID: recordID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}
	rec, err := toRecord(out)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) DeleteRecord(ctx context.Context, recordID, zoneID string) error {
	var out json.RawMessage
	_, err := c.doJSON(ctx, "delete_record", http.MethodDelete, "/zones/"+url.PathEscape(zoneID)+"/dns_records/"+url.PathEscape(recordID), nil, nil, &out, transport.CallContext{Domain: zoneID, RecordID: recordID})
	return err
}

// doJSON performs one API call and decodes the standard Cloudflare envelope.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, payload any, result any, cc transport.CallContext) (*resultInfo, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &domain.Error{Code: domain.CodeSerializationError, Provider: domain.ProviderCloudflare, Detail: err.Error()}
		}
		body = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, &domain.Error{Code: domain.CodeNetworkError, Provider: domain.ProviderCloudflare, Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	status, raw, err := c.http.Do(ctx, domain.ProviderCloudflare, op, req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderCloudflare, Detail: fmt.Sprintf("status %d: %v", status, err)}
	}
	if !env.Success {
		code, message := 0, ""
		if len(env.Errors) > 0 {
			code, message = env.Errors[0].Code, env.Errors[0].Message
		}
		return nil, mapError(status, code, message, cc)
	}
	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return nil, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderCloudflare, Detail: err.Error()}
		}
	}
	return env.ResultInfo, nil
}

func toDomain(z zoneJSON) domain.ProviderDomain {
	status := domain.DomainUnknown
	switch {
	case z.Paused:
		status = domain.DomainPaused
	case z.Status == "active":
		status = domain.DomainActive
	case z.Status == "pending" || z.Status == "initializing":
		status = domain.DomainPending
	case z.Status == "moved" || z.Status == "deleted" || z.Status == "deactivated":
		status = domain.DomainError
	}
	return domain.ProviderDomain{
		ID:       z.ID,
		Name:     domain.NormalizeName(z.Name),
		Status:   status,
		Provider: domain.ProviderCloudflare,
	}
}

type srvData struct {
	Priority uint16 `json:"priority"`
	Weight   uint16 `json:"weight"`
	Port     uint16 `json:"port"`
	Target   string `json:"target"`
}

type caaData struct {
	Flags uint8  `json:"flags"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

func toRecord(r recordJSON) (domain.DnsRecord, error) {
	data := domain.RecordData{Type: domain.RecordType(r.Type)}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		data.Address = r.Content
	case domain.TypeCNAME:
		data.Target = domain.NormalizeName(r.Content)
	case domain.TypeMX:
		data.Exchange = domain.NormalizeName(r.Content)
		if r.Priority != nil {
			data.Priority = *r.Priority
		}
	case domain.TypeTXT:
		data.Text = r.Content
	case domain.TypeNS:
		data.Nameserver = domain.NormalizeName(r.Content)
	case domain.TypeSRV:
		var d srvData
		if err := json.Unmarshal(r.Data, &d); err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderCloudflare, Detail: "srv data: " + err.Error()}
		}
		data.Priority, data.Weight, data.Port = d.Priority, d.Weight, d.Port
		data.Target = domain.NormalizeName(d.Target)
	case domain.TypeCAA:
		var d caaData
		if err := json.Unmarshal(r.Data, &d); err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderCloudflare, Detail: "caa data: " + err.Error()}
		}
		data.Flags, data.Tag, data.Value = d.Flags, d.Tag, d.Value
	default:
		return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderCloudflare, Detail: fmt.Sprintf("unsupported record type %q", r.Type)}
	}

	return domain.DnsRecord{
		ID:        r.ID,
		ZoneID:    r.ZoneID,
		Name:      domain.ToRelative(r.Name, r.ZoneName),
		TTL:       r.TTL,
		Data:      data,
		Proxied:   r.Proxied,
		CreatedAt: r.Created,
		UpdatedAt: r.Modified,
	}, nil
}

type recordPayload struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Content  string  `json:"content,omitempty"`
	TTL      uint32  `json:"ttl"`
	Priority *uint16 `json:"priority,omitempty"`
	Proxied  *bool   `json:"proxied,omitempty"`
	Data     any     `json:"data,omitempty"`
}

func buildPayload(name string, ttl uint32, data domain.RecordData, proxied *bool) (*recordPayload, error) {
	if ttl != automaticTTL && ttl < minTTL {
		return nil, domain.ErrInvalidParameter(domain.ProviderCloudflare, "ttl",
			fmt.Sprintf("ttl must be %d (automatic) or >= %d", automaticTTL, minTTL))
	}

	p := &recordPayload{
		Type:    string(data.Type),
		Name:    name,
		TTL:     ttl,
		Proxied: proxied,
	}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		p.Content = data.Address
	case domain.TypeCNAME:
		p.Content = data.Target
	case domain.TypeMX:
		pr := data.Priority
		p.Content = data.Exchange
		p.Priority = &pr
	case domain.TypeTXT:
		p.Content = data.Text
	case domain.TypeNS:
		p.Content = data.Nameserver
	case domain.TypeSRV:
		p.Data = srvData{Priority: data.Priority, Weight: data.Weight, Port: data.Port, Target: data.Target}
	case domain.TypeCAA:
		p.Data = caaData{Flags: data.Flags, Tag: data.Tag, Value: data.Value}
	default:
		return nil, domain.ErrInvalidParameter(domain.ProviderCloudflare, "type", fmt.Sprintf("unsupported record type %q", data.Type))
	}
	return p, nil
}
