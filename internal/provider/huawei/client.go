// Package huawei implements the provider contract against the Huawei Cloud
// DNS REST API with SDK-HMAC-SHA256 request signing. Huawei models records
// as record sets; each set maps to one provider-agnostic record whose value
// is the set's first entry.
package huawei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

const (
	defaultEndpoint = "https://dns.myhuaweicloud.com"

	maxPageSize = 500
)

type Client struct {
	signer   *signer
	endpoint string
	http     *transport.Client
	logger   *slog.Logger
}

func New(creds domain.HuaweicloudCredentials, httpc *transport.Client, logger *slog.Logger) *Client {
	return &Client{
		signer:   newSigner(creds.AccessKeyID, creds.SecretAccessKey),
		endpoint: defaultEndpoint,
		http:     httpc,
		logger:   logger,
	}
}

// SetEndpoint overrides the API endpoint. Tests only.
func (c *Client) SetEndpoint(u string) { c.endpoint = u }

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderHuaweicloud }

type apiError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ErrCode  string `json:"error_code"` // API gateway error shape
	ErrMsg   string `json:"error_msg"`
}

type zoneListResponse struct {
	Zones    []zoneJSON `json:"zones"`
	Metadata *struct {
		TotalCount int `json:"total_count"`
	} `json:"metadata"`
}

type zoneJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	RecordNum *int   `json:"record_num,omitempty"`
}

type recordSetListResponse struct {
	Recordsets []recordSetJSON `json:"recordsets"`
	Metadata   *struct {
		TotalCount int `json:"total_count"`
	} `json:"metadata"`
}

type recordSetJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ZoneID   string   `json:"zone_id"`
	ZoneName string   `json:"zone_name"`
	Type     string   `json:"type"`
	TTL      uint32   `json:"ttl"`
	Records  []string `json:"records"`
	Status   string   `json:"status"`
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	q := url.Values{}
	q.Set("limit", "1")
	var out zoneListResponse
	err := c.call(ctx, "validate_credentials", http.MethodGet, "/v2/zones", q, nil, &out, transport.CallContext{})
	if err != nil {
		if domain.IsCode(err, domain.CodeInvalidCredentials) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) ListDomains(ctx context.Context, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error) {
	params = params.Normalize(maxPageSize)

	q := url.Values{}
	q.Set("limit", strconv.Itoa(params.PageSize))
	q.Set("offset", strconv.Itoa((params.Page-1)*params.PageSize))

	var out zoneListResponse
	err := c.call(ctx, "list_domains", http.MethodGet, "/v2/zones", q, nil, &out, transport.CallContext{})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.ProviderDomain]{
		Items:      make([]domain.ProviderDomain, 0, len(out.Zones)),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: len(out.Zones),
	}
	if out.Metadata != nil {
		resp.TotalCount = out.Metadata.TotalCount
	}
	for _, z := range out.Zones {
		resp.Items = append(resp.Items, toDomain(z))
	}
	return resp, nil
}

func (c *Client) GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error) {
	// ShowPublicZone's response shape is only partially stable across API
	// revisions; parse the fields used here leniently.
	var z zoneJSON
	err := c.call(ctx, "get_domain", http.MethodGet, "/v2/zones/"+url.PathEscape(zoneID), nil, nil, &z, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}
	d := toDomain(z)
	return &d, nil
}

func (c *Client) ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	p := params.Pagination().Normalize(maxPageSize)

	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.PageSize))
	q.Set("offset", strconv.Itoa((p.Page-1)*p.PageSize))
	if params.Keyword != "" {
		q.Set("name", params.Keyword)
	}
	if params.RecordType != "" {
		q.Set("type", string(params.RecordType))
	}

	var out recordSetListResponse
	err := c.call(ctx, "list_records", http.MethodGet, "/v2/zones/"+url.PathEscape(zoneID)+"/recordsets", q, nil, &out, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.DnsRecord]{
		Items:      make([]domain.DnsRecord, 0, len(out.Recordsets)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: len(out.Recordsets),
	}
	if out.Metadata != nil {
		resp.TotalCount = out.Metadata.TotalCount
	}
	for _, rs := range out.Recordsets {
		rec, err := toRecord(rs)
		if err != nil {
			c.logger.Warn("skipping unparseable record set", "provider", "huaweicloud", "recordset_id", rs.ID, "error", err)
			continue
		}
		resp.Items = append(resp.Items, rec)
	}
	return resp, nil
}

func (c *Client) CreateRecord(ctx context.Context, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error) {
	zone, err := c.GetDomain(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}

	payload, err := buildPayload(req.Name, zone.Name, req.TTL, req.Data)
	if err != nil {
		return nil, err
	}

	var out recordSetJSON
	err = c.call(ctx, "create_record", http.MethodPost, "/v2/zones/"+url.PathEscape(req.ZoneID)+"/recordsets", nil, payload, &out,
		transport.CallContext{Domain: req.ZoneID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}
	if out.ZoneName == "" {
		out.ZoneName = zone.Name
	}
	rec, err := toRecord(out)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	zone, err := c.GetDomain(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}

	payload, err := buildPayload(req.Name, zone.Name, req.TTL, req.Data)
	if err != nil {
		return nil, err
	}

	var out recordSetJSON
	err = c.call(ctx, "update_record", http.MethodPut, "/v2/zones/"+url.PathEscape(req.ZoneID)+"/recordsets/"+url.PathEscape(recordID), nil, payload, &out,
		transport.CallContext{Domain: req.ZoneID, RecordID: recordID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}
	if out.ZoneName == "" {
		out.ZoneName = zone.Name
	}
	rec, err := toRecord(out)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) DeleteRecord(ctx context.Context, recordID, zoneID string) error {
	var out json.RawMessage
	return c.call(ctx, "delete_record", http.MethodDelete, "/v2/zones/"+url.PathEscape(zoneID)+"/recordsets/"+url.PathEscape(recordID), nil, nil, &out,
		transport.CallContext{Domain: zoneID, RecordID: recordID})
}

func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, payload any, out any, cc transport.CallContext) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return &domain.Error{Code: domain.CodeSerializationError, Provider: domain.ProviderHuaweicloud, Detail: err.Error()}
		}
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return &domain.Error{Code: domain.CodeNetworkError, Provider: domain.ProviderHuaweicloud, Detail: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.signer.sign(req, body)

	status, raw, err := c.http.Do(ctx, domain.ProviderHuaweicloud, op, req)
	if err != nil {
		return err
	}

	if status >= 400 {
		var apiErr apiError
		if jerr := json.Unmarshal(raw, &apiErr); jerr == nil {
			code, message := apiErr.Code, apiErr.Message
			if code == "" {
				code, message = apiErr.ErrCode, apiErr.ErrMsg
			}
			if code != "" {
				return mapError(status, code, message, cc)
			}
		}
		return mapError(status, "", string(raw), cc)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud, Detail: err.Error()}
		}
	}
	return nil
}

func toDomain(z zoneJSON) domain.ProviderDomain {
	status := domain.DomainUnknown
	switch z.Status {
	case "ACTIVE":
		status = domain.DomainActive
	case "PENDING_CREATE", "PENDING_UPDATE", "PENDING_DELETE":
		status = domain.DomainPending
	case "FREEZE", "DISABLE":
		status = domain.DomainPaused
	case "ERROR":
		status = domain.DomainError
	}
	return domain.ProviderDomain{
		ID:          z.ID,
		Name:        domain.NormalizeName(z.Name),
		Status:      status,
		RecordCount: z.RecordNum,
		Provider:    domain.ProviderHuaweicloud,
	}
}

func toRecord(rs recordSetJSON) (domain.DnsRecord, error) {
	if len(rs.Records) == 0 {
		return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
			Detail: fmt.Sprintf("record set %s has no values", rs.ID)}
	}
	value := rs.Records[0]

	data := domain.RecordData{Type: domain.RecordType(rs.Type)}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		data.Address = value
	case domain.TypeCNAME:
		data.Target = domain.NormalizeName(value)
	case domain.TypeMX:
		// Value format: "priority exchange."
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed MX value %q", value)}
		}
		prio, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed MX value %q", value)}
		}
		data.Priority = uint16(prio)
		data.Exchange = domain.NormalizeName(parts[1])
	case domain.TypeTXT:
		data.Text = strings.Trim(value, `"`)
	case domain.TypeNS:
		data.Nameserver = domain.NormalizeName(value)
	case domain.TypeSRV:
		parts := strings.Fields(value)
		if len(parts) != 4 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed SRV value %q", value)}
		}
		prio, err1 := strconv.ParseUint(parts[0], 10, 16)
		weight, err2 := strconv.ParseUint(parts[1], 10, 16)
		port, err3 := strconv.ParseUint(parts[2], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed SRV value %q", value)}
		}
		data.Priority, data.Weight, data.Port = uint16(prio), uint16(weight), uint16(port)
		data.Target = domain.NormalizeName(parts[3])
	case domain.TypeCAA:
		parts := strings.SplitN(value, " ", 3)
		if len(parts) != 3 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed CAA value %q", value)}
		}
		flags, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
				Detail: fmt.Sprintf("malformed CAA value %q", value)}
		}
		data.Flags = uint8(flags)
		data.Tag = parts[1]
		data.Value = strings.Trim(parts[2], `"`)
	default:
		return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderHuaweicloud,
			Detail: fmt.Sprintf("unsupported record type %q", rs.Type)}
	}

	return domain.DnsRecord{
		ID:     rs.ID,
		ZoneID: rs.ZoneID,
		Name:   domain.ToRelative(rs.Name, rs.ZoneName),
		TTL:    rs.TTL,
		Data:   data,
	}, nil
}

type recordSetPayload struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	TTL     uint32   `json:"ttl"`
	Records []string `json:"records"`
}

func buildPayload(name, zoneName string, ttl uint32, data domain.RecordData) (*recordSetPayload, error) {
	full := domain.ToFull(name, zoneName) + "."

	p := &recordSetPayload{
		Name: full,
		Type: string(data.Type),
		TTL:  ttl,
	}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		p.Records = []string{data.Address}
	case domain.TypeCNAME:
		p.Records = []string{data.Target + "."}
	case domain.TypeMX:
		p.Records = []string{fmt.Sprintf("%d %s.", data.Priority, data.Exchange)}
	case domain.TypeTXT:
		p.Records = []string{strconv.Quote(data.Text)}
	case domain.TypeNS:
		p.Records = []string{data.Nameserver + "."}
	case domain.TypeSRV:
		p.Records = []string{fmt.Sprintf("%d %d %d %s.", data.Priority, data.Weight, data.Port, data.Target)}
	case domain.TypeCAA:
		p.Records = []string{fmt.Sprintf("%d %s %q", data.Flags, data.Tag, data.Value)}
	default:
		return nil, domain.ErrInvalidParameter(domain.ProviderHuaweicloud, "type",
			fmt.Sprintf("unsupported record type %q", data.Type))
	}
	return p, nil
}
