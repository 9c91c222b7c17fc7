// Package dnspod implements the provider contract against the DNSPod API
// (Tencent Cloud, TC3-HMAC-SHA256 signed JSON RPC). Zone IDs are domain
// names; DNSPod keys record operations by Domain.
package dnspod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

const (
	defaultEndpoint = "https://dnspod.tencentcloudapi.com"
	apiVersion      = "2021-03-23"

	maxPageSize = 100
	minTTL      = 600

	defaultRecordLine = "默认"
)

type Client struct {
	signer   *signer
	endpoint string
	http     *transport.Client
	logger   *slog.Logger
}

func New(creds domain.DnspodCredentials, httpc *transport.Client, logger *slog.Logger) *Client {
	return &Client{
		signer:   newSigner(creds.SecretID, creds.SecretKey),
		endpoint: defaultEndpoint,
		http:     httpc,
		logger:   logger,
	}
}

// SetEndpoint overrides the API endpoint. Tests only.
func (c *Client) SetEndpoint(u string) { c.endpoint = u }

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderDnspod }

type responseEnvelope struct {
	Response json.RawMessage `json:"Response"`
}

type apiError struct {
	Error *struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Error"`
}

type domainListResponse struct {
	DomainCountInfo struct {
		DomainTotal int `json:"DomainTotal"`
	} `json:"DomainCountInfo"`
	DomainList []domainJSON `json:"DomainList"`
}

type domainJSON struct {
	DomainID    uint64 `json:"DomainId"`
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	RecordCount *int   `json:"RecordCount,omitempty"`
}

type recordListResponse struct {
	RecordCountInfo struct {
		TotalCount int `json:"TotalCount"`
	} `json:"RecordCountInfo"`
	RecordList []recordJSON `json:"RecordList"`
}

type recordJSON struct {
	RecordID uint64  `json:"RecordId"`
	Name     string  `json:"Name"`
	Type     string  `json:"Type"`
	Value    string  `json:"Value"`
	TTL      uint32  `json:"TTL"`
	MX       *uint16 `json:"MX,omitempty"`
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	var out domainListResponse
	err := c.call(ctx, "validate_credentials", "DescribeDomainList",
		map[string]any{"Offset": 0, "Limit": 1}, &out, transport.CallContext{})
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

	var out domainListResponse
	err := c.call(ctx, "list_domains", "DescribeDomainList", map[string]any{
		"Offset": (params.Page - 1) * params.PageSize,
		"Limit":  params.PageSize,
	}, &out, transport.CallContext{})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.ProviderDomain]{
		Items:      make([]domain.ProviderDomain, 0, len(out.DomainList)),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: out.DomainCountInfo.DomainTotal,
	}
	for _, d := range out.DomainList {
		resp.Items = append(resp.Items, toDomain(d))
	}
	return resp, nil
}

func (c *Client) GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error) {
	var out struct {
		DomainInfo domainJSON `json:"DomainInfo"`
	}
	err := c.call(ctx, "get_domain", "DescribeDomain",
		map[string]any{"Domain": zoneID}, &out, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}
	// DescribeDomain reports the name under "Domain" in some revisions;
	// fall back to the requested zone when Name is absent.
	if out.DomainInfo.Name == "" {
		out.DomainInfo.Name = zoneID
	}
	d := toDomain(out.DomainInfo)
	return &d, nil
}

func (c *Client) ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	p := params.Pagination().Normalize(maxPageSize)

	args := map[string]any{
		"Domain": zoneID,
		"Offset": (p.Page - 1) * p.PageSize,
		"Limit":  p.PageSize,
	}
	if params.Keyword != "" {
		args["Keyword"] = params.Keyword
	}
	if params.RecordType != "" {
		args["RecordType"] = string(params.RecordType)
	}

	var out recordListResponse
	err := c.call(ctx, "list_records", "DescribeRecordList", args, &out, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.DnsRecord]{
		Items:      make([]domain.DnsRecord, 0, len(out.RecordList)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: out.RecordCountInfo.TotalCount,
	}
	for _, r := range out.RecordList {
		rec, err := toRecord(r, zoneID)
		if err != nil {
			c.logger.Warn("skipping unparseable record", "provider", "dnspod", "record_id", r.RecordID, "error", err)
			continue
		}
		resp.Items = append(resp.Items, rec)
	}
	return resp, nil
}

func (c *Client) CreateRecord(ctx context.Context, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error) {
	args, err := recordArgs(req.Name, req.TTL, req.Data)
	if err != nil {
		return nil, err
	}
	args["Domain"] = req.ZoneID

	var out struct {
		RecordID uint64 `json:"RecordId"`
	}
	err = c.call(ctx, "create_record", "CreateRecord", args, &out,
		transport.CallContext{Domain: req.ZoneID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}

	return &domain.DnsRecord{
		ID:     strconv.FormatUint(out.RecordID, 10),
		ZoneID: req.ZoneID,
		Name:   req.Name,
		TTL:    req.TTL,
		Data:   req.Data,
	}, nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	id, err := strconv.ParseUint(recordID, 10, 64)
	if err != nil {
		return nil, &domain.Error{Code: domain.CodeRecordNotFound, Provider: domain.ProviderDnspod,
			Detail: fmt.Sprintf("malformed record id %q", recordID)}
	}

	args, err := recordArgs(req.Name, req.TTL, req.Data)
	if err != nil {
		return nil, err
	}
	args["Domain"] = req.ZoneID
	args["RecordId"] = id

	var out struct {
		RecordID uint64 `json:"RecordId"`
	}
	err = c.call(ctx, "update_record", "ModifyRecord", args, &out,
		transport.CallContext{Domain: req.ZoneID, RecordID: recordID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}

	return &domain.DnsRecord{
		ID:     recordID,
		ZoneID: req.ZoneID,
		Name:   req.Name,
		TTL:    req.TTL,
		Data:   req.Data,
	}, nil
}

func (c *Client) DeleteRecord(ctx context.Context, recordID, zoneID string) error {
	id, err := strconv.ParseUint(recordID, 10, 64)
	if err != nil {
		return &domain.Error{Code: domain.CodeRecordNotFound, Provider: domain.ProviderDnspod,
			Detail: fmt.Sprintf("malformed record id %q", recordID)}
	}
	var out struct{}
	return c.call(ctx, "delete_record", "DeleteRecord",
		map[string]any{"Domain": zoneID, "RecordId": id}, &out,
		transport.CallContext{Domain: zoneID, RecordID: recordID})
}

func (c *Client) call(ctx context.Context, op, action string, args map[string]any, out any, cc transport.CallContext) error {
	body, err := json.Marshal(args)
	if err != nil {
		return &domain.Error{Code: domain.CodeSerializationError, Provider: domain.ProviderDnspod, Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return &domain.Error{Code: domain.CodeNetworkError, Provider: domain.ProviderDnspod, Detail: err.Error()}
	}
	c.signer.sign(req, action, apiVersion, body)

	status, raw, err := c.http.Do(ctx, domain.ProviderDnspod, op, req)
	if err != nil {
		return err
	}

	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Response) == 0 {
		return &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
			Detail: fmt.Sprintf("status %d: malformed response envelope", status)}
	}

	var apiErr apiError
	if err := json.Unmarshal(env.Response, &apiErr); err == nil && apiErr.Error != nil {
		return mapError(apiErr.Error.Code, apiErr.Error.Message, cc)
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod, Detail: err.Error()}
	}
	return nil
}

func toDomain(d domainJSON) domain.ProviderDomain {
	status := domain.DomainUnknown
	switch d.Status {
	case "ENABLE":
		status = domain.DomainActive
	case "PAUSE":
		status = domain.DomainPaused
	case "SPAM", "LOCK":
		status = domain.DomainError
	}
	return domain.ProviderDomain{
		ID:          domain.NormalizeName(d.Name),
		Name:        domain.NormalizeName(d.Name),
		Status:      status,
		RecordCount: d.RecordCount,
		Provider:    domain.ProviderDnspod,
	}
}

func toRecord(r recordJSON, zone string) (domain.DnsRecord, error) {
	data := domain.RecordData{Type: domain.RecordType(r.Type)}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		data.Address = r.Value
	case domain.TypeCNAME:
		data.Target = domain.NormalizeName(r.Value)
	case domain.TypeMX:
		data.Exchange = domain.NormalizeName(r.Value)
		if r.MX != nil {
			data.Priority = *r.MX
		}
	case domain.TypeTXT:
		data.Text = r.Value
	case domain.TypeNS:
		data.Nameserver = domain.NormalizeName(r.Value)
	case domain.TypeSRV:
		parts := strings.Fields(r.Value)
		if len(parts) != 4 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
				Detail: fmt.Sprintf("malformed SRV value %q", r.Value)}
		}
		prio, err1 := strconv.ParseUint(parts[0], 10, 16)
		weight, err2 := strconv.ParseUint(parts[1], 10, 16)
		port, err3 := strconv.ParseUint(parts[2], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
				Detail: fmt.Sprintf("malformed SRV value %q", r.Value)}
		}
		data.Priority, data.Weight, data.Port = uint16(prio), uint16(weight), uint16(port)
		data.Target = domain.NormalizeName(parts[3])
	case domain.TypeCAA:
		parts := strings.SplitN(r.Value, " ", 3)
		if len(parts) != 3 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
				Detail: fmt.Sprintf("malformed CAA value %q", r.Value)}
		}
		flags, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
				Detail: fmt.Sprintf("malformed CAA value %q", r.Value)}
		}
		data.Flags = uint8(flags)
		data.Tag = parts[1]
		data.Value = strings.Trim(parts[2], `"`)
	default:
		return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderDnspod,
			Detail: fmt.Sprintf("unsupported record type %q", r.Type)}
	}

	return domain.DnsRecord{
		ID:     strconv.FormatUint(r.RecordID, 10),
		ZoneID: zone,
		Name:   r.Name,
		TTL:    r.TTL,
		Data:   data,
	}, nil
}

func recordArgs(name string, ttl uint32, data domain.RecordData) (map[string]any, error) {
	if ttl < minTTL {
		return nil, domain.ErrInvalidParameter(domain.ProviderDnspod, "ttl",
			fmt.Sprintf("ttl must be >= %d", minTTL))
	}

	args := map[string]any{
		"SubDomain":  name,
		"RecordType": string(data.Type),
		"RecordLine": defaultRecordLine,
		"TTL":        ttl,
	}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		args["Value"] = data.Address
	case domain.TypeCNAME:
		args["Value"] = data.Target
	case domain.TypeMX:
		args["Value"] = data.Exchange
		args["MX"] = data.Priority
	case domain.TypeTXT:
		args["Value"] = data.Text
	case domain.TypeNS:
		args["Value"] = data.Nameserver
	case domain.TypeSRV:
		args["Value"] = fmt.Sprintf("%d %d %d %s", data.Priority, data.Weight, data.Port, data.Target)
	case domain.TypeCAA:
		args["Value"] = fmt.Sprintf("%d %s %q", data.Flags, data.Tag, data.Value)
	default:
		return nil, domain.ErrInvalidParameter(domain.ProviderDnspod, "type",
			fmt.Sprintf("unsupported record type %q", data.Type))
	}
	return args, nil
}
