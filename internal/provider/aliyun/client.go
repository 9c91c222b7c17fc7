// Package aliyun implements the provider contract against the Alibaba Cloud
// DNS (alidns) RPC API with ACS3-HMAC-SHA256 request signing. Zone IDs are
// the domain names themselves; the alidns API keys records by DomainName.
package aliyun

import (
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
	defaultEndpoint = "https://alidns.aliyuncs.com"
	apiVersion      = "2015-01-09"

	maxPageSize = 100
	minTTL      = 600
)

type Client struct {
	signer   *signer
	endpoint string
	http     *transport.Client
	logger   *slog.Logger
}

func New(creds domain.AliyunCredentials, httpc *transport.Client, logger *slog.Logger) *Client {
	return &Client{
		signer:   newSigner(creds.AccessKeyID, creds.AccessKeySecret),
		endpoint: defaultEndpoint,
		http:     httpc,
		logger:   logger,
	}
}

// SetEndpoint overrides the API endpoint. Tests only.
func (c *Client) SetEndpoint(u string) { c.endpoint = u }

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderAliyun }

type apiError struct {
	Code      string `json:"Code"`
	Message   string `json:"Message"`
	RequestID string `json:"RequestId"`
}

type describeDomainsResponse struct {
	TotalCount int `json:"TotalCount"`
	Domains    struct {
		Domain []domainJSON `json:"Domain"`
	} `json:"Domains"`
}

type domainJSON struct {
	DomainID    string `json:"DomainId"`
	DomainName  string `json:"DomainName"`
	RecordCount *int   `json:"RecordCount,omitempty"`
}

type describeRecordsResponse struct {
	TotalCount    int `json:"TotalCount"`
	DomainRecords struct {
		Record []recordJSON `json:"Record"`
	} `json:"DomainRecords"`
}

type recordJSON struct {
	RecordID string  `json:"RecordId"`
	RR       string  `json:"RR"`
	Type     string  `json:"Type"`
	Value    string  `json:"Value"`
	TTL      uint32  `json:"TTL"`
	Priority *uint16 `json:"Priority,omitempty"`
	Status   string  `json:"Status"`
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	var out describeDomainsResponse
	err := c.call(ctx, "validate_credentials", "DescribeDomains",
		map[string]string{"PageNumber": "1", "PageSize": "1"}, &out, transport.CallContext{})
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

	var out describeDomainsResponse
	err := c.call(ctx, "list_domains", "DescribeDomains", map[string]string{
		"PageNumber": strconv.Itoa(params.Page),
		"PageSize":   strconv.Itoa(params.PageSize),
	}, &out, transport.CallContext{})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.ProviderDomain]{
		Items:      make([]domain.ProviderDomain, 0, len(out.Domains.Domain)),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: out.TotalCount,
	}
	for _, d := range out.Domains.Domain {
		resp.Items = append(resp.Items, toDomain(d))
	}
	return resp, nil
}

func (c *Client) GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error) {
	// DescribeDomainInfo's exact response shape varies between API
	// revisions; only the fields used here are parsed, leniently.
	var out domainJSON
	err := c.call(ctx, "get_domain", "DescribeDomainInfo",
		map[string]string{"DomainName": zoneID}, &out, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}
	d := toDomain(out)
	return &d, nil
}

func (c *Client) ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	p := params.Pagination().Normalize(maxPageSize)

	args := map[string]string{
		"DomainName": zoneID,
		"PageNumber": strconv.Itoa(p.Page),
		"PageSize":   strconv.Itoa(p.PageSize),
	}
	if params.Keyword != "" {
		args["RRKeyWord"] = params.Keyword
	}
	if params.RecordType != "" {
		args["Type"] = string(params.RecordType)
	}

	var out describeRecordsResponse
	err := c.call(ctx, "list_records", "DescribeDomainRecords", args, &out, transport.CallContext{Domain: zoneID})
	if err != nil {
		return nil, err
	}

	resp := &domain.PaginatedResponse[domain.DnsRecord]{
		Items:      make([]domain.DnsRecord, 0, len(out.DomainRecords.Record)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: out.TotalCount,
	}
	for _, r := range out.DomainRecords.Record {
		rec, err := toRecord(r, zoneID)
		if err != nil {
			c.logger.Warn("skipping unparseable record", "provider", "aliyun", "record_id", r.RecordID, "error", err)
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
	args["DomainName"] = req.ZoneID

	var out struct {
		RecordID string `json:"RecordId"`
	}
	err = c.call(ctx, "create_record", "AddDomainRecord", args, &out,
		transport.CallContext{Domain: req.ZoneID, RecordName: req.Name})
	if err != nil {
		return nil, err
	}

	return &domain.DnsRecord{
		ID:     out.RecordID,
		ZoneID: req.ZoneID,
		Name:   req.Name,
		TTL:    req.TTL,
		Data:   req.Data,
	}, nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	args, err := recordArgs(req.Name, req.TTL, req.Data)
	if err != nil {
		return nil, err
	}
	args["RecordId"] = recordID

	var out struct {
		RecordID string `json:"RecordId"`
	}
	err = c.call(ctx, "update_record", "UpdateDomainRecord", args, &out,
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
	var out struct {
		RecordID string `json:"RecordId"`
	}
	return c.call(ctx, "delete_record", "DeleteDomainRecord",
		map[string]string{"RecordId": recordID}, &out,
		transport.CallContext{Domain: zoneID, RecordID: recordID})
}

// call performs one signed RPC invocation. Business parameters travel in the
// query string; the body is empty.
func (c *Client) call(ctx context.Context, op, action string, params map[string]string, out any, cc transport.CallContext) error {
	query := canonicalQuery(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/?"+query, nil)
	if err != nil {
		return &domain.Error{Code: domain.CodeNetworkError, Provider: domain.ProviderAliyun, Detail: err.Error()}
	}
	c.signer.sign(req, action, apiVersion, query)

	status, body, err := c.http.Do(ctx, domain.ProviderAliyun, op, req)
	if err != nil {
		return err
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return mapError(apiErr.Code, apiErr.Message, cc)
	}
	if status >= 400 {
		return &domain.Error{Code: domain.CodeAPIError, Provider: domain.ProviderAliyun,
			Detail: fmt.Sprintf("status %d: %s", status, body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun, Detail: err.Error()}
	}
	return nil
}

func toDomain(d domainJSON) domain.ProviderDomain {
	return domain.ProviderDomain{
		ID:          d.DomainID,
		Name:        domain.NormalizeName(d.DomainName),
		Status:      domain.DomainActive,
		RecordCount: d.RecordCount,
		Provider:    domain.ProviderAliyun,
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
		if r.Priority != nil {
			data.Priority = *r.Priority
		}
	case domain.TypeTXT:
		data.Text = r.Value
	case domain.TypeNS:
		data.Nameserver = domain.NormalizeName(r.Value)
	case domain.TypeSRV:
		// Value format: "priority weight port target"
		parts := strings.Fields(r.Value)
		if len(parts) != 4 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun,
				Detail: fmt.Sprintf("malformed SRV value %q", r.Value)}
		}
		prio, err1 := strconv.ParseUint(parts[0], 10, 16)
		weight, err2 := strconv.ParseUint(parts[1], 10, 16)
		port, err3 := strconv.ParseUint(parts[2], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun,
				Detail: fmt.Sprintf("malformed SRV value %q", r.Value)}
		}
		data.Priority, data.Weight, data.Port = uint16(prio), uint16(weight), uint16(port)
		data.Target = domain.NormalizeName(parts[3])
	case domain.TypeCAA:
		// Value format: `flags tag "value"`
		parts := strings.SplitN(r.Value, " ", 3)
		if len(parts) != 3 {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun,
				Detail: fmt.Sprintf("malformed CAA value %q", r.Value)}
		}
		flags, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun,
				Detail: fmt.Sprintf("malformed CAA value %q", r.Value)}
		}
		data.Flags = uint8(flags)
		data.Tag = parts[1]
		data.Value = strings.Trim(parts[2], `"`)
	default:
		return domain.DnsRecord{}, &domain.Error{Code: domain.CodeParseError, Provider: domain.ProviderAliyun,
			Detail: fmt.Sprintf("unsupported record type %q", r.Type)}
	}

	return domain.DnsRecord{
		ID:     r.RecordID,
		ZoneID: zone,
		Name:   r.RR,
		TTL:    r.TTL,
		Data:   data,
	}, nil
}

// recordArgs converts the provider-agnostic record payload into alidns RPC
// parameters.
func recordArgs(name string, ttl uint32, data domain.RecordData) (map[string]string, error) {
	if ttl < minTTL {
		return nil, domain.ErrInvalidParameter(domain.ProviderAliyun, "ttl",
			fmt.Sprintf("ttl must be >= %d", minTTL))
	}

	args := map[string]string{
		"RR":   name,
		"Type": string(data.Type),
		"TTL":  strconv.FormatUint(uint64(ttl), 10),
	}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		args["Value"] = data.Address
	case domain.TypeCNAME:
		args["Value"] = data.Target
	case domain.TypeMX:
		args["Value"] = data.Exchange
		args["Priority"] = strconv.FormatUint(uint64(data.Priority), 10)
	case domain.TypeTXT:
		args["Value"] = data.Text
	case domain.TypeNS:
		args["Value"] = data.Nameserver
	case domain.TypeSRV:
		args["Value"] = fmt.Sprintf("%d %d %d %s", data.Priority, data.Weight, data.Port, data.Target)
	case domain.TypeCAA:
		args["Value"] = fmt.Sprintf("%d %s %q", data.Flags, data.Tag, data.Value)
	default:
		return nil, domain.ErrInvalidParameter(domain.ProviderAliyun, "type",
			fmt.Sprintf("unsupported record type %q", data.Type))
	}
	return args, nil
}
