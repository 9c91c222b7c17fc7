package domain

import (
	"encoding/json"
	"fmt"
)

// DomainStatus is the normalized zone status across providers.
type DomainStatus string

const (
	DomainActive  DomainStatus = "active"
	DomainPaused  DomainStatus = "paused"
	DomainPending DomainStatus = "pending"
	DomainError   DomainStatus = "error"
	DomainUnknown DomainStatus = "unknown"
)

// ProviderDomain is a DNS zone as seen through the provider abstraction.
type ProviderDomain struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"` // FQDN without trailing dot
	Status      DomainStatus `json:"status"`
	RecordCount *int         `json:"record_count,omitempty"`
	Provider    ProviderKind `json:"provider"`
}

// RecordType enumerates the record kinds dnsbridge manages.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeMX    RecordType = "MX"
	TypeTXT   RecordType = "TXT"
	TypeNS    RecordType = "NS"
	TypeSRV   RecordType = "SRV"
	TypeCAA   RecordType = "CAA"
)

// RecordData is a tagged union over record payloads. Type selects which
// fields are meaningful; the JSON codec emits only the fields of the active
// variant and rejects unknown tags.
type RecordData struct {
	Type RecordType

	Address    string // A, AAAA
	Target     string // CNAME, SRV
	Priority   uint16 // MX, SRV
	Exchange   string // MX
	Text       string // TXT
	Nameserver string // NS
	Weight     uint16 // SRV
	Port       uint16 // SRV
	Flags      uint8  // CAA
	Tag        string // CAA
	Value      string // CAA
}

type recordDataJSON struct {
	Type       RecordType `json:"type"`
	Address    string     `json:"address,omitempty"`
	Target     string     `json:"target,omitempty"`
	Priority   *uint16    `json:"priority,omitempty"`
	Exchange   string     `json:"exchange,omitempty"`
	Text       string     `json:"text,omitempty"`
	Nameserver string     `json:"nameserver,omitempty"`
	Weight     *uint16    `json:"weight,omitempty"`
	Port       *uint16    `json:"port,omitempty"`
	Flags      *uint8     `json:"flags,omitempty"`
	Tag        string     `json:"tag,omitempty"`
	Value      string     `json:"value,omitempty"`
}

func (d RecordData) MarshalJSON() ([]byte, error) {
	out := recordDataJSON{Type: d.Type}
	switch d.Type {
	case TypeA, TypeAAAA:
		out.Address = d.Address
	case TypeCNAME:
		out.Target = d.Target
	case TypeMX:
		p := d.Priority
		out.Priority = &p
		out.Exchange = d.Exchange
	case TypeTXT:
		out.Text = d.Text
	case TypeNS:
		out.Nameserver = d.Nameserver
	case TypeSRV:
		p, w, port := d.Priority, d.Weight, d.Port
		out.Priority, out.Weight, out.Port = &p, &w, &port
		out.Target = d.Target
	case TypeCAA:
		f := d.Flags
		out.Flags = &f
		out.Tag = d.Tag
		out.Value = d.Value
	default:
		return nil, E(CodeSerializationError, "unknown record type %q", d.Type)
	}
	return json.Marshal(out)
}

func (d *RecordData) UnmarshalJSON(data []byte) error {
	var raw recordDataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rd := RecordData{Type: raw.Type}
	switch raw.Type {
	case TypeA, TypeAAAA:
		rd.Address = raw.Address
	case TypeCNAME:
		rd.Target = raw.Target
	case TypeMX:
		if raw.Priority != nil {
			rd.Priority = *raw.Priority
		}
		rd.Exchange = raw.Exchange
	case TypeTXT:
		rd.Text = raw.Text
	case TypeNS:
		rd.Nameserver = raw.Nameserver
	case TypeSRV:
		if raw.Priority != nil {
			rd.Priority = *raw.Priority
		}
		if raw.Weight != nil {
			rd.Weight = *raw.Weight
		}
		if raw.Port != nil {
			rd.Port = *raw.Port
		}
		rd.Target = raw.Target
	case TypeCAA:
		if raw.Flags != nil {
			rd.Flags = *raw.Flags
		}
		rd.Tag = raw.Tag
		rd.Value = raw.Value
	default:
		return E(CodeParseError, "unknown record type %q", raw.Type)
	}
	*d = rd
	return nil
}

// Content renders the payload in zone-file value form, the representation
// most provider APIs take as the record value.
func (d RecordData) Content() string {
	switch d.Type {
	case TypeA, TypeAAAA:
		return d.Address
	case TypeCNAME:
		return d.Target
	case TypeMX:
		return d.Exchange
	case TypeTXT:
		return d.Text
	case TypeNS:
		return d.Nameserver
	case TypeSRV:
		return fmt.Sprintf("%d %d %s", d.Weight, d.Port, d.Target)
	case TypeCAA:
		return fmt.Sprintf("%d %s %q", d.Flags, d.Tag, d.Value)
	}
	return ""
}

// DnsRecord is a single resource record in provider-agnostic form. Name is
// relative to the zone, with "@" denoting the apex.
type DnsRecord struct {
	ID        string     `json:"id"`
	ZoneID    string     `json:"zone_id"`
	Name      string     `json:"name"`
	TTL       uint32     `json:"ttl"`
	Data      RecordData `json:"data"`
	Proxied   *bool      `json:"proxied,omitempty"` // Cloudflare only
	CreatedAt *FlexTime  `json:"created_at,omitempty"`
	UpdatedAt *FlexTime  `json:"updated_at,omitempty"`
}

// PaginationParams selects one page of a listing. Page is 1-based.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps the page to 1-based and the size into (0, max].
func (p PaginationParams) Normalize(maxPageSize int) PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// RecordQueryParams filters a record listing.
type RecordQueryParams struct {
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Keyword    string     `json:"keyword,omitempty"`
	RecordType RecordType `json:"record_type,omitempty"`
}

// Pagination returns the embedded page selector.
func (q RecordQueryParams) Pagination() PaginationParams {
	return PaginationParams{Page: q.Page, PageSize: q.PageSize}
}

// PaginatedResponse is one page of items plus the provider-reported total.
type PaginatedResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CreateDnsRecordRequest creates a record in the given zone.
type CreateDnsRecordRequest struct {
	ZoneID  string     `json:"zone_id"`
	Name    string     `json:"name"`
	TTL     uint32     `json:"ttl"`
	Data    RecordData `json:"data"`
	Proxied *bool      `json:"proxied,omitempty"`
}

// UpdateDnsRecordRequest replaces the payload of an existing record.
type UpdateDnsRecordRequest struct {
	ZoneID  string     `json:"zone_id"`
	Name    string     `json:"name"`
	TTL     uint32     `json:"ttl"`
	Data    RecordData `json:"data"`
	Proxied *bool      `json:"proxied,omitempty"`
}
