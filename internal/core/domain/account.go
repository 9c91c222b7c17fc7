// Package domain contains the core business entities for dnsbridge: accounts,
// provider credentials, DNS records and the shared error taxonomy.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ProviderKind is the closed-set identifier of a cloud DNS backend.
type ProviderKind string

const (
	ProviderCloudflare  ProviderKind = "cloudflare"
	ProviderAliyun      ProviderKind = "aliyun"
	ProviderDnspod      ProviderKind = "dnspod"
	ProviderHuaweicloud ProviderKind = "huaweicloud"
)

// ParseProviderKind validates a provider tag coming from storage or user input.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(s) {
	case ProviderCloudflare, ProviderAliyun, ProviderDnspod, ProviderHuaweicloud:
		return ProviderKind(s), nil
	}
	return "", E(CodeValidationError, "unknown provider %q", s)
}

// AccountStatus tracks whether an account's provider binding is usable.
type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusError  AccountStatus = "error"
)

// FlexTime serializes as RFC 3339 UTC and deserializes from RFC 3339 strings
// or integer Unix timestamps. Integers above 10^11 are milliseconds,
// everything else seconds.
type FlexTime struct {
	time.Time
}

const millisThreshold = int64(100_000_000_000)

func NewFlexTime(t time.Time) FlexTime { return FlexTime{t.UTC()} }

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := time.Parse(time.RFC3339, s)
		if perr != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, perr)
		}
		t.Time = parsed.UTC()
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp must be RFC 3339 or unix integer: %s", data)
	}
	if n > millisThreshold {
		t.Time = time.UnixMilli(n).UTC()
	} else {
		t.Time = time.Unix(n, 0).UTC()
	}
	return nil
}

// Account binds a user-registered credential set to one cloud provider.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Provider     ProviderKind  `json:"provider"`
	Status       AccountStatus `json:"status,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    FlexTime      `json:"created_at"`
	UpdatedAt    FlexTime      `json:"updated_at"`
}

// MarkError flips the account into error state with a human-readable reason.
func (a *Account) MarkError(msg string) {
	a.Status = StatusError
	a.ErrorMessage = msg
}

// MarkActive clears any previous error state.
func (a *Account) MarkActive() {
	a.Status = StatusActive
	a.ErrorMessage = ""
}
