package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CloudflareCredentials authenticates with a scoped API token.
type CloudflareCredentials struct {
	APIToken string `json:"api_token"`
}

// AliyunCredentials is an AccessKey pair for the Alibaba Cloud OpenAPI.
type AliyunCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	AccessKeySecret string `json:"access_key_secret"`
}

// DnspodCredentials is a Tencent Cloud API secret pair.
type DnspodCredentials struct {
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
}

// HuaweicloudCredentials is a Huawei Cloud AK/SK pair.
type HuaweicloudCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// ProviderCredentials is a tagged union: exactly one variant is set and it
// must match Provider. The JSON form is flat, with an explicit "provider"
// tag so the decoder knows which variant to build:
//
//	{"provider":"aliyun","access_key_id":"...","access_key_secret":"..."}
type ProviderCredentials struct {
	Provider    ProviderKind
	Cloudflare  *CloudflareCredentials
	Aliyun      *AliyunCredentials
	Dnspod      *DnspodCredentials
	Huaweicloud *HuaweicloudCredentials
}

// credentialFields lists the required map keys per provider, in stable order.
var credentialFields = map[ProviderKind][]string{
	ProviderCloudflare:  {"api_token"},
	ProviderAliyun:      {"access_key_id", "access_key_secret"},
	ProviderDnspod:      {"secret_id", "secret_key"},
	ProviderHuaweicloud: {"access_key_id", "secret_access_key"},
}

// CredentialsFromMap reconstructs typed credentials from an untyped key-value
// map, the shape used by the legacy store format and by export files.
func CredentialsFromMap(provider ProviderKind, m map[string]string) (ProviderCredentials, error) {
	missing := map[string]string{}
	for _, f := range credentialFields[provider] {
		if m[f] == "" {
			missing[f] = "required"
		}
	}
	if len(missing) > 0 {
		return ProviderCredentials{}, ErrCredentialValidation(missing)
	}

	c := ProviderCredentials{Provider: provider}
	switch provider {
	case ProviderCloudflare:
		c.Cloudflare = &CloudflareCredentials{APIToken: m["api_token"]}
	case ProviderAliyun:
		c.Aliyun = &AliyunCredentials{AccessKeyID: m["access_key_id"], AccessKeySecret: m["access_key_secret"]}
	case ProviderDnspod:
		c.Dnspod = &DnspodCredentials{SecretID: m["secret_id"], SecretKey: m["secret_key"]}
	case ProviderHuaweicloud:
		c.Huaweicloud = &HuaweicloudCredentials{AccessKeyID: m["access_key_id"], SecretAccessKey: m["secret_access_key"]}
	default:
		return ProviderCredentials{}, E(CodeValidationError, "unknown provider %q", provider)
	}
	return c, nil
}

// ToMap flattens the active variant into the legacy key-value shape used by
// export files and the v1 store format.
func (c ProviderCredentials) ToMap() map[string]string {
	m := map[string]string{}
	switch c.Provider {
	case ProviderCloudflare:
		if c.Cloudflare != nil {
			m["api_token"] = c.Cloudflare.APIToken
		}
	case ProviderAliyun:
		if c.Aliyun != nil {
			m["access_key_id"] = c.Aliyun.AccessKeyID
			m["access_key_secret"] = c.Aliyun.AccessKeySecret
		}
	case ProviderDnspod:
		if c.Dnspod != nil {
			m["secret_id"] = c.Dnspod.SecretID
			m["secret_key"] = c.Dnspod.SecretKey
		}
	case ProviderHuaweicloud:
		if c.Huaweicloud != nil {
			m["access_key_id"] = c.Huaweicloud.AccessKeyID
			m["secret_access_key"] = c.Huaweicloud.SecretAccessKey
		}
	}
	return m
}

// Validate checks that exactly one variant is populated, that it matches the
// provider tag, and that no required field is empty.
func (c ProviderCredentials) Validate() error {
	if _, err := ParseProviderKind(string(c.Provider)); err != nil {
		return err
	}

	set := 0
	for _, v := range []bool{c.Cloudflare != nil, c.Aliyun != nil, c.Dnspod != nil, c.Huaweicloud != nil} {
		if v {
			set++
		}
	}
	if set != 1 {
		return ErrCredentialValidation(map[string]string{"provider": "exactly one credential variant must be set"})
	}

	fields := map[string]string{}
	for k, v := range c.ToMap() {
		if v == "" {
			fields[k] = "required"
		}
	}
	if len(c.ToMap()) == 0 {
		return ErrCredentialValidation(map[string]string{"provider": fmt.Sprintf("credentials do not match provider tag %q", c.Provider)})
	}
	if len(fields) > 0 {
		return ErrCredentialValidation(fields)
	}
	return nil
}

func (c ProviderCredentials) MarshalJSON() ([]byte, error) {
	m := c.ToMap()
	if len(m) == 0 {
		return nil, E(CodeSerializationError, "credentials for %q have no active variant", c.Provider)
	}
	out := map[string]string{"provider": string(c.Provider)}
	for k, v := range m {
		out[k] = v
	}
	return json.Marshal(out)
}

func (c *ProviderCredentials) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tag, ok := raw["provider"]
	if !ok {
		return E(CodeParseError, "credentials missing provider tag")
	}
	kind, err := ParseProviderKind(tag)
	if err != nil {
		return E(CodeParseError, "credentials carry unknown provider tag %q", tag)
	}
	delete(raw, "provider")
	parsed, err := CredentialsFromMap(kind, raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Redacted returns a single-line description safe for logs.
func (c ProviderCredentials) Redacted() string {
	keys := make([]string, 0, len(c.ToMap()))
	for k := range c.ToMap() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s%v", c.Provider, keys)
}
