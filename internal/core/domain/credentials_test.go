package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsFromMap(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderKind
		input    map[string]string
		wantErr  bool
		missing  []string
	}{
		{
			name:     "cloudflare complete",
			provider: ProviderCloudflare,
			input:    map[string]string{"api_token": "tok"},
		},
		{
			name:     "aliyun complete",
			provider: ProviderAliyun,
			input:    map[string]string{"access_key_id": "id", "access_key_secret": "sec"},
		},
		{
			name:     "dnspod complete",
			provider: ProviderDnspod,
			input:    map[string]string{"secret_id": "id", "secret_key": "key"},
		},
		{
			name:     "huaweicloud complete",
			provider: ProviderHuaweicloud,
			input:    map[string]string{"access_key_id": "ak", "secret_access_key": "sk"},
		},
		{
			name:     "missing field",
			provider: ProviderAliyun,
			input:    map[string]string{"access_key_id": "id"},
			wantErr:  true,
			missing:  []string{"access_key_secret"},
		},
		{
			name:     "empty value counts as missing",
			provider: ProviderCloudflare,
			input:    map[string]string{"api_token": ""},
			wantErr:  true,
			missing:  []string{"api_token"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CredentialsFromMap(tt.provider, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var derr *Error
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, CodeCredentialValidation, derr.Code)
				for _, f := range tt.missing {
					assert.Contains(t, derr.Fields, f)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, c.Provider)
			assert.NoError(t, c.Validate())
			assert.Equal(t, tt.input, c.ToMap())
		})
	}
}

func TestCredentialsFromMapUnknownProvider(t *testing.T) {
	_, err := CredentialsFromMap("route53", map[string]string{"x": "y"})
	assert.Error(t, err)
}

func TestCredentialsValidate(t *testing.T) {
	t.Run("no variant set", func(t *testing.T) {
		c := ProviderCredentials{Provider: ProviderCloudflare}
		assert.True(t, IsCode(c.Validate(), CodeCredentialValidation))
	})

	t.Run("two variants set", func(t *testing.T) {
		c := ProviderCredentials{
			Provider:   ProviderCloudflare,
			Cloudflare: &CloudflareCredentials{APIToken: "t"},
			Aliyun:     &AliyunCredentials{AccessKeyID: "a", AccessKeySecret: "b"},
		}
		assert.True(t, IsCode(c.Validate(), CodeCredentialValidation))
	})

	t.Run("variant does not match tag", func(t *testing.T) {
		c := ProviderCredentials{
			Provider: ProviderCloudflare,
			Aliyun:   &AliyunCredentials{AccessKeyID: "a", AccessKeySecret: "b"},
		}
		assert.True(t, IsCode(c.Validate(), CodeCredentialValidation))
	})

	t.Run("unknown tag", func(t *testing.T) {
		c := ProviderCredentials{Provider: "route53"}
		assert.Error(t, c.Validate())
	})

	t.Run("empty field", func(t *testing.T) {
		c := ProviderCredentials{
			Provider: ProviderDnspod,
			Dnspod:   &DnspodCredentials{SecretID: "id"},
		}
		err := c.Validate()
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Fields, "secret_key")
	})
}

func TestCredentialsJSONRoundTrip(t *testing.T) {
	c := ProviderCredentials{
		Provider: ProviderHuaweicloud,
		Huaweicloud: &HuaweicloudCredentials{
			AccessKeyID:     "AK",
			SecretAccessKey: "SK",
		},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	// Flat object with an explicit tag.
	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, map[string]string{
		"provider":          "huaweicloud",
		"access_key_id":     "AK",
		"secret_access_key": "SK",
	}, flat)

	var back ProviderCredentials
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

func TestCredentialsUnmarshalRejectsMissingTag(t *testing.T) {
	var c ProviderCredentials
	err := json.Unmarshal([]byte(`{"api_token":"tok"}`), &c)
	assert.True(t, IsCode(err, CodeParseError))
}

func TestCredentialsUnmarshalRejectsUnknownTag(t *testing.T) {
	var c ProviderCredentials
	err := json.Unmarshal([]byte(`{"provider":"route53","api_token":"tok"}`), &c)
	assert.True(t, IsCode(err, CodeParseError))
}

func TestRedactedHidesValues(t *testing.T) {
	c := ProviderCredentials{
		Provider: ProviderAliyun,
		Aliyun:   &AliyunCredentials{AccessKeyID: "AKID-secret", AccessKeySecret: "very-secret"},
	}
	redacted := c.Redacted()
	assert.NotContains(t, redacted, "AKID-secret")
	assert.NotContains(t, redacted, "very-secret")
	assert.Contains(t, redacted, "aliyun")
	assert.Contains(t, redacted, "access_key_id")
}
