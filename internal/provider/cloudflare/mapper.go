package cloudflare

import (
	"net/http"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

// errorCodes is the canonical translation table from Cloudflare numeric
// error codes to semantic error categories. Unknown codes fall back to the
// HTTP status and finally to CodeAPIError.
var errorCodes = map[int]domain.ErrorCode{
	6003:  domain.CodeInvalidCredentials, // invalid request headers
	9103:  domain.CodeInvalidCredentials, // unknown X-Auth-Key or X-Auth-Email
	9109:  domain.CodeInvalidCredentials, // invalid access token
	10000: domain.CodeInvalidCredentials, // authentication error

	7000: domain.CodeDomainNotFound, // no route for the URI
	7003: domain.CodeDomainNotFound, // could not route to zone

	81044: domain.CodeRecordNotFound,

	81053: domain.CodeRecordExists, // identical record already exists
	81057: domain.CodeRecordExists, // record with same content already exists
	81058: domain.CodeRecordExists, // identical proxied record already exists

	971: domain.CodeRateLimited,

	1004: domain.CodeInvalidParameter, // DNS validation error
}

// mapError is the only place Cloudflare error codes are interpreted.
func mapError(status, code int, message string, cc transport.CallContext) *domain.Error {
	e := &domain.Error{
		Code:       domain.CodeAPIError,
		Provider:   domain.ProviderCloudflare,
		Domain:     cc.Domain,
		RecordName: cc.RecordName,
		Raw:        message,
		Detail:     message,
	}

	if mapped, ok := errorCodes[code]; ok {
		e.Code = mapped
	} else {
		switch status {
		case http.StatusUnauthorized:
			e.Code = domain.CodeInvalidCredentials
		case http.StatusForbidden:
			e.Code = domain.CodePermissionDenied
		case http.StatusTooManyRequests:
			e.Code = domain.CodeRateLimited
		case http.StatusNotFound:
			e.Code = domain.CodeDomainNotFound
		}
	}

	if e.Code == domain.CodeInvalidParameter {
		e.Param = "general"
	}
	return e
}
