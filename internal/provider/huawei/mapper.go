package huawei

import (
	"net/http"
	"strings"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

// errorCodes is the canonical translation table from Huawei Cloud DNS and
// API-gateway string error codes to semantic categories.
var errorCodes = map[string]domain.ErrorCode{
	"APIGW.0301": domain.CodeInvalidCredentials, // signature verification failed
	"APIGW.0101": domain.CodeInvalidCredentials, // access key not found
	"APIGW.0307": domain.CodeInvalidCredentials, // token expired
	"APIGW.0308": domain.CodeRateLimited,        // request throttled

	"DNS.0101": domain.CodeInvalidParameter, // invalid request parameter
	"DNS.0208": domain.CodeDomainNotFound,   // zone not found
	"DNS.0209": domain.CodeDomainLocked,     // zone frozen
	"DNS.0301": domain.CodeRecordNotFound,   // record set not found
	"DNS.0312": domain.CodeRecordExists,     // record set already exists
	"DNS.0109": domain.CodeQuotaExceeded,    // quota exceeded
	"DNS.0003": domain.CodePermissionDenied, // policy does not allow
}

// mapError is the only place Huawei Cloud error codes are interpreted.
func mapError(status int, code, message string, cc transport.CallContext) *domain.Error {
	e := &domain.Error{
		Code:       domain.CodeAPIError,
		Provider:   domain.ProviderHuaweicloud,
		Domain:     cc.Domain,
		RecordName: cc.RecordName,
		Raw:        message,
		Detail:     message,
	}

	if mapped, ok := errorCodes[code]; ok {
		e.Code = mapped
	} else if strings.HasPrefix(code, "APIGW.03") {
		e.Code = domain.CodeInvalidCredentials
	} else {
		switch status {
		case http.StatusUnauthorized:
			e.Code = domain.CodeInvalidCredentials
		case http.StatusForbidden:
			e.Code = domain.CodePermissionDenied
		case http.StatusNotFound:
			e.Code = domain.CodeDomainNotFound
		case http.StatusTooManyRequests:
			e.Code = domain.CodeRateLimited
		}
	}

	if e.Code == domain.CodeInvalidParameter {
		e.Param = "general"
	}
	return e
}
