package aliyun

import (
	"strings"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

// errorCodes is the canonical translation table from alidns string error
// codes to semantic categories.
var errorCodes = map[string]domain.ErrorCode{
	"InvalidAccessKeyId.NotFound": domain.CodeInvalidCredentials,
	"InvalidAccessKeyId.Inactive": domain.CodeInvalidCredentials,
	"SignatureDoesNotMatch":       domain.CodeInvalidCredentials,

	"InvalidDomainName.NoExist":     domain.CodeDomainNotFound,
	"DomainRecordNotBelongToUser":   domain.CodeDomainNotFound,
	"InvalidDomainName.Format":      domain.CodeInvalidParameter,
	"DomainRecordDuplicate":         domain.CodeRecordExists,
	"DomainRecordConflict":          domain.CodeRecordExists,
	"InvalidRecordId.NotFound":      domain.CodeRecordNotFound,
	"DomainRecordNotExist":          domain.CodeRecordNotFound,
	"DomainForbidden":               domain.CodeDomainLocked,
	"QuotaExceeded.Record":          domain.CodeQuotaExceeded,
	"Throttling.User":               domain.CodeRateLimited,
	"Throttling.API":                domain.CodeRateLimited,
	"Forbidden.RAM":                 domain.CodePermissionDenied,
	"Forbidden.AccessKeyDisabled":   domain.CodePermissionDenied,
	"InvalidTTL":                    domain.CodeInvalidParameter,
	"InvalidRR.Format":              domain.CodeInvalidParameter,
	"InvalidType.Format":            domain.CodeInvalidParameter,
	"InvalidValue.Format":           domain.CodeInvalidParameter,
	"LastOperationNotFinished":      domain.CodeRateLimited,
	"InvalidDomainName.Unavailable": domain.CodeDomainNotFound,
}

// invalidParams maps parameter-error codes to the canonical field name
// reported in the semantic error.
var invalidParams = map[string]string{
	"InvalidTTL":               "ttl",
	"InvalidRR.Format":         "name",
	"InvalidType.Format":       "type",
	"InvalidValue.Format":      "value",
	"InvalidDomainName.Format": "domain",
}

// mapError is the only place alidns error codes are interpreted.
func mapError(code, message string, cc transport.CallContext) *domain.Error {
	e := &domain.Error{
		Code:       domain.CodeAPIError,
		Provider:   domain.ProviderAliyun,
		Domain:     cc.Domain,
		RecordName: cc.RecordName,
		Raw:        message,
		Detail:     message,
	}
	if mapped, ok := errorCodes[code]; ok {
		e.Code = mapped
	} else if strings.HasPrefix(code, "InvalidParameter") {
		e.Code = domain.CodeInvalidParameter
	}
	if e.Code == domain.CodeInvalidParameter {
		if p, ok := invalidParams[code]; ok {
			e.Param = p
		} else {
			e.Param = "general"
		}
	}
	return e
}
