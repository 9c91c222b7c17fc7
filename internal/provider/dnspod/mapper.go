package dnspod

import (
	"strings"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/provider/transport"
)

// errorCodes is the canonical translation table from Tencent Cloud string
// error codes to semantic categories.
var errorCodes = map[string]domain.ErrorCode{
	"AuthFailure.SignatureFailure":   domain.CodeInvalidCredentials,
	"AuthFailure.SignatureExpire":    domain.CodeInvalidCredentials,
	"AuthFailure.SecretIdNotFound":   domain.CodeInvalidCredentials,
	"AuthFailure.TokenFailure":       domain.CodeInvalidCredentials,
	"AuthFailure.InvalidSecretId":    domain.CodeInvalidCredentials,
	"UnauthorizedOperation":          domain.CodePermissionDenied,
	"AuthFailure.UnauthorizedOperation": domain.CodePermissionDenied,

	"ResourceNotFound.NoDataOfDomain": domain.CodeDomainNotFound,
	"InvalidParameter.DomainInvalid":  domain.CodeDomainNotFound,
	"ResourceNotFound.NoDataOfRecord": domain.CodeRecordNotFound,
	"InvalidParameter.RecordIdInvalid": domain.CodeRecordNotFound,

	"InvalidParameter.DomainRecordExist": domain.CodeRecordExists,

	"FailedOperation.DomainIsLocked":  domain.CodeDomainLocked,
	"FailedOperation.DomainIsSpam":    domain.CodeDomainLocked,
	"LimitExceeded":                   domain.CodeQuotaExceeded,
	"LimitExceeded.RecordLimit":       domain.CodeQuotaExceeded,
	"RequestLimitExceeded":            domain.CodeRateLimited,
	"RequestLimitExceeded.RequestLimitExceeded": domain.CodeRateLimited,

	"InvalidParameterValue.TTLInvalid":    domain.CodeInvalidParameter,
	"InvalidParameter.SubdomainInvalid":   domain.CodeInvalidParameter,
	"InvalidParameterValue.TypeInvalid":   domain.CodeInvalidParameter,
	"InvalidParameterValue.ValueInvalid":  domain.CodeInvalidParameter,
	"InvalidParameter.RecordLineInvalid":  domain.CodeInvalidParameter,
	"InvalidParameterValue.MXInvalid":     domain.CodeInvalidParameter,
}

var invalidParams = map[string]string{
	"InvalidParameterValue.TTLInvalid":   "ttl",
	"InvalidParameter.SubdomainInvalid":  "name",
	"InvalidParameterValue.TypeInvalid":  "type",
	"InvalidParameterValue.ValueInvalid": "value",
	"InvalidParameter.RecordLineInvalid": "line",
	"InvalidParameterValue.MXInvalid":    "priority",
}

// mapError is the only place Tencent Cloud error codes are interpreted.
func mapError(code, message string, cc transport.CallContext) *domain.Error {
	e := &domain.Error{
		Code:       domain.CodeAPIError,
		Provider:   domain.ProviderDnspod,
		Domain:     cc.Domain,
		RecordName: cc.RecordName,
		Raw:        message,
		Detail:     message,
	}
	if mapped, ok := errorCodes[code]; ok {
		e.Code = mapped
	} else if strings.HasPrefix(code, "AuthFailure") {
		e.Code = domain.CodeInvalidCredentials
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
