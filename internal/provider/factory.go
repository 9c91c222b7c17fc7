// Package provider wires concrete cloud backends to the ports.Provider
// contract. The factory is the only way to instantiate a provider outside
// tests; the set of backends is closed, so a switch on the credentials tag
// is the whole dispatch.
package provider

import (
	"log/slog"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/provider/aliyun"
	"dnsbridge/internal/provider/cloudflare"
	"dnsbridge/internal/provider/dnspod"
	"dnsbridge/internal/provider/huawei"
	"dnsbridge/internal/provider/transport"
)

// Options carries the shared collaborators every provider instance uses.
type Options struct {
	Logger *slog.Logger
	HTTP   *transport.Client
	// DomainCache, when set, is handed to backends that cache zone
	// listings (currently Cloudflare). Nil disables caching.
	DomainCache ports.DomainCache
}

// NewFactory returns the ports.ProviderFactory used by the services.
func NewFactory(opts Options) ports.ProviderFactory {
	if opts.HTTP == nil {
		opts.HTTP = transport.NewClient(opts.Logger)
	}
	return func(creds domain.ProviderCredentials) (ports.Provider, error) {
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		switch creds.Provider {
		case domain.ProviderCloudflare:
			return cloudflare.New(*creds.Cloudflare, opts.HTTP, opts.Logger, opts.DomainCache), nil
		case domain.ProviderAliyun:
			return aliyun.New(*creds.Aliyun, opts.HTTP, opts.Logger), nil
		case domain.ProviderDnspod:
			return dnspod.New(*creds.Dnspod, opts.HTTP, opts.Logger), nil
		case domain.ProviderHuaweicloud:
			return huawei.New(*creds.Huaweicloud, opts.HTTP, opts.Logger), nil
		}
		return nil, domain.E(domain.CodeValidationError, "unknown provider %q", creds.Provider)
	}
}
