package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type stubProvider struct {
	ports.Provider
	kind domain.ProviderKind
	tag  string
}

func (s *stubProvider) Kind() domain.ProviderKind { return s.kind }

func (s *stubProvider) ValidateCredentials(context.Context) (bool, error) { return true, nil }

func TestRegisterAndGet(t *testing.T) {
	r := New()

	_, ok := r.Get("acc1")
	assert.False(t, ok)

	p := &stubProvider{kind: domain.ProviderCloudflare}
	r.Register("acc1", p)

	got, ok := r.Get("acc1")
	require.True(t, ok)
	assert.Same(t, ports.Provider(p), got)
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := New()
	r.Register("acc1", &stubProvider{kind: domain.ProviderCloudflare, tag: "old"})

	next := &stubProvider{kind: domain.ProviderAliyun, tag: "new"}
	r.Register("acc1", next)

	got, ok := r.Get("acc1")
	require.True(t, ok)
	assert.Equal(t, domain.ProviderAliyun, got.Kind())
	assert.Len(t, r.ListAccountIDs(), 1)
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register("acc1", &stubProvider{kind: domain.ProviderDnspod})
	r.Unregister("acc1")

	_, ok := r.Get("acc1")
	assert.False(t, ok)

	// Unregistering an unknown account is a no-op.
	r.Unregister("missing")
}

func TestListAccountIDs(t *testing.T) {
	r := New()
	r.Register("a", &stubProvider{})
	r.Register("b", &stubProvider{})
	r.Register("c", &stubProvider{})

	assert.ElementsMatch(t, []string{"a", "b", "c"}, r.ListAccountIDs())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("acc-%d", i%10)
			r.Register(id, &stubProvider{kind: domain.ProviderHuaweicloud})
			r.Get(id)
			r.ListAccountIDs()
			if i%3 == 0 {
				r.Unregister(id)
			}
		}(i)
	}
	wg.Wait()
}
