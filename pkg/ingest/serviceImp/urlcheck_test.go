package serviceImp

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/pkg/ingest/service"
)

func staticLookup(ips ...string) func(context.Context, string) ([]net.IPAddr, error) {
	return func(context.Context, string) ([]net.IPAddr, error) {
		out := make([]net.IPAddr, 0, len(ips))
		for _, ip := range ips {
			out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
		}
		return out, nil
	}
}

func TestURLGuard_Check(t *testing.T) {
	ctx := context.Background()
	public := URLGuard{Lookup: staticLookup("93.184.216.34")}

	cases := []struct {
		name  string
		guard URLGuard
		url   string
		err   error
	}{
		{"public https", public, "https://example.org/paper", nil},
		{"public ip literal", public, "http://93.184.216.34/", nil},
		{"ftp scheme", public, "ftp://example.org/x", service.ErrURLRejected},
		{"relative", public, "/pmc/articles/1", service.ErrURLRejected},
		{"localhost", public, "http://localhost:8080/", service.ErrURLRejected},
		{"loopback literal", public, "http://127.0.0.1/", service.ErrURLRejected},
		{"private literal", public, "http://10.1.2.3/", service.ErrURLRejected},
		{"ipv6 loopback", public, "http://[::1]/", service.ErrURLRejected},
		{"resolves private", URLGuard{Lookup: staticLookup("192.168.1.5")}, "https://intranet.example/", service.ErrURLRejected},
		{"allow list hit", URLGuard{Allowed: []string{"nih.gov"}, Lookup: staticLookup("93.184.216.34")}, "https://www.ncbi.nlm.nih.gov/pmc/", nil},
		{"allow list miss", URLGuard{Allowed: []string{"nih.gov"}, Lookup: staticLookup("93.184.216.34")}, "https://evilnih.gov/", service.ErrURLRejected},
		{"private allowed", URLGuard{AllowPrivate: true}, "http://127.0.0.1:9000/x", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := tc.guard.Check(ctx, tc.url)
			if tc.err == nil {
				require.NoError(t, err)
				assert.NotNil(t, u)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestURLGuard_LookupFailure(t *testing.T) {
	g := URLGuard{Lookup: func(context.Context, string) ([]net.IPAddr, error) {
		return nil, errors.New("no such host")
	}}
	_, err := g.Check(context.Background(), "https://nowhere.invalid/")
	assert.ErrorIs(t, err, service.ErrFetch)
}
