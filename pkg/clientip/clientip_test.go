package clientip_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commtype/api/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "203.0.113.10", "X-Forwarded-For": "198.51.100.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.10",
		},
		{
			name:       "first valid forwarded entry",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7, 10.0.0.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "198.51.100.7",
		},
		{
			name:       "real ip fallback",
			headers:    map[string]string{"X-Real-IP": "192.0.2.44"},
			remoteAddr: "10.0.0.1:1234",
			want:       "192.0.2.44",
		},
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.99:51423",
			want:       "192.0.2.99",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.99",
			want:       "192.0.2.99",
		},
		{
			name:       "ipv6 normalized",
			headers:    map[string]string{"X-Forwarded-For": "2001:0db8:0000:0000:0000:0000:0000:0001"},
			remoteAddr: "10.0.0.1:1234",
			want:       "2001:db8::1",
		},
		{
			name:       "invalid headers ignored",
			headers:    map[string]string{"CF-Connecting-IP": "not-an-ip", "X-Real-IP": "999.1.1.1"},
			remoteAddr: "192.0.2.5:80",
			want:       "192.0.2.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}
