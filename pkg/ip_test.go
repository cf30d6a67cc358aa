package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPIsLocal(t *testing.T) {
	cases := []struct {
		addr            string
		expectedIsLocal bool
	}{
		{addr: "83.12.53.65", expectedIsLocal: false},
		{addr: "127.0.0.1", expectedIsLocal: true},
		{addr: "::1", expectedIsLocal: true},
		{addr: "172.20.0.1", expectedIsLocal: true},
		{addr: "172.200.0.1", expectedIsLocal: true},
		{addr: "172.19.0.1", expectedIsLocal: true},
		{addr: "172.19.0.12", expectedIsLocal: false},
		{addr: "111.12.56.65", expectedIsLocal: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expectedIsLocal, IPIsLocal(tc.addr), tc.addr)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "remote addr", remote: "83.12.53.65:2145", expected: "83.12.53.65"},
		{name: "ipv6 remote addr", remote: "[2001:db8::1]:443", expected: "2001:db8::1"},
		{
			name:     "real ip wins",
			headers:  map[string]string{"X-Real-Ip": "10.1.2.3", "X-Forwarded-For": "10.9.9.9"},
			remote:   "127.0.0.1:5000",
			expected: "10.1.2.3",
		},
		{
			name:     "first forwarded",
			headers:  map[string]string{"X-Forwarded-For": "91.1.1.1, 172.20.0.1"},
			remote:   "127.0.0.1:5000",
			expected: "91.1.1.1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/sync/status", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, ClientIP(r))
		})
	}
}
