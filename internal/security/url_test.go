package security

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLValidate(t *testing.T) {
	v := NewURL()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"public https", "https://example.com/page", false},
		{"public http", "http://example.com", false},
		{"public with port", "https://example.com:8443/api", false},
		{"localhost", "http://localhost/admin", true},
		{"localhost uppercase", "http://LOCALHOST/", true},
		{"loopback v4", "http://127.0.0.1:8080", true},
		{"loopback v6", "http://[::1]/", true},
		{"private 10", "http://10.0.0.5/", true},
		{"private 172", "http://172.16.1.1/", true},
		{"private 192", "http://192.168.0.10/", true},
		{"link local", "http://169.254.1.1/", true},
		{"cloud metadata", "http://169.254.169.254/latest/meta-data", true},
		{"gcp metadata hostname", "http://metadata.google.internal/computeMetadata/v1/", true},
		{"unspecified", "http://0.0.0.0/", true},
		{"mapped loopback", "http://[::ffff:127.0.0.1]/", true},
		{"ftp scheme", "ftp://example.com/file", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "example.com", true},
		{"empty host", "http:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestURLCheckIP(t *testing.T) {
	v := NewURL()

	blocked := []string{
		"127.0.0.1",
		"10.1.2.3",
		"172.20.0.1",
		"192.168.1.1",
		"169.254.169.254",
		"0.0.0.0",
		"::1",
		"fe80::1",
	}
	for _, s := range blocked {
		ip := net.ParseIP(s)
		require.NotNil(t, ip, s)
		assert.Error(t, v.checkIP(ip), s)
	}

	allowed := []string{"93.184.216.34", "8.8.8.8", "2606:2800:220:1:248:1893:25c8:1946"}
	for _, s := range allowed {
		ip := net.ParseIP(s)
		require.NotNil(t, ip, s)
		assert.NoError(t, v.checkIP(ip), s)
	}
}

func TestURLClient(t *testing.T) {
	v := NewURL(WithTimeout(5 * time.Second))
	client := v.Client()

	require.NotNil(t, client)
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.NotNil(t, client.CheckRedirect)
}

func TestURLMaxResponseSize(t *testing.T) {
	v := NewURL()
	assert.Equal(t, int64(5*1024*1024), v.MaxResponseSize())

	small := NewURL(WithMaxResponseSize(1024))
	assert.Equal(t, int64(1024), small.MaxResponseSize())
}
