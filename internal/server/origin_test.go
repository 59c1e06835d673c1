package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gorelay/internal/logging"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		header  string
		want    bool
	}{
		{name: "wildcard allows any origin", origins: []string{"*"}, header: "http://evil.example", want: true},
		{name: "wildcard allows missing origin", origins: []string{"*"}, header: "", want: true},
		{name: "listed origin", origins: []string{"http://localhost:8080"}, header: "http://localhost:8080", want: true},
		{name: "case insensitive", origins: []string{"HTTP://LocalHost:8080"}, header: "http://localhost:8080", want: true},
		{name: "unlisted origin", origins: []string{"http://localhost:8080"}, header: "http://other:8080", want: false},
		{name: "missing origin", origins: []string{"http://localhost:8080"}, header: "", want: false},
		{name: "invalid header", origins: []string{"http://localhost:8080"}, header: "::not a url", want: false},
		{name: "invalid config ignored", origins: []string{"nonsense"}, header: "nonsense", want: false},
		{name: "empty list", origins: nil, header: "http://localhost:8080", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.origins, logging.Discard())
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.header != "" {
				req.Header.Set("Origin", tt.header)
			}
			require.Equal(t, tt.want, policy.checkOrigin(req))
		})
	}
}
