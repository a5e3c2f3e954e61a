package server

import (
	"net"
	"net/http"
	"strings"
)

const unknownAddress = "unknown"

// clientAddress is the network address every binding in the service is keyed on: the first
// X-Forwarded-For entry when the proxy is trusted, otherwise the peer host.
func (s *Server) clientAddress(r *http.Request) string {
	if s.config.GetTrustForwardedFor() {
		if forwarded := r.Header.Get(HeaderForwardedFor); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return unknownAddress
	}
	return host
}
