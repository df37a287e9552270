package ws

import (
	"net"
	"net/http"
	"strings"
	errs "youcube/errors"

	"github.com/samber/lo"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerTrueClientIP  = "True-Client-Ip"
)

// ParseTrustedProxies splits a comma separated list. A nil raw value means
// proxy resolution is disabled and nil is returned. A set but empty value
// yields an empty, non-nil list: no peer may forward a client address.
func ParseTrustedProxies(raw *string) []string {
	if raw == nil {
		return nil
	}
	proxies := make([]string, 0)
	for _, item := range strings.Split(*raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			proxies = append(proxies, item)
		}
	}
	return proxies
}

// ResolveClientIP returns the identity used to prefix a connection's logs.
// With a nil list the peer address is used as is. A trusted peer may
// name the client through X-Forwarded-For (first value) or True-Client-Ip.
// An untrusted peer sending those headers yields ErrUntrustedProxy.
func ResolveClientIP(r *http.Request, trustedProxies []string) (string, error) {
	peer := peerHost(r.RemoteAddr)
	if trustedProxies == nil {
		return peer, nil
	}

	forwardedFor := r.Header.Get(headerForwardedFor)
	trueClientIP := r.Header.Get(headerTrueClientIP)

	if !lo.Contains(trustedProxies, peer) {
		if forwardedFor != "" || trueClientIP != "" {
			return "", errs.ErrUntrustedProxy
		}
		return peer, nil
	}

	if forwardedFor != "" {
		if first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0]); first != "" {
			return first, nil
		}
	}
	if trueClientIP != "" {
		return strings.TrimSpace(trueClientIP), nil
	}
	return peer, nil
}

func peerHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
