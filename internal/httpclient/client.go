// Package httpclient builds the single pooled *http.Client shape shared
// by the image pipeline's metrics-backend queries and the chat/webhook
// senders: a TLS 1.2 floor, a bounded idle-connection pool, and
// explicit dial and handshake timeouts.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// New builds an *http.Client with the given request timeout and an
// optional proxy URL (http://, https:// or socks5://; empty string
// means no proxy). A malformed proxy URL is a configuration error; a
// socks5 endpoint is not dialed here, so an unreachable one fails only
// when a request is made.
func New(timeout time.Duration, proxyURL string) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext:         dialer.DialContext,

		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}

		if parsed.Scheme == "socks5" {
			socksDialer, err := proxy.FromURL(parsed, dialer)
			if err != nil {
				return nil, fmt.Errorf("build socks5 dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return socksDialer.Dial(network, addr)
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
