package sender

import "github.com/vitaliisemenov/alert-router/internal/config"

// resolveProxyURL resolves the effective proxy for one send: a channel
// that declares proxy_enabled uses its own proxy URL; otherwise the
// global proxy applies, preferring socks5 then https then http when
// more than one is configured. Returns "" when no proxy applies.
func resolveProxyURL(ch config.Channel, globalEnabled bool, global config.ProxyConfig) string {
	if ch.ProxyEnabled {
		return ch.Proxy
	}
	if !globalEnabled {
		return ""
	}
	switch {
	case global.SOCKS5 != "":
		return global.SOCKS5
	case global.HTTPS != "":
		return global.HTTPS
	default:
		return global.HTTP
	}
}
