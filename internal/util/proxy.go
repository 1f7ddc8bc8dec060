package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/modalyze/modalyze/internal/config"
)

// SetProxy routes the client's outbound requests through the proxy named in
// the configuration. Supported schemes are socks5, http, and https; anything
// else leaves the client untouched.
func SetProxy(cfg *config.Config, httpClient *http.Client) *http.Client {
	if cfg == nil || cfg.ProxyURL == "" {
		return httpClient
	}

	u, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		log.Warnf("ignoring unparseable proxy URL %q: %v", cfg.ProxyURL, err)
		return httpClient
	}

	switch u.Scheme {
	case "socks5":
		if transport := socksTransport(u); transport != nil {
			httpClient.Transport = transport
		}
	case "http", "https":
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	default:
		log.Warnf("unsupported proxy scheme %q", u.Scheme)
	}
	return httpClient
}

// socksTransport dials through a SOCKS5 proxy, with credentials when the URL
// carries userinfo. A dialer setup failure is logged and reported as nil so
// the caller keeps its direct connection.
func socksTransport(u *url.URL) *http.Transport {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		log.Errorf("create SOCKS5 dialer failed: %v", err)
		return nil
	}
	return &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}
}
