package llm

import (
	"net"
	"net/http"
	"time"

	"content-crew/internal/infra/config"
)

// NewHTTPClient returns the client both OpenAI providers share. The crew
// talks to one or two hosts with up to five agents in flight, so idle
// connections are kept per host. There is no overall timeout: a streamed
// turn lasts as long as the run context allows.
func NewHTTPClient(cfg config.ProviderConfig) *http.Client {
	return &http.Client{Transport: NewPooledTransport(cfg.ConnTimeout, cfg.RespTimeout, cfg.Pool)}
}

// NewPooledTransport builds the pooled transport. respTimeout bounds the
// wait for response headers, not the body.
func NewPooledTransport(connTimeout, respTimeout time.Duration, pool config.PoolConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   positiveOr(connTimeout, 30*time.Second),
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: positiveOr(respTimeout, 120*time.Second),
		MaxIdleConns:          positiveOr(pool.MaxIdleConns, 20),
		MaxIdleConnsPerHost:   positiveOr(pool.MaxIdleConnsPerHost, 10),
		MaxConnsPerHost:       positiveOr(pool.MaxConnsPerHost, 20),
		IdleConnTimeout:       positiveOr(pool.IdleConnTimeout, 120*time.Second),
	}
}
