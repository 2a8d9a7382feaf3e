package sharedhttp

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"gallarr/internal/domain"
)

var Transport = NewTransport("")

// NewTransport returns the tuned transport. An empty proxy falls back to
// the environment.
func NewTransport(proxy string) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ReadBufferSize:        65536,
		WriteBufferSize:       65536,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			t.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return t
}

// CheckStatusCode maps a response status onto the transport taxonomy.
// Temporary marks statuses another mirror can reasonably answer better:
// blocks, throttling and server errors rotate, a missing resource does not.
func CheckStatusCode(host string, statusCode int) error {
	switch statusCode {
	case http.StatusOK:

	case http.StatusForbidden, http.StatusTooManyRequests:
		return &domain.TransportError{Host: host, Status: statusCode, Temporary: true}

	case http.StatusNotFound:
		return &domain.TransportError{Host: host, Status: statusCode, Temporary: false}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &domain.TransportError{Host: host, Status: statusCode, Temporary: true}

	default:
		return &domain.TransportError{Host: host, Status: statusCode, Temporary: false}
	}

	return nil
}

func ExecRequest(client http.Client, req *http.Request) (http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return http.Response{}, &domain.TransportError{Host: req.URL.Host, Temporary: true, Err: err}
	}

	if err := CheckStatusCode(req.URL.Host, resp.StatusCode); err != nil {
		resp.Body.Close()
		return http.Response{}, err
	}

	return *resp, nil
}
