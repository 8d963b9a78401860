package httpx

import (
    "net"
    "net/http"
    "time"
)

// DefaultUserAgent is sent on upstream requests that do not set one.
const DefaultUserAgent = "pricequote/1.0"

// Client wraps http.Client with pooled transport defaults and a fixed set
// of headers applied to every outgoing request.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

// New returns a client whose every request is bounded by timeout.
// A non-positive timeout falls back to 10s; upstream calls are never unbounded.
func New(timeout time.Duration) *Client {
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    transport := &http.Transport{
        Proxy:                 http.ProxyFromEnvironment,
        DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          20,
        MaxIdleConnsPerHost:   10,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: timeout,
    }
    return &Client{
        HTTP:      &http.Client{Timeout: timeout, Transport: transport},
        UserAgent: DefaultUserAgent,
        Headers:   map[string]string{"Accept": "application/json"},
    }
}

// Do sends req after filling in the User-Agent and default headers the
// request does not already carry.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if req.Header == nil {
        req.Header = http.Header{}
    }
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}
