package shared

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClientFactory hands out pooled HTTP clients keyed by timeout so every
// outbound call has a hard deadline.
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// Client returns the client for timeout, creating it on first use.
// A non-positive timeout selects the factory default.
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if client, exists := f.clients[clientKey]; exists {
		return client
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	f.clients[clientKey] = client

	logrus.WithFields(logrus.Fields{
		"component":  "HTTPClientFactory",
		"timeout":    timeout,
		"client_key": clientKey,
	}).Debug("Created new HTTP client")

	return client
}

// CloseIdleConnections releases pooled connections held by every client.
func (f *HTTPClientFactory) CloseIdleConnections() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for key, client := range f.clients {
		client.CloseIdleConnections()
		delete(f.clients, key)
	}

	logrus.WithField("component", "HTTPClientFactory").Debug("Closed idle HTTP connections")
}
