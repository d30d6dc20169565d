// Package repository provides data access against the hosted REST data
// API. All persistence lives upstream; this process keeps no state.
package repository

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for book operations.
var (
	// ErrBookNotFound is returned when an update matched zero rows.
	// A row owned by someone else is indistinguishable from a missing
	// row so ownership cannot be probed.
	ErrBookNotFound = errors.New("book not found or unauthorized")

	// ErrUpstream wraps transport failures and unexpected statuses
	// from the data API.
	ErrUpstream = errors.New("data api request failed")
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second
)

// NewHTTPClient creates an HTTP client configured for data API calls.
// Connection setup is bounded but there is no overall request deadline;
// the data API is expected to answer promptly and slow responses
// surface through the response-header timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Repository issues authenticated calls against the hosted data API.
type Repository struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New creates a Repository for the given data API base URL
// (e.g., https://project.supabase.co/rest/v1) and service credential.
// Pass nil for client to use the default tuned client.
func New(baseURL, serviceKey string, client *http.Client) *Repository {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Repository{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: client,
	}
}

// setHeaders applies the service credential and representation headers.
// Prefer: return=representation makes mutating calls echo the affected
// rows, which the book operations rely on.
func (r *Repository) setHeaders(req *http.Request) {
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
}
