package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// CloudflareKVStore talks to the Cloudflare Workers KV REST API directly
// over net/http: the pack carries no dedicated Cloudflare SDK, and the KV
// REST surface used here (one values endpoint via GET and PUT, bearer auth) doesn't warrant
// vendoring one.
type CloudflareKVStore struct {
	accountID   string
	namespaceID string
	apiToken    string
	client      *http.Client
	baseURL     string
}

// NewCloudflareKVStore builds a store bound to one KV namespace. client may
// be nil, in which case http.DefaultClient is used.
func NewCloudflareKVStore(accountID, namespaceID, apiToken string, client *http.Client) *CloudflareKVStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &CloudflareKVStore{
		accountID:   accountID,
		namespaceID: namespaceID,
		apiToken:    apiToken,
		client:      client,
		baseURL:     "https://api.cloudflare.com/client/v4",
	}
}

func (s *CloudflareKVStore) valueURL(key string) string {
	return fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s/values/%s",
		s.baseURL, s.accountID, s.namespaceID, url.PathEscape(key))
}

func (s *CloudflareKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.valueURL(key), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("cloudflare kv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (s *CloudflareKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	target := s.valueURL(key)
	if ttl > 0 {
		target += fmt.Sprintf("?expiration_ttl=%d", int(ttl.Seconds()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(value))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudflare kv: unexpected status %d", resp.StatusCode)
	}
	return nil
}
