package translog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

const maxResponseBytes = 256 * 1024

// Client is the remote transparency-log audit backend. The remote service
// owns index assignment; entries are submitted with their hash-chain
// fields precomputed and the service rejects out-of-order appends.
type Client struct {
	baseURL string
	token   string
	clock   func() time.Time
	httpDo  func(*http.Request) (*http.Response, error)
}

func NewClient(baseURL, token string, httpClient *http.Client, clock func() time.Time) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("translog base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	if clock == nil {
		clock = time.Now
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		clock:   clock,
		httpDo:  doer,
	}, nil
}

type appendRequest struct {
	ChainVersion string           `json:"chain_version"`
	Timestamp    time.Time        `json:"ts"`
	Body         domain.AuditBody `json:"body"`
	BodyHash     string           `json:"body_hash"`
}

type entryResponse struct {
	UUID      string           `json:"uuid"`
	Index     int64            `json:"index"`
	Timestamp time.Time        `json:"ts"`
	Body      domain.AuditBody `json:"body"`
	BodyHash  string           `json:"body_hash"`
	PrevHash  string           `json:"prev_hash"`
	EntryHash string           `json:"entry_hash"`
}

func (c *Client) Append(ctx context.Context, body domain.AuditBody) (domain.AuditEntry, error) {
	_, bodyHash, err := crypto.BodyHash(body)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	reqBody, err := json.Marshal(appendRequest{
		ChainVersion: domain.AuditChainVersion,
		Timestamp:    c.clock().UTC(),
		Body:         body,
		BodyHash:     bodyHash,
	})
	if err != nil {
		return domain.AuditEntry{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/entries", reqBody)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	return entryFromResponse(resp)
}

func (c *Client) Get(ctx context.Context, index int64) (domain.AuditEntry, error) {
	if index < 1 {
		return domain.AuditEntry{}, domain.ErrNotFound
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/entries/"+strconv.FormatInt(index, 10), nil)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	return entryFromResponse(resp)
}

func (c *Client) Range(ctx context.Context, from, to int64) ([]domain.AuditEntry, error) {
	if from < 1 || to < from {
		return nil, fmt.Errorf("%w: invalid audit range [%d, %d]", domain.ErrInvalidRequest, from, to)
	}
	path := fmt.Sprintf("/api/v1/entries?from=%d&to=%d", from, to)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var items []entryResponse
	if err := json.Unmarshal(resp, &items); err != nil {
		return nil, fmt.Errorf("%w: decode translog range: %v", domain.ErrDependency, err)
	}
	entries := make([]domain.AuditEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.toEntry())
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build translog request: %v", domain.ErrDependency, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpDo(req)
	if err != nil {
		return nil, fmt.Errorf("%w: translog call: %v", domain.ErrDependency, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read translog response: %v", domain.ErrDependency, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: translog status %d", domain.ErrDependency, resp.StatusCode)
	}
	return respBody, nil
}

func entryFromResponse(payload []byte) (domain.AuditEntry, error) {
	var item entryResponse
	if err := json.Unmarshal(payload, &item); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("%w: decode translog entry: %v", domain.ErrDependency, err)
	}
	return item.toEntry(), nil
}

func (r entryResponse) toEntry() domain.AuditEntry {
	return domain.AuditEntry{
		UUID:      r.UUID,
		Index:     r.Index,
		Timestamp: r.Timestamp.UTC(),
		Body:      r.Body,
		BodyHash:  r.BodyHash,
		PrevHash:  r.PrevHash,
		EntryHash: r.EntryHash,
	}
}
