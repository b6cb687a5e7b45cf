package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// CollectionInput is the writable subset of a Collection.
type CollectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

// Mutator issues the single-record write calls. The paging layer never
// retries; mutations go through a bounded retrying client instead.
type Mutator struct {
	baseURL   *url.URL
	http      *retryablehttp.Client
	tokens    TokenSource
	userAgent string
}

// NewMutator builds a Mutator for apiURL. retries bounds the extra attempts
// made on connection errors and 5xx responses.
func NewMutator(apiURL string, retries int, tokens TokenSource, logger *log.Logger) (*Mutator, error) {
	base, err := ParseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Mutator{
		baseURL:   base,
		http:      NewRetryClient(retries, logger),
		tokens:    tokens,
		userAgent: defaultUserAgent,
	}, nil
}

// NewRetryClient returns a retryablehttp client whose diagnostics go to logger.
func NewRetryClient(retries int, logger *log.Logger) *retryablehttp.Client {
	if retries < 0 {
		retries = 0
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = retryLogger{logger: logger}
	return rc
}

// retryLogger adapts the charm logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *log.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Error(msg, keysAndValues...)
	}
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(msg, keysAndValues...)
	}
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Debug(msg, keysAndValues...)
	}
}

// CreateCollection creates a collection and returns the stored record.
func (m *Mutator) CreateCollection(ctx context.Context, in CollectionInput) (Collection, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Collection{}, fmt.Errorf("collection name required")
	}
	var out Collection
	if err := m.do(ctx, http.MethodPost, "/collections", in, &out); err != nil {
		return Collection{}, err
	}
	return out, nil
}

// UpdateCollection replaces the writable fields of collection id.
func (m *Mutator) UpdateCollection(ctx context.Context, id int64, in CollectionInput) (Collection, error) {
	var out Collection
	if err := m.do(ctx, http.MethodPut, "/collections/"+strconv.FormatInt(id, 10), in, &out); err != nil {
		return Collection{}, err
	}
	return out, nil
}

// DeleteCollection removes collection id.
func (m *Mutator) DeleteCollection(ctx context.Context, id int64) error {
	return m.do(ctx, http.MethodDelete, "/collections/"+strconv.FormatInt(id, 10), nil, nil)
}

// AddCollectionItem adds release releaseID to collection collectionID.
func (m *Mutator) AddCollectionItem(ctx context.Context, collectionID, releaseID int64) (CollectionItem, error) {
	body := map[string]int64{"release_id": releaseID}
	var out CollectionItem
	if err := m.do(ctx, http.MethodPost, CollectionItemsEndpoint(collectionID), body, &out); err != nil {
		return CollectionItem{}, err
	}
	return out, nil
}

// RemoveCollectionItem deletes item itemID from collection collectionID.
func (m *Mutator) RemoveCollectionItem(ctx context.Context, collectionID, itemID int64) error {
	path := CollectionItemsEndpoint(collectionID) + "/" + strconv.FormatInt(itemID, 10)
	return m.do(ctx, http.MethodDelete, path, nil, nil)
}

// CollectionItemsEndpoint returns the items endpoint of a collection.
func CollectionItemsEndpoint(collectionID int64) string {
	return "/collections/" + strconv.FormatInt(collectionID, 10) + "/items"
}

func (m *Mutator) do(ctx context.Context, method, path string, body, dest any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	u := *m.baseURL
	u.Path = strings.TrimSuffix(m.baseURL.Path, "/") + path
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if m.tokens != nil {
		token, err := m.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
