// Package discover is a thin client for the discover.swiss search view API.
package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/viewdesk/viewdesk/config"
)

const (
	EnvTest = "test"
	EnvProd = "prod"
)

var (
	ErrMissingSettings    = errors.New("missing api key or project")
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// Credentials select the environment and identify the caller.
type Credentials struct {
	APIKey  string
	Project string
	Env     string
}

func (c Credentials) Ready() bool {
	return c.APIKey != "" && c.Project != ""
}

// APIError is a non-2xx response. Data holds the decoded JSON body, or the
// raw text when the body was not JSON.
type APIError struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discover api: %d %s", e.Status, e.Message)
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Client struct {
	httpClient     *http.Client
	testBaseURL    string
	prodBaseURL    string
	acceptLanguage string
}

func NewClient(cfg config.DiscoverConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewClientWithHTTP(cfg config.DiscoverConfig, httpClient *http.Client) *Client {
	lang := cfg.AcceptLanguage
	if lang == "" {
		lang = "de"
	}
	return &Client{
		httpClient:     httpClient,
		testBaseURL:    strings.TrimRight(cfg.TestBaseURL, "/"),
		prodBaseURL:    strings.TrimRight(cfg.ProdBaseURL, "/"),
		acceptLanguage: lang,
	}
}

func (c *Client) BaseURL(env string) string {
	if env == EnvProd {
		return c.prodBaseURL
	}
	return c.testBaseURL
}

// ListViews returns every view of the project. A non-array body yields an
// empty list.
func (c *Client) ListViews(ctx context.Context, cred Credentials) ([]map[string]interface{}, error) {
	data, err := c.do(ctx, cred, http.MethodGet, "/search/views", nil, nil)
	if err != nil {
		return nil, err
	}

	items, _ := data.([]interface{})
	views := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if v, ok := item.(map[string]interface{}); ok {
			views = append(views, v)
		}
	}
	return views, nil
}

func (c *Client) GetView(ctx context.Context, cred Credentials, id string) (map[string]interface{}, error) {
	data, err := c.do(ctx, cred, http.MethodGet, "/search/views/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	view, ok := data.(map[string]interface{})
	if !ok {
		return nil, ErrUnexpectedResponse
	}
	return view, nil
}

func (c *Client) CreateView(ctx context.Context, cred Credentials, body interface{}) (interface{}, error) {
	return c.do(ctx, cred, http.MethodPost, "/search/views", nil, body)
}

func (c *Client) UpdateView(ctx context.Context, cred Credentials, id string, body interface{}) (interface{}, error) {
	return c.do(ctx, cred, http.MethodPut, "/search/views/"+url.PathEscape(id), nil, body)
}

func (c *Client) DeleteView(ctx context.Context, cred Credentials, id string) (interface{}, error) {
	return c.do(ctx, cred, http.MethodDelete, "/search/views/"+url.PathEscape(id), nil, nil)
}

// Search runs a stored view and returns its result page.
func (c *Client) Search(ctx context.Context, cred Credentials, viewID string) (interface{}, error) {
	return c.do(ctx, cred, http.MethodGet, "/search", map[string]string{"viewId": viewID}, nil)
}

func (c *Client) do(ctx context.Context, cred Credentials, method, path string, query map[string]string, body interface{}) (interface{}, error) {
	if !cred.Ready() {
		return nil, ErrMissingSettings
	}

	u, err := url.Parse(c.BaseURL(cred.Env) + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	q := u.Query()
	q.Set("project", cred.Project)
	for k, v := range query {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", cred.APIKey)
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	data := decodeBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
			Data:    data,
		}
	}
	return data, nil
}

func decodeBody(contentType string, raw []byte) interface{} {
	if !strings.Contains(contentType, "application/json") {
		return string(raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	data, err := DecodeJSON(raw)
	if err != nil {
		return string(raw)
	}
	return data
}
