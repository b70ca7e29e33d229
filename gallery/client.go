// Package gallery is a Go client for the gallery API plus the view state an
// admin tool keeps while browsing and rearranging a collection.
package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mutena/fotomutena/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gallery api: status %d", e.Status)
	}
	return fmt.Sprintf("gallery api: %s (status %d)", e.Message, e.Status)
}

// Result is what a mutation returns: the full list after the change.
type Result struct {
	Items     []models.Record
	Item      *models.Record
	Persisted bool
	ETag      string
}

// Client talks to one gallery server. It remembers the last ETag seen per
// collection and sends it as If-Match so concurrent edits are detected.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	mu    sync.Mutex
	etags map[string]string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		etags:   map[string]string{},
	}
}

// Login exchanges the admin password for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, password string) (string, time.Time, error) {
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{"password": password}, &out); err != nil {
		return "", time.Time{}, err
	}
	c.Token = out.Token
	return out.Token, out.ExpiresAt, nil
}

// List fetches a collection.
func (c *Client) List(ctx context.Context, collection string) ([]models.Record, error) {
	var list []models.Record
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/"+collection, nil, &list)
	if err != nil {
		return nil, err
	}
	c.remember(collection, resp.Header.Get("ETag"))
	return list, nil
}

// CreateFromURL adds a record for an already hosted image.
func (c *Client) CreateFromURL(ctx context.Context, collection string, rec models.Record) (Result, error) {
	body := map[string]any{
		"url":         rec.URL,
		"title":       rec.Title,
		"category":    rec.Category,
		"description": rec.Description,
	}
	if rec.AspectRatio != nil {
		body["aspectRatio"] = *rec.AspectRatio
	}
	if rec.Specs != nil {
		body["specs"] = rec.Specs
	}
	return c.mutate(ctx, http.MethodPost, collection, "/api/"+collection, body)
}

// Upload sends image bytes as a multipart form.
func (c *Client) Upload(ctx context.Context, collection, filename string, data io.Reader, fields map[string]string) (Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return Result{}, err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/"+collection, &buf)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setIfMatch(req, collection)
	return c.decodeMutation(req, collection)
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, collection, id string) (Result, error) {
	return c.mutate(ctx, http.MethodDelete, collection, "/api/"+collection+"?id="+url.QueryEscape(id), nil)
}

// Reorder stores list as the new collection contents.
func (c *Client) Reorder(ctx context.Context, collection string, list []models.Record) (Result, error) {
	return c.mutate(ctx, http.MethodPatch, collection, "/api/"+collection, map[string]any{collection: list})
}

// Settings fetches the contact settings.
func (c *Client) Settings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	_, err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &s)
	return s, err
}

// SaveSettings overwrites the contact settings.
func (c *Client) SaveSettings(ctx context.Context, s models.Settings) (models.Settings, error) {
	var out struct {
		Settings models.Settings `json:"settings"`
	}
	_, err := c.doJSON(ctx, http.MethodPost, "/api/settings", s, &out)
	return out.Settings, err
}

func (c *Client) mutate(ctx context.Context, method, collection, path string, body any) (Result, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Result{}, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return Result{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setIfMatch(req, collection)
	return c.decodeMutation(req, collection)
}

func (c *Client) decodeMutation(req *http.Request, collection string) (Result, error) {
	resp, raw, err := c.send(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			c.forget(collection)
		}
		return Result{}, err
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	res := Result{ETag: resp.Header.Get("ETag")}
	if err := json.Unmarshal(body[collection], &res.Items); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", collection, err)
	}
	if item, ok := body["item"]; ok {
		var rec models.Record
		if err := json.Unmarshal(item, &rec); err == nil {
			res.Item = &rec
		}
	}
	if p, ok := body["persisted"]; ok {
		_ = json.Unmarshal(p, &res.Persisted)
	}
	c.remember(collection, res.ETag)
	return res, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) (*http.Response, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, raw, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// send performs req and turns error envelopes into *APIError.
func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env struct {
			Code  int    `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code, apiErr.Message = env.Code, env.Error
		}
		return resp, raw, apiErr
	}
	return resp, raw, nil
}

func (c *Client) setIfMatch(req *http.Request, collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tag := c.etags[collection]; tag != "" {
		req.Header.Set("If-Match", tag)
	}
}

func (c *Client) remember(collection, etag string) {
	if etag == "" {
		return
	}
	c.mu.Lock()
	c.etags[collection] = etag
	c.mu.Unlock()
}

// forget drops a stale tag so the next mutation is not pinned to it.
func (c *Client) forget(collection string) {
	c.mu.Lock()
	delete(c.etags, collection)
	c.mu.Unlock()
}
