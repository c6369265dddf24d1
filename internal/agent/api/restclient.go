package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielmvs/fleetsync/internal/common"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/danielmvs/fleetsync/internal/netx"
)

type RESTClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    netx.NewHTTPClient(15 * time.Second),
	}
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *RESTClient) send(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	return resp, nil
}

// do sends one request, attaching the bearer token when present. On a 401
// caused by an expired access token it rotates the token pair and replays the
// request once.
func (c *RESTClient) do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var eb errorBody
	_ = json.Unmarshal(b, &eb)
	if eb.Error != common.ErrTokenExpired.Error() {
		return nil, common.ErrorUnauthorized
	}

	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return nil, common.ErrorUnauthorized
	}
	if err := c.refresh(ctx, refresh); err != nil {
		return nil, err
	}

	// tokens rotated, replay the original request
	return c.send(ctx, method, path, body, headers)
}

func (c *RESTClient) refresh(ctx context.Context, refreshToken string) error {
	body, _ := json.Marshal(map[string]string{"refreshToken": refreshToken})
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.ErrRefreshTokenExpired
	}

	var pair tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *RESTClient) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/health", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.ErrUnavailable
	}
	return nil
}

func (c *RESTClient) Login(ctx context.Context, username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/login", body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.ErrorUnauthorized
	}

	var pair tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *RESTClient) List(ctx context.Context, category models.Category) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/"+string(category), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", common.ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s body: %w", category, err)
	}
	return body, nil
}

func (c *RESTClient) CreateRegistration(ctx context.Context, r *models.Registration, idempotencyKey string) (*models.Registration, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration: %w", err)
	}

	headers := map[string]string{common.IdempotencyKeyHeaderName: idempotencyKey}
	resp, err := c.do(ctx, http.MethodPost, "/api/registrations", payload, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", common.ErrUnavailable, resp.Status)
	}

	confirmed := &models.Registration{}
	if err := json.NewDecoder(resp.Body).Decode(confirmed); err != nil {
		return nil, fmt.Errorf("failed to decode confirmed registration: %w", err)
	}
	if !confirmed.Confirmed() {
		return nil, errors.New("server returned non-positive registration id")
	}
	return confirmed, nil
}

type uploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (c *RESTClient) NewUploadURL(ctx context.Context) (string, string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/uploads", nil, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: unexpected status %s", common.ErrUnavailable, resp.Status)
	}

	var ur uploadURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", "", fmt.Errorf("failed to decode upload url response: %w", err)
	}
	return ur.Key, ur.URL, nil
}

func (c *RESTClient) UploadImage(ctx context.Context, url string, contentType string, data []byte) error {
	return netx.UploadToPresignedURL(ctx, c.http, url, contentType, data)
}
