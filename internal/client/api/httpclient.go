package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
)

const defaultRequestTimeout = 15 * time.Second

// HTTPClient implements Client against the CredLink REST backend.
//
// Route set is the canonical one: /users, /users/login, /users/me,
// /{userId}/did, /avatar, /photos, /verification-request.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
	log     logging.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout bounds every remote call. Calls exceeding it are classified
// as network failures of that step.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics attaches request counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

// NewHTTPClient builds a client for the backend at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: defaultRequestTimeout,
		log:     logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// errorBody is the backend's error payload shape.
type errorBody struct {
	Message string `json:"message"`
}

// do performs one request and returns the raw response body. Transport
// failures and non-2xx statuses come back already classified.
func (c *HTTPClient) do(ctx context.Context, op, method, path, token string, body io.Reader, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(op, "network_error")
		return nil, common.Wrap(err, common.CodeNetwork, "server unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPI(op, "network_error")
		return nil, common.Wrap(err, common.CodeNetwork, "failed to read response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.metrics.ObserveAPI(op, "ok")
		return data, nil
	}

	c.metrics.ObserveAPI(op, fmt.Sprintf("http_%d", resp.StatusCode))
	return nil, c.classifyStatus(ctx, op, resp.StatusCode, data)
}

func (c *HTTPClient) classifyStatus(ctx context.Context, op string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = "session expired"
		}
		return common.New(common.CodeAuth, msg)
	case status >= 400 && status < 500:
		if msg == "" {
			msg = fmt.Sprintf("request rejected (%d)", status)
		}
		return common.New(common.CodeValidation, msg)
	default:
		c.log.Warn(ctx, "server error", "operation", op, "status", status)
		if msg == "" {
			msg = fmt.Sprintf("server error (%d)", status)
		}
		return common.New(common.CodeInternal, msg)
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, op, path, token string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to encode request")
	}
	return c.do(ctx, op, http.MethodPost, path, token, bytes.NewReader(payload), "application/json")
}

func (c *HTTPClient) putJSON(ctx context.Context, op, path, token string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to encode request")
	}
	return c.do(ctx, op, http.MethodPut, path, token, bytes.NewReader(payload), "application/json")
}

// uploadMultipart streams the asset's local file as form field "photo".
func (c *HTTPClient) uploadMultipart(ctx context.Context, op, path, token string, asset models.PhotoAsset) ([]byte, error) {
	if asset.LocalURI == "" {
		return nil, common.New(common.CodeValidation, "asset has no local file")
	}

	file, err := os.Open(asset.LocalURI)
	if err != nil {
		return nil, common.Wrap(err, common.CodeValidation, "failed to open asset file")
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := asset.Filename
	if name == "" {
		name = filepath.Base(asset.LocalURI)
	}
	part, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to build form")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to read asset file")
	}
	if err := mw.Close(); err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to finish form")
	}

	return c.do(ctx, op, http.MethodPost, path, token, &buf, mw.FormDataContentType())
}

func decodeJSON[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to decode response")
	}
	return &v, nil
}

func (c *HTTPClient) Register(ctx context.Context, in Registration) (*models.User, error) {
	data, err := c.postJSON(ctx, "register", "/users", "", in)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(data)
}

func (c *HTTPClient) Login(ctx context.Context, in Credentials) (*models.User, error) {
	data, err := c.postJSON(ctx, "login", "/users/login", "", in)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(data)
}

func (c *HTTPClient) GetProfile(ctx context.Context, token string) (*models.User, error) {
	data, err := c.do(ctx, "get_profile", http.MethodGet, "/users/me", token, nil, "")
	if err != nil {
		return nil, err
	}
	return c.decodeUser(data)
}

func (c *HTTPClient) UpdateDID(ctx context.Context, token, userID string, walletAddress *string) (*models.User, error) {
	body := map[string]*string{"walletAddress": walletAddress}
	data, err := c.putJSON(ctx, "update_did", "/"+userID+"/did", token, body)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(data)
}

// decodeUser normalizes the backend's shape-shifting user payloads.
func (c *HTTPClient) decodeUser(data []byte) (*models.User, error) {
	u, err := models.DecodeUser(data)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to decode user")
	}
	if u == nil {
		return nil, common.New(common.CodeInternal, "empty user in response")
	}
	return u, nil
}

func (c *HTTPClient) GetAvatar(ctx context.Context, token string) (*models.Avatar, error) {
	data, err := c.do(ctx, "get_avatar", http.MethodGet, "/avatar", token, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeJSON[models.Avatar](data)
}

func (c *HTTPClient) UploadAvatar(ctx context.Context, token string, asset models.PhotoAsset) (*models.Avatar, error) {
	data, err := c.uploadMultipart(ctx, "upload_avatar", "/avatar", token, asset)
	if err != nil {
		return nil, err
	}
	avatar, err := decodeJSON[models.Avatar](data)
	if err != nil {
		return nil, err
	}
	// The backend resolves avatar content by id; keep the URI absolute so
	// the display layer never has to know the base URL.
	if avatar.URI == "" {
		avatar.URI = c.baseURL + "/avatar/" + avatar.ID
	}
	return avatar, nil
}

func (c *HTTPClient) DeleteAvatar(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, "delete_avatar", http.MethodDelete, "/avatar/"+id, token, nil, "")
	return err
}

func (c *HTTPClient) UploadPhoto(ctx context.Context, token string, asset models.PhotoAsset) (*models.PhotoAsset, error) {
	data, err := c.uploadMultipart(ctx, "upload_photo", "/photos", token, asset)
	if err != nil {
		return nil, err
	}
	return decodeJSON[models.PhotoAsset](data)
}

func (c *HTTPClient) ListPhotos(ctx context.Context, token string) ([]models.PhotoAsset, error) {
	data, err := c.do(ctx, "list_photos", http.MethodGet, "/photos", token, nil, "")
	if err != nil {
		return nil, err
	}
	var photos []models.PhotoAsset
	if err := json.Unmarshal(data, &photos); err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to decode photos")
	}
	return photos, nil
}

func (c *HTTPClient) DeletePhoto(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, "delete_photo", http.MethodDelete, "/photos/"+id, token, nil, "")
	return err
}

func (c *HTTPClient) ListMyRequests(ctx context.Context, token string) ([]models.VerificationRequest, error) {
	data, err := c.do(ctx, "list_requests", http.MethodGet, "/verification-request/mine", token, nil, "")
	if err != nil {
		return nil, err
	}
	var requests []models.VerificationRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to decode requests")
	}
	return requests, nil
}

func (c *HTTPClient) CreateRequest(ctx context.Context, token string, in CreateRequestInput) (*models.VerificationRequest, error) {
	data, err := c.postJSON(ctx, "create_request", "/verification-request", token, in)
	if err != nil {
		return nil, err
	}
	return decodeJSON[models.VerificationRequest](data)
}

var _ Client = (*HTTPClient)(nil)

// IsNetworkTimeout reports whether err was a deadline-style failure, which
// callers may present differently from a refused connection.
func IsNetworkTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
