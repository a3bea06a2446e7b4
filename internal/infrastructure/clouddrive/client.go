package clouddrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"steelloop/internal/config"
	"steelloop/internal/domain"
	"steelloop/internal/orchestrator"
	"steelloop/internal/ports"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client talks to a Drive-v3 style files API and its OAuth token endpoint.
type Client struct {
	apiBase      string
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	now          func() time.Time
}

var _ ports.CloudDrive = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.CloudDriveConfig, opts ...Option) *Client {
	c := &Client{
		apiBase:      strings.TrimSuffix(cfg.APIBase, "/"),
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
	} `json:"files"`
}

// ListFolder returns the non-folder children of folderID, following pagination.
func (c *Client) ListFolder(ctx context.Context, conn domain.CloudConnection, folderID string) ([]ports.RemoteFile, error) {
	if folderID == "" {
		return nil, orchestrator.Permanent(errors.New("list folder: folder id is empty"))
	}

	var (
		files     []ports.RemoteFile
		pageToken string
	)
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`)))
		q.Set("fields", "nextPageToken, files(id, name, mimeType)")
		q.Set("pageSize", "100")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.getJSON(ctx, conn, c.apiBase+"/files?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		for _, f := range page.Files {
			if f.MimeType == folderMimeType {
				continue
			}
			files = append(files, ports.RemoteFile{ID: f.ID, Name: f.Name, MimeType: f.MimeType})
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// Download streams the content of fileID. The caller closes the body.
func (c *Client) Download(ctx context.Context, conn domain.CloudConnection, fileID string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, conn, c.apiBase+"/files/"+url.PathEscape(fileID)+"?alt=media")
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return resp.Body, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken exchanges the refresh token for a new access token. The
// provider may rotate the refresh token; otherwise the old one is kept.
func (c *Client) RefreshToken(ctx context.Context, conn domain.CloudConnection) (domain.CloudConnection, error) {
	if conn.RefreshToken == "" {
		return domain.CloudConnection{}, orchestrator.Permanent(errors.New("refresh token: connection has no refresh token"))
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.CloudConnection{}, orchestrator.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(ctx, req)
	if err != nil {
		return domain.CloudConnection{}, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return domain.CloudConnection{}, fmt.Errorf("%w: decode token response: %v", orchestrator.ErrTransient, err)
	}
	if tok.AccessToken == "" {
		return domain.CloudConnection{}, orchestrator.Permanent(errors.New("refresh token: empty access token"))
	}

	refreshed := conn
	refreshed.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	refreshed.TokenExpiry = c.now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return refreshed, nil
}

func (c *Client) getJSON(ctx context.Context, conn domain.CloudConnection, endpoint string, v any) error {
	resp, err := c.do(ctx, conn, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", orchestrator.ErrTransient, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, conn domain.CloudConnection, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, orchestrator.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	return c.send(ctx, req)
}

// send performs req and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: do request: %v", orchestrator.ErrTransient, err)
	}
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_ = resp.Body.Close()
	statusErr := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %w", orchestrator.ErrTransient, statusErr)
	}
	return nil, orchestrator.Permanent(statusErr)
}
