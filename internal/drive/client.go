package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/auth"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// Client is a OneDrive client backed by the Microsoft Graph API. Every call
// authenticates through the credential store; a 401 triggers exactly one
// refresh-and-retry before the failure escalates.
type Client struct {
	baseURL    string
	creds      *auth.Store
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a drive client
func NewClient(baseURL string, creds *auth.Store, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "drive"),
	}
}

// driveItem mirrors the Graph driveItem fields this service reads
type driveItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	WebURL      string `json:"webUrl"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
	Folder      *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

func (it driveItem) toModel() models.RemoteItem {
	return models.RemoteItem{
		ID:       it.ID,
		Name:     it.Name,
		Size:     it.Size,
		IsFolder: it.Folder != nil,
		WebURL:   it.WebURL,
	}
}

type listResponse struct {
	Value []driveItem `json:"value"`
}

// ListRoot lists the drive root children
func (c *Client) ListRoot(ctx context.Context) ([]models.RemoteItem, error) {
	return c.list(ctx, "/me/drive/root/children")
}

// ListChildren lists the contents of a folder
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]models.RemoteItem, error) {
	return c.list(ctx, "/me/drive/items/"+url.PathEscape(folderID)+"/children")
}

func (c *Client) list(ctx context.Context, path string) ([]models.RemoteItem, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	items := make([]models.RemoteItem, 0, len(resp.Value))
	for _, it := range resp.Value {
		items = append(items, it.toModel())
	}
	return items, nil
}

// Get fetches item metadata plus its time-limited download URL
func (c *Client) Get(ctx context.Context, itemID string) (models.RemoteItem, string, error) {
	body, err := c.do(ctx, http.MethodGet, "/me/drive/items/"+url.PathEscape(itemID), nil, "")
	if err != nil {
		return models.RemoteItem{}, "", err
	}

	var it driveItem
	if err := json.Unmarshal(body, &it); err != nil {
		return models.RemoteItem{}, "", fmt.Errorf("failed to parse item: %w", err)
	}
	return it.toModel(), it.DownloadURL, nil
}

// Download fetches raw bytes from a pre-authenticated download URL.
// No bearer token: the URL itself carries the authorization.
func (c *Client) Download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Remote(resp.StatusCode, "content download failed", string(content))
	}

	return content, nil
}

// DownloadItem fetches an item's name and content in one go
func (c *Client) DownloadItem(ctx context.Context, itemID string) (string, []byte, error) {
	item, downloadURL, err := c.Get(ctx, itemID)
	if err != nil {
		return "", nil, err
	}
	if downloadURL == "" {
		return "", nil, errs.New(errs.KindRemoteStore, "item has no download URL (is it a folder?)")
	}

	content, err := c.Download(ctx, downloadURL)
	if err != nil {
		return "", nil, err
	}
	return item.Name, content, nil
}

// CreateFolder creates a folder under parentID (drive root when empty) with
// conflict-behavior rename, so a concurrent creator gets a suffixed name
// instead of an error.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (models.RemoteItem, error) {
	path := "/me/drive/root/children"
	if parentID != "" {
		path = "/me/drive/items/" + url.PathEscape(parentID) + "/children"
	}

	payload, err := json.Marshal(map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "rename",
	})
	if err != nil {
		return models.RemoteItem{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, path, payload, "application/json")
	if err != nil {
		return models.RemoteItem{}, err
	}

	var it driveItem
	if err := json.Unmarshal(body, &it); err != nil {
		return models.RemoteItem{}, fmt.Errorf("failed to parse created folder: %w", err)
	}

	c.logger.Info("created folder", "name", it.Name, "id", it.ID)
	return it.toModel(), nil
}

// Upload writes content as name into the given folder, replacing any
// existing file with that name
func (c *Client) Upload(ctx context.Context, folderID, name string, content []byte, contentType string) (models.RemoteItem, error) {
	path := "/me/drive/items/" + url.PathEscape(folderID) + ":/" + url.PathEscape(name) + ":/content"

	body, err := c.do(ctx, http.MethodPut, path, content, contentType)
	if err != nil {
		return models.RemoteItem{}, err
	}

	var it driveItem
	if err := json.Unmarshal(body, &it); err != nil {
		return models.RemoteItem{}, fmt.Errorf("failed to parse uploaded item: %w", err)
	}
	return it.toModel(), nil
}

// Search looks up items whose name matches the query
func (c *Client) Search(ctx context.Context, query string) ([]models.RemoteItem, error) {
	// single quotes delimit the term; Graph expects embedded ones doubled
	q := strings.ReplaceAll(query, "'", "''")
	return c.list(ctx, "/me/drive/root/search(q='"+url.PathEscape(q)+"')")
}

// Probe verifies the current credential against the drive endpoint
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/me/drive", nil, "")
	return err
}

// do performs an authenticated request. On a 401 it refreshes the credential
// and retries exactly once; a second 401 escalates to the caller.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	respBody, err := c.attempt(ctx, method, path, body, contentType)
	if err == nil || errs.KindOf(err) != errs.KindUnauthorized {
		return respBody, err
	}

	c.logger.Warn("drive call unauthorized, refreshing token", "path", path)
	if rerr := c.creds.Refresh(ctx); rerr != nil {
		return nil, rerr
	}
	return c.attempt(ctx, method, path, body, contentType)
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errs.Remote(resp.StatusCode, "access token expired or invalid", string(respBody))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errs.Remote(resp.StatusCode, "drive API error", string(respBody))
	}

	return respBody, nil
}
