package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// FrameIOClient creates an asset under a project and then PUTs the file
// body to the upload URL the API hands back.
type FrameIOClient struct {
	baseURL    string
	token      string
	projectID  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewFrameIOClient(baseURL, token, projectID string, timeout time.Duration, logger *slog.Logger) *FrameIOClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &FrameIOClient{
		baseURL:    baseURL,
		token:      token,
		projectID:  projectID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type createAssetRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	FileType string `json:"filetype"`
	FileSize int64  `json:"filesize"`
}

type createAssetResponse struct {
	ID        string `json:"id"`
	UploadURL string `json:"upload_url"`
}

func (c *FrameIOClient) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	name := filepath.Base(filePath)
	ct := contentType(filePath)
	asset, err := c.createAsset(ctx, createAssetRequest{
		Name:     name,
		Type:     "file",
		FileType: ct,
		FileSize: info.Size(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, asset.UploadURL, f)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", ct)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{Op: "frame.io upload", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Info("uploaded clip to frame.io",
		"name", name,
		"asset_id", asset.ID,
		"size", humanize.Bytes(uint64(info.Size())),
	)
	return &UploadResult{Name: name, Destination: "frameio", Location: asset.ID, Size: info.Size()}, nil
}

func (c *FrameIOClient) createAsset(ctx context.Context, payload createAssetRequest) (*createAssetResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal asset payload: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/assets", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusCreated {
		return nil, &UploadError{Op: "frame.io create asset", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var asset createAssetResponse
	if err := json.Unmarshal(respBody, &asset); err != nil {
		return nil, fmt.Errorf("decode asset response: %w", err)
	}
	if asset.UploadURL == "" {
		return nil, fmt.Errorf("frame.io create asset: response has no upload_url")
	}
	return &asset, nil
}
