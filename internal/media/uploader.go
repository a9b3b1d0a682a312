package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/burhanit11/youtubechannel-backend/pkg/httpclient"
)

// Uploader pushes a locally staged file to the media host and returns the
// durable URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// StageFile writes an incoming multipart file to a temp file on local disk
// and returns its path. The caller is responsible for removing the file
// once the upload attempt is done.
func StageFile(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(header.Filename)
	dst, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return dst.Name(), nil
}

// RemoveStaged deletes staged files once the upload attempt is over. Empty
// paths are skipped.
func RemoveStaged(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}

// uploadResponse is the media host's success envelope.
type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Client uploads staged files to the media host over HTTP. Calls go through
// a circuit breaker so a struggling media host degrades instead of piling up.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a media host client.
func NewClient(cbClient *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    cbClient,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Upload streams the staged file to the media host as a multipart form and
// returns the durable URL from the response.
func (c *Client) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", uuid.New().String()+filepath.Ext(localPath))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	resp, err := c.http.Post(ctx, c.baseURL+"/api/v1/media", mw.FormDataContentType(), pr)
	if err != nil {
		return "", fmt.Errorf("upload to media host: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", httpclient.ParseResponseError(resp, "media-host")
	}
	defer func() { _ = resp.Body.Close() }()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode media host response: %w", err)
	}
	if out.Data.URL == "" {
		return "", fmt.Errorf("media host returned %d without a url", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "file uploaded",
		slog.String("path", localPath),
		slog.String("url", out.Data.URL),
	)

	return out.Data.URL, nil
}
