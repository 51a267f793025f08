// Package syncclient talks to the remote store on behalf of one session.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/snapsync/internal/domain"
)

// RemoteError is a failure reported by the remote store itself.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote store returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote store returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// UploadFile is one entry of a batch. Open is called lazily so a batch of
// paths does not hold every file open at once.
type UploadFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

func FromPath(path string) UploadFile {
	return UploadFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

func FromBytes(name string, data []byte) UploadFile {
	return UploadFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

type FileError struct {
	Name string
	Err  error
}

type BatchResult struct {
	Uploaded []string
	Failed   []FileError
}

type Client struct {
	baseURL string
	session domain.Session
	client  *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func New(baseURL string, session domain.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() domain.Session { return c.session }

// UploadEndpointFor returns the multipart upload URL for the session.
func (c *Client) UploadEndpointFor() string {
	return c.endpoint("storage", "upload")
}

// DownloadLinkFor returns the download URL of a stored file. Nothing is fetched.
func (c *Client) DownloadLinkFor(name string) string {
	return c.endpoint("storage", "download") + "/" + url.PathEscape(name)
}

func (c *Client) endpoint(parts ...string) string {
	return c.baseURL + "/api/" + strings.Join(parts, "/") + "/" + url.PathEscape(c.session.String())
}

func (c *Client) Upload(ctx context.Context, name string, r io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadEndpointFor(), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.do(req, "upload", &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &RemoteError{Op: "upload", StatusCode: http.StatusOK, Message: "upload not acknowledged"}
	}
	return nil
}

// UploadBatch uploads files strictly one after another. A failing file is
// recorded and the batch moves on.
func (c *Client) UploadBatch(ctx context.Context, files []UploadFile) BatchResult {
	var res BatchResult
	for _, f := range files {
		if err := c.uploadOne(ctx, f); err != nil {
			res.Failed = append(res.Failed, FileError{Name: f.Name, Err: err})
			continue
		}
		res.Uploaded = append(res.Uploaded, f.Name)
	}
	return res
}

func (c *Client) uploadOne(ctx context.Context, f UploadFile) error {
	if f.Open == nil {
		return fmt.Errorf("no content for %s", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return c.Upload(ctx, f.Name, rc)
}

func (c *Client) List(ctx context.Context) ([]domain.RemoteFileEntry, error) {
	var resp struct {
		Files []domain.RemoteFileEntry `json:"files"`
	}
	if err := c.get(ctx, "list", c.endpoint("storage", "list"), &resp); err != nil {
		return nil, err
	}
	if resp.Files == nil {
		return []domain.RemoteFileEntry{}, nil
	}
	return resp.Files, nil
}

func (c *Client) Stats(ctx context.Context) (domain.StorageStats, error) {
	var stats domain.StorageStats
	if err := c.get(ctx, "stats", c.endpoint("storage", "stats"), &stats); err != nil {
		return domain.StorageStats{}, err
	}
	return stats, nil
}

func (c *Client) Gallery(ctx context.Context) ([]domain.GalleryEntry, error) {
	var resp struct {
		Gallery []domain.GalleryEntry `json:"gallery"`
	}
	if err := c.get(ctx, "gallery", c.endpoint("gallery"), &resp); err != nil {
		return nil, err
	}
	if resp.Gallery == nil {
		return []domain.GalleryEntry{}, nil
	}
	return resp.Gallery, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, op, out)
}

// do executes req and decodes the JSON body into out. A non-2xx status or a
// body carrying an "error" field becomes a *RemoteError.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call remote store: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if envelope.Error != "" {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
