// Package pinata pins event artwork and metadata JSON through the Pinata
// REST API. Size and content-type validation happens here, before any
// bytes leave the process.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	clienterrors "github.com/ticketbase/ticketd/errors"
)

// MaxImageSize is the upload cap for event artwork.
const MaxImageSize = 5 * 1024 * 1024

const defaultAPIBase = "https://api.pinata.cloud"

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Options configure the client. JWT is required; APIBase and GatewayHost
// default to Pinata's public endpoints.
type Options struct {
	JWT         string
	APIBase     string
	GatewayHost string
	HTTPClient  *http.Client
}

// Client pins content and returns gateway URLs for it.
type Client struct {
	jwt     string
	apiBase string
	gateway string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.JWT == "" {
		return nil, clienterrors.NewInvalidInput("pinata JWT")
	}
	apiBase := opts.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	gateway := opts.GatewayHost
	if gateway == "" {
		gateway = "https://gateway.pinata.cloud"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		jwt:     opts.JWT,
		apiBase: strings.TrimSuffix(apiBase, "/"),
		gateway: strings.TrimSuffix(gateway, "/"),
		http:    httpClient,
		logger:  logger.With().Str("component", "pinata").Logger(),
	}, nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// UploadImage validates and pins raw image bytes, returning the gateway
// URL of the pinned file.
func (c *Client) UploadImage(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	if len(data) == 0 {
		return "", clienterrors.NewInvalidInput("image data")
	}
	if len(data) > MaxImageSize {
		return "", clienterrors.Newf(clienterrors.CodeValidation, "image is %d bytes, limit is %d", len(data), MaxImageSize)
	}
	if _, ok := allowedImageTypes[strings.ToLower(contentType)]; !ok {
		return "", clienterrors.Newf(clienterrors.CodeValidation, "unsupported image type %q", contentType)
	}
	if filename == "" {
		filename = "upload"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to build upload body")
	}
	if _, err := part.Write(data); err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to build upload body")
	}
	if err := writer.Close(); err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to build upload body")
	}

	hash, err := c.pin(ctx, "/pinning/pinFileToIPFS", &body, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	c.logger.Info().Str("cid", hash).Int("bytes", len(data)).Msg("image pinned")
	return c.gatewayURL(hash), nil
}

// UploadJSON pins an arbitrary document as JSON and returns its gateway
// URL.
func (c *Client) UploadJSON(ctx context.Context, v any) (string, error) {
	payload, err := json.Marshal(map[string]any{"pinataContent": v})
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to encode metadata")
	}

	hash, err := c.pin(ctx, "/pinning/pinJSONToIPFS", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	c.logger.Info().Str("cid", hash).Msg("metadata pinned")
	return c.gatewayURL(hash), nil
}

func (c *Client) pin(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, body)
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to build pin request")
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "pin request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeStorage, "failed to read pin response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", clienterrors.Newf(clienterrors.CodeStorage, "pin rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed pinResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.IpfsHash == "" {
		return "", clienterrors.New(clienterrors.CodeStorage, "pin response had no content hash")
	}
	return parsed.IpfsHash, nil
}

func (c *Client) gatewayURL(hash string) string {
	return fmt.Sprintf("%s/ipfs/%s", c.gateway, hash)
}
