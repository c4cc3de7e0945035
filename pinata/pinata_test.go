package pinata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clienterrors "github.com/ticketbase/ticketd/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		JWT:         "test-jwt",
		APIBase:     srv.URL,
		GatewayHost: "https://gw.example",
		HTTPClient:  srv.Client(),
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresJWT(t *testing.T) {
	_, err := NewClient(Options{}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
}

func TestUploadImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "poster.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)

		json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmTest"})
	})

	url, err := c.UploadImage(context.Background(), []byte{1, 2, 3}, "image/png", "poster.png")
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/QmTest", url)
}

func TestUploadImageValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the server")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.UploadImage(context.Background(), nil, "image/png", "a.png")
		require.Error(t, err)
		assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
	})

	t.Run("oversized", func(t *testing.T) {
		_, err := c.UploadImage(context.Background(), make([]byte, MaxImageSize+1), "image/png", "a.png")
		require.Error(t, err)
		assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
	})

	t.Run("non-image type", func(t *testing.T) {
		_, err := c.UploadImage(context.Background(), []byte{1}, "application/pdf", "a.pdf")
		require.Error(t, err)
		assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
	})
}

func TestUploadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"pinataContent"`)
		assert.Contains(t, string(body), `"name":"Summit"`)

		json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmMeta"})
	})

	url, err := c.UploadJSON(context.Background(), map[string]string{"name": "Summit"})
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/QmMeta", url)
}

func TestUploadSurfacesStorageErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.UploadJSON(context.Background(), map[string]string{"a": "b"})
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeStorage))
	assert.True(t, strings.Contains(err.Error(), "429"))
}
