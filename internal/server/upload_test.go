package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blobNameRe = regexp.MustCompile(`^file-\d+-\d+(\.[A-Za-z0-9]+)?$`)

func TestGenerateBlobName(t *testing.T) {
	name := generateBlobName("file", "photo.png")
	assert.Regexp(t, blobNameRe, name)
	assert.True(t, strings.HasSuffix(name, ".png"))

	noExt := generateBlobName("file", "README")
	assert.Regexp(t, blobNameRe, noExt)
	assert.NotContains(t, noExt, ".")

	// Only the final extension survives for dotted names.
	tarball := generateBlobName("file", "a.tar.gz")
	assert.Regexp(t, blobNameRe, tarball)
	assert.True(t, strings.HasSuffix(tarball, ".gz"))
}

func TestSanitizeExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{".png", ".png"},
		{".pdf", ".pdf"},
		{"", ""},
		{".", ""},
		{`.px/`, ""}, // separator smuggled into the ext
		{".mp3", ".mp3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeExt(tt.in), "ext %q", tt.in)
	}
}

// multipartBody builds a multipart payload with one part named
// fieldName holding the given filename and content.
func multipartBody(t *testing.T, fieldName, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, filename),
	}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, cfg Config, body *bytes.Buffer, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	rr := httptest.NewRecorder()
	cfg.uploadHandler().ServeHTTP(rr, req)
	return rr
}

func sessionToken(t *testing.T, cfg Config) string {
	t.Helper()
	tok, _, err := cfg.Auth.makeToken("user-1")
	require.NoError(t, err)
	return tok
}

func TestUploadRequiresSession(t *testing.T) {
	cfg := newTestConfig(t)
	body, ct := multipartBody(t, "file", "a.png", "image/png", []byte("png-bytes"))

	t.Run("no token", func(t *testing.T) {
		rr := uploadRequest(t, cfg, body, ct, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.png", "image/png", []byte("png-bytes"))
		rr := uploadRequest(t, cfg, body, ct, "bogus.token.value")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUploadNoFilePart(t *testing.T) {
	cfg := newTestConfig(t)
	tok := sessionToken(t, cfg)

	t.Run("not multipart", func(t *testing.T) {
		rr := uploadRequest(t, cfg, bytes.NewBufferString("{}"), "application/json", tok)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp messageResp
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "No file uploaded", resp.Message)
	})

	t.Run("wrong field name", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "a.png", "image/png", []byte("png-bytes"))
		rr := uploadRequest(t, cfg, body, ct, tok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("plain form field named file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("file", "just a string value"))
		require.NoError(t, mw.Close())

		rr := uploadRequest(t, cfg, &buf, mw.FormDataContentType(), tok)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp messageResp
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "No file uploaded", resp.Message)
	})
}

func TestUploadSuccess(t *testing.T) {
	cfg := newTestConfig(t)
	tok := sessionToken(t, cfg)

	content := []byte("these are the original bytes")
	body, ct := multipartBody(t, "file", "notes.pdf", "application/pdf", content)
	rr := uploadRequest(t, cfg, body, ct, tok)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp uploadResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.URL, "http://localhost:5000/uploads/file-"))
	assert.True(t, strings.HasSuffix(resp.URL, ".pdf"))

	// The stored blob holds the original bytes.
	name := resp.URL[strings.LastIndex(resp.URL, "/")+1:]
	blob, err := cfg.Blobs.Get(t.Context(), name)
	require.NoError(t, err)
	defer blob.Reader.Close()
	got, err := io.ReadAll(blob.Reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestUploadSizeLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Upload.MaxSizeBytes = 64
	tok := sessionToken(t, cfg)

	body, ct := multipartBody(t, "file", "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 4096))
	rr := uploadRequest(t, cfg, body, ct, tok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestUploadTypeAllowList(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Upload.AllowedTypes = []string{"image/png", "application/pdf"}
	tok := sessionToken(t, cfg)

	t.Run("allowed", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.png", "image/png", []byte("ok"))
		rr := uploadRequest(t, cfg, body, ct, tok)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("disallowed", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "e.exe", "application/x-msdownload", []byte("nope"))
		rr := uploadRequest(t, cfg, body, ct, tok)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})
}

func TestConcurrentUploadsSameNameGetDistinctURLs(t *testing.T) {
	cfg := newTestConfig(t)
	tok := sessionToken(t, cfg)

	const n = 8
	urls := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, ct := multipartBody(t, "file", "same.png", "image/png", []byte(fmt.Sprintf("copy %d", i)))
			rr := uploadRequest(t, cfg, body, ct, tok)
			if rr.Code != http.StatusOK {
				t.Errorf("upload %d: status %d", i, rr.Code)
				return
			}
			var resp uploadResp
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Errorf("upload %d: %v", i, err)
				return
			}
			urls[i] = resp.URL
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, u := range urls {
		require.NotEmpty(t, u)
		assert.False(t, seen[u], "duplicate URL %s", u)
		seen[u] = true
	}
}
