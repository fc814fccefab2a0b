package infrastructure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/obidl-go/internal/domain"
)

func newTestMegaClient(endpoint string) *MegaClient {
	return NewMegaClient(domain.MegaConfig{
		APIEndpoint: endpoint,
		Timeout:     5 * time.Second,
	}, nil)
}

func TestMegaClient_PublicFileInfo(t *testing.T) {
	_, fk := testFileKey()
	attr := encryptAttr(t, fk.AESKey, "dataset.tar.gz")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var batch []map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch, 1)
		assert.Equal(t, "g", batch[0]["a"])
		assert.Equal(t, "B3kg2Z", batch[0]["p"])

		fmt.Fprintf(w, `[{"g":"https://gfs.mega.example/dl","s":1048576,"at":%q}]`,
			base64.RawURLEncoding.EncodeToString(attr))
	}))
	defer srv.Close()

	client := newTestMegaClient(srv.URL)
	info, err := client.PublicFileInfo(context.Background(), "B3kg2Z", fk)
	require.NoError(t, err)

	assert.Equal(t, "https://gfs.mega.example/dl", info.DownloadURL)
	assert.Equal(t, int64(1048576), info.Size)
	assert.Equal(t, "dataset.tar.gz", info.Name)
}

func TestMegaClient_BatchLevelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "-9")
	}))
	defer srv.Close()

	_, fk := testFileKey()
	client := newTestMegaClient(srv.URL)
	_, err := client.PublicFileInfo(context.Background(), "gone", fk)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorFatal, domain.KindOf(err))
}

func TestMegaClient_ElementLevelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[-3]")
	}))
	defer srv.Close()

	_, fk := testFileKey()
	client := newTestMegaClient(srv.URL)
	_, err := client.PublicFileInfo(context.Background(), "busy", fk)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorRetryable))
}

func TestMegaClient_MissingDownloadURLIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"s":10,"at":""}]`)
	}))
	defer srv.Close()

	_, fk := testFileKey()
	client := newTestMegaClient(srv.URL)
	_, err := client.PublicFileInfo(context.Background(), "hidden", fk)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorRetryable))
}

func TestMegaClient_RateLimitCarriesHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, fk := testFileKey()
	client := newTestMegaClient(srv.URL)
	_, err := client.PublicFileInfo(context.Background(), "limited", fk)
	require.Error(t, err)

	var de *domain.DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorRetryable, de.Kind)
	assert.Equal(t, 15*time.Second, de.RetryAfter)
}

func TestMegaClient_SequenceNumberAdvances(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.URL.Query().Get("id"))
		fmt.Fprint(w, "-9")
	}))
	defer srv.Close()

	_, fk := testFileKey()
	client := newTestMegaClient(srv.URL)
	client.PublicFileInfo(context.Background(), "a", fk)
	client.PublicFileInfo(context.Background(), "b", fk)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}
