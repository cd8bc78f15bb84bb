package glacier

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flo-mic/glacierbak/internal/jobs"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := aws.Config{
		Region:      "eu-west-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDTEST", "secret", ""),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFromConfig(cfg, "photos", log, func(o *glacier.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.RetryMaxAttempts = 1
	})
}

func TestJobStatus(t *testing.T) {
	codes := map[string]string{"j-ok": "Succeeded", "j-bad": "Failed", "j-run": "InProgress"}
	mux := http.NewServeMux()
	mux.HandleFunc("/-/vaults/photos/jobs/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/-/vaults/photos/jobs/"):]
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"JobId":"`+id+`","Action":"InventoryRetrieval","StatusCode":"`+codes[id]+`","StatusMessage":"m"}`)
	})
	c := newTestClient(t, mux)

	tests := map[string]jobs.Status{"j-ok": jobs.StatusSucceeded, "j-bad": jobs.StatusFailed, "j-run": jobs.StatusPending}
	for id, want := range tests {
		got, msg, err := c.JobStatus(context.Background(), "photos", id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
		assert.Equal(t, "m", msg)
	}
}

func TestJobOutput(t *testing.T) {
	body := `{"VaultARN":"arn","InventoryDate":"2024-05-30T06:12:00Z","ArchiveList":[]}`
	mux := http.NewServeMux()
	mux.HandleFunc("/-/vaults/photos/jobs/j1/output", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})
	c := newTestClient(t, mux)

	data, err := c.JobOutput(context.Background(), "photos", "j1")
	require.NoError(t, err)
	assert.JSONEq(t, body, string(data))
}

func TestRequestInventory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/-/vaults/photos/jobs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		payload, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(payload), "inventory-retrieval")
		w.Header().Set("x-amz-job-id", "job-123")
		w.Header().Set("Location", "/-/vaults/photos/jobs/job-123")
		w.WriteHeader(http.StatusAccepted)
	})
	c := newTestClient(t, mux)

	id, err := c.RequestInventory(context.Background(), "photos")
	require.NoError(t, err)
	assert.Equal(t, "job-123", id)
}

func TestDeleteArchive(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("/-/vaults/photos/archives/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path[len("/-/vaults/photos/archives/"):]
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.DeleteArchive(context.Background(), "arch-1"))
	assert.Equal(t, "arch-1", deleted)
}

func TestErrorCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/-/vaults/photos/archives/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Amzn-Errortype", "ResourceNotFoundException")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"code":"ResourceNotFoundException","message":"Archive not found","type":"Client"}`)
	})
	c := newTestClient(t, mux)

	err := c.DeleteArchive(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "ResourceNotFoundException", ErrorCode(err))
	assert.Contains(t, err.Error(), "DeleteArchive")
	assert.Equal(t, "", ErrorCode(io.EOF))
}
