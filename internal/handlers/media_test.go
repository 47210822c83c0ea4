package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dm-service/internal/storage"
)

func TestServeBlobFromMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	blobs := storage.NewMemoryStore("http://localhost:8083/media")
	ref, err := blobs.Put(context.Background(), "media/alice/1", "image/png", []byte("png"))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/media/*ref", ServeBlob(blobs))

	url, err := blobs.URL(context.Background(), ref)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
