package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headline struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestClient_GetDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/news", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","title":"Dhaka"}]}`))
	}))
	defer server.Close()

	c := NewFromOrigin(server.URL)
	var out []headline
	err := c.Get(WithToken(context.Background(), "secret"), Collection("news"), &out)

	require.NoError(t, err)
	assert.Equal(t, []headline{{ID: "1", Title: "Dhaka"}}, out)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	err := New(server.URL+APIPrefix).Get(context.Background(), "/categories", nil)
	assert.NoError(t, err)
}

func TestClient_SendJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/news/7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"Updated"}`, string(body))
		_, _ = w.Write([]byte(`{"id":"7","title":"Updated"}`))
	}))
	defer server.Close()

	var out headline
	err := NewFromOrigin(server.URL).SendJSON(context.Background(), http.MethodPatch, Item("news", "7"),
		map[string]string{"title": "Updated"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Updated", out.Title)
}

func TestClient_SendMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Budget", r.FormValue("title"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cover.jpg", hdr.Filename)
		assert.Equal(t, "jpegbytes", string(data))
		_, _ = w.Write([]byte(`{"id":"9","title":"Budget"}`))
	}))
	defer server.Close()

	form := NewForm().Set("title", "Budget").AddFile(File{
		Field:       "image",
		Name:        "cover.jpg",
		ContentType: "image/jpeg",
		Content:     strings.NewReader("jpegbytes"),
	})
	assert.True(t, form.HasFiles())

	var out headline
	err := NewFromOrigin(server.URL).SendMultipart(context.Background(), http.MethodPost, Collection("news"), form, &out)
	require.NoError(t, err)
	assert.Equal(t, "9", out.ID)
}

func TestClient_ErrorStatusIsTypedAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer server.Close()

	err := NewFromOrigin(server.URL).Get(context.Background(), "/jobs", nil)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "maintenance", apiErr.Message)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(1), calls.Load(), "requests are single attempt")
}

func TestClient_CircuitOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewFromOrigin(server.URL, WithBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		assert.Error(t, c.Get(context.Background(), "/news", nil))
	}

	err := c.Get(context.Background(), "/news", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewFromOrigin(server.URL, WithBreaker(1, time.Minute))
	for i := 0; i < 3; i++ {
		err := c.Get(context.Background(), Item("news", "missing"), nil)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	}
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "/news", Collection("news"))
	assert.Equal(t, "/news/a%2Fb", Item("news", "a/b"))
	assert.Equal(t, "/news/4/comments", Sub("news", "4", "comments"))
	assert.Equal(t, "/poll/3/vote/12", Vote("3", "12"))
	assert.Equal(t, "/news?page=2", WithQuery("/news", map[string][]string{"page": {"2"}}))
}
