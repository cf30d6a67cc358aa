package pkg

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type TestHttpResponseWriter struct {
	HeaderMap  http.Header
	Body       []byte
	StatusCode int
}

func (w *TestHttpResponseWriter) Header() http.Header {
	return w.HeaderMap
}

func (w *TestHttpResponseWriter) Write(bytes []byte) (int, error) {
	w.Body = append(w.Body, bytes...)
	return len(bytes), nil
}

func (w *TestHttpResponseWriter) WriteHeader(statusCode int) {
	w.StatusCode = statusCode
}

func newTestWriter() *TestHttpResponseWriter {
	return &TestHttpResponseWriter{HeaderMap: make(http.Header)}
}

func TestWriteResponseBytes(t *testing.T) {
	w := newTestWriter()

	testText := `test text`
	WriteResponseBytes(w, ContentType.Text, []byte(testText), http.StatusAccepted)

	assert.Equal(t, http.StatusAccepted, w.StatusCode)
	assert.Equal(t, ContentType.Text, w.HeaderMap.Get("Content-Type"))
	assert.Equal(t, testText, string(w.Body))
}

func TestWriteJSONOK(t *testing.T) {
	w := newTestWriter()

	WriteJSONOK(w, map[string]int{"streak": 3})

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, ContentType.JSON, w.HeaderMap.Get("Content-Type"))
	assert.JSONEq(t, `{"streak":3}`, string(w.Body))
}

func TestWriteJSON_Unencodable(t *testing.T) {
	w := newTestWriter()

	WriteJSON(w, http.StatusOK, math.Inf(1))

	assert.Equal(t, http.StatusInternalServerError, w.StatusCode)
	assert.JSONEq(t, `{"error":"internal error"}`, string(w.Body))
}

func TestWriteError(t *testing.T) {
	w := newTestWriter()

	WriteError(w, http.StatusConflict, "workout has entered data")

	assert.Equal(t, http.StatusConflict, w.StatusCode)
	assert.Equal(t, ContentType.JSON, w.HeaderMap.Get("Content-Type"))
	assert.JSONEq(t, `{"error":"workout has entered data"}`, string(w.Body))
}
