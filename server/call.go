package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// Call is a request received by the server, together with the response it got.
type Call struct {
	URL    *url.URL
	Method string
	Status int

	RequestHeader http.Header
	RequestBody   []byte

	ResponseHeader http.Header
	ResponseBody   []byte
}

type callWatcher struct {
	paths  map[string]struct{}
	callFn func(Call)
}

func newCallWatcher(fn func(Call), paths ...string) callWatcher {
	watcher := callWatcher{
		paths:  make(map[string]struct{}, len(paths)),
		callFn: fn,
	}

	for _, path := range paths {
		watcher.paths[path] = struct{}{}
	}

	return watcher
}

// isWatching reports whether calls to path are published. A watcher without paths sees every call.
func (watcher *callWatcher) isWatching(path string) bool {
	if len(watcher.paths) == 0 {
		return true
	}

	_, ok := watcher.paths[path]

	return ok
}

func (watcher *callWatcher) publish(call Call) {
	watcher.callFn(call)
}

type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func newBodyWriter(w gin.ResponseWriter) (*bodyWriter, error) {
	if w == nil {
		return nil, errors.New("response writer is nil")
	}

	return &bodyWriter{
		ResponseWriter: w,

		buf: &bytes.Buffer{},
	}, nil
}

func (w bodyWriter) Write(b []byte) (int, error) {
	if n, err := w.buf.Write(b); err != nil {
		return n, err
	}

	return w.ResponseWriter.Write(b)
}

func (w bodyWriter) bytes() []byte {
	return w.buf.Bytes()
}
