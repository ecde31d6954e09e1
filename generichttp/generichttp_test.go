package generichttp_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyka-au/go-optris/generichttp"
)

func ExampleSubMuxSanitize() {
	fmt.Println(generichttp.SubMuxSanitize("camera/"), generichttp.SubMuxSanitize("/"))
	// Output: /camera /
}

type knob struct {
	v float64
}

func (k *knob) get() (float64, error) { return k.v, nil }

func (k *knob) set(f float64) error {
	if f < 0 {
		return errKnob
	}
	k.v = f
	return nil
}

var errKnob = errors.New("knob: negative")

func init() {
	generichttp.StatusFor(errKnob, http.StatusBadRequest)
}

func newRouter(k *knob) http.Handler {
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/knob"}:  generichttp.GetFloat(k.get),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/knob"}: generichttp.SetFloat(k.set),
	}
	r := chi.NewRouter()
	rt.Bind(r)
	return r
}

func TestFloatRoundTrip(t *testing.T) {
	k := &knob{}
	h := newRouter(k)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/knob", strings.NewReader(`{"f64": 2.5}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.5, k.v)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/knob", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"f64": 2.5}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestPlainText(t *testing.T) {
	h := newRouter(&knob{v: 1.25})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/knob", nil)
	req.Header.Set("Accept", "text/plain")
	h.ServeHTTP(w, req)
	assert.Equal(t, "1.25", w.Body.String())
}

func TestErrorStatuses(t *testing.T) {
	h := newRouter(&knob{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/knob", strings.NewReader(`{"f64": -1}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/knob", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusGatewayTimeout, generichttp.StatusCode(fmt.Errorf("wait: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, generichttp.StatusCode(errors.New("boom")))
	assert.Equal(t, http.StatusBadRequest, generichttp.StatusCode(fmt.Errorf("wrapped: %w", errKnob)))
}

func TestEndpoints(t *testing.T) {
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/b"}: nil,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/b"}:  nil,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/a"}:  nil,
	}
	assert.Equal(t, []string{"GET /a", "GET /b", "POST /b"}, rt.Endpoints())

	h := newRouter(&knob{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	assert.JSONEq(t, `["GET /knob", "POST /knob"]`, w.Body.String())
}

func TestBoolAndString(t *testing.T) {
	var (
		on   bool
		name string
	)
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/on"}:   generichttp.SetBool(func(b bool) error { on = b; return nil }),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/on"}:    generichttp.GetBool(func() (bool, error) { return on, nil }),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/name"}: generichttp.SetString(func(s string) error { name = s; return nil }),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/name"}:  generichttp.GetString(func() (string, error) { return name, nil }),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/n"}:     generichttp.GetInt(func() (int, error) { return 7, nil }),
	}
	r := chi.NewRouter()
	rt.Bind(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/on", strings.NewReader(`{"bool": true}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/on", nil))
	assert.JSONEq(t, `{"bool": true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/name", strings.NewReader(`{"str": "pi640"}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/name", nil))
	assert.JSONEq(t, `{"str": "pi640"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/n", nil))
	assert.JSONEq(t, `{"int": 7}`, w.Body.String())
}
