package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/server/middleware/locker"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func TestLockBouncesWrites(t *testing.T) {
	rt := table{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/palette"}: func(w http.ResponseWriter, r *http.Request) {},
		generichttp.MethodPath{Method: http.MethodGet, Path: "/palette"}:  func(w http.ResponseWriter, r *http.Request) {},
	}
	l := locker.New()
	locker.Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)

	do := func(method, path, body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/palette", `{"str":"iron"}`))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/lock", `{"bool":true}`))
	assert.True(t, l.Locked())
	assert.Equal(t, http.StatusLocked, do(http.MethodPost, "/palette", `{"str":"iron"}`))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/palette", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/lock", `{"bool":false}`))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/palette", `{"str":"iron"}`))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/lock", `yes`))
}

func TestHTTPGet(t *testing.T) {
	l := locker.New()
	l.Lock()
	w := httptest.NewRecorder()
	l.HTTPGet(w, httptest.NewRequest(http.MethodGet, "/lock", nil))
	assert.JSONEq(t, `{"bool":true}`, w.Body.String())
}
