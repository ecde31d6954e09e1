// Package generichttp defines interfaces for generic devices
// and an extensible type that wraps them in an HTTP interface
package generichttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi"
)

// MethodPath is a struct containing an HTTP method and a URL path
type MethodPath struct {
	Method, Path string
}

// RouteTable maps method-path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the routes of the table as "METHOD /path", sorted by path then method
func (rt RouteTable) Endpoints() []string {
	mps := make([]MethodPath, 0, len(rt))
	for k := range rt {
		mps = append(mps, k)
	}
	sort.Slice(mps, func(i, j int) bool {
		if mps[i].Path == mps[j].Path {
			return mps[i].Method < mps[j].Method
		}
		return mps[i].Path < mps[j].Path
	})
	out := make([]string, len(mps))
	for i, mp := range mps {
		out[i] = mp.Method + " " + mp.Path
	}
	return out
}

// Bind binds every route of the table to the router, plus a
// GET /endpoints route listing them
func (rt RouteTable) Bind(r chi.Router) {
	for mp, fn := range rt {
		r.MethodFunc(mp.Method, mp.Path, fn)
	}
	r.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, rt.Endpoints())
	})
}

// HTTPer is an interface which allows types to yield their route tables
// for concatenation and binding
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize cleans a path to be used as the mount point of a sub router:
// it starts with a slash and does not end with one
func SubMuxSanitize(str string) string {
	str = strings.TrimRight(str, "/")
	if !strings.HasPrefix(str, "/") {
		str = "/" + str
	}
	return str
}

// FloatT is a struct with a single float64 field, f64
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, int
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field, str
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, bool
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload holds a single primitive value and knows how to send it to a client
type HumanPayload struct {
	Bool   bool
	Float  float64
	Int    int
	String string
	T      types.BasicKind
}

func (hp HumanPayload) wrapped() interface{} {
	switch hp.T {
	case types.Bool:
		return BoolT{hp.Bool}
	case types.Float64:
		return FloatT{hp.Float}
	case types.Int:
		return IntT{hp.Int}
	default:
		return StrT{hp.String}
	}
}

func (hp HumanPayload) text() string {
	switch hp.T {
	case types.Bool:
		return strconv.FormatBool(hp.Bool)
	case types.Float64:
		return strconv.FormatFloat(hp.Float, 'g', -1, 64)
	case types.Int:
		return strconv.Itoa(hp.Int)
	default:
		return hp.String
	}
}

// EncodeAndRespond writes the payload as JSON, e.g. {"f64": 1.5}, or as
// plain text if the client only accepts text/plain
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	if r != nil && r.Header.Get("Accept") == "text/plain" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, hp.text())
		return
	}
	RespondJSON(w, hp.wrapped())
}

// RespondJSON writes v as JSON with status 200
func RespondJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		fstr := fmt.Sprintf("error encoding data to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DecodeJSON decodes the body of r into v and closes it
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

var statuses = struct {
	sync.RWMutex
	rules []statusRule
}{}

type statusRule struct {
	target error
	code   int
}

// StatusFor registers the HTTP status code Error uses for errors matching target.
// Rules are checked in registration order.
func StatusFor(target error, code int) {
	statuses.Lock()
	defer statuses.Unlock()
	statuses.rules = append(statuses.rules, statusRule{target, code})
}

// StatusCode returns the status registered for err, 504 for a deadline and 500 otherwise
func StatusCode(err error) int {
	statuses.RLock()
	defer statuses.RUnlock()
	for _, rule := range statuses.rules {
		if errors.Is(err, rule.target) {
			return rule.code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Error replies to the request with err's message and status code
func Error(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusCode(err))
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			Error(w, err)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and
// calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		if err := DecodeJSON(r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(f.F64); err != nil {
			Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetInt calls an int-getting function and returns the response
// as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			Error(w, err)
			return
		}
		hp := HumanPayload{T: types.Int, Int: i}
		hp.EncodeAndRespond(w, r)
	}
}

// SetInt parses a JSON input of {'int': value} and
// calls fcn with it
func SetInt(fcn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i := IntT{}
		if err := DecodeJSON(r, &i); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(i.Int); err != nil {
			Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			Error(w, err)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and
// calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := StrT{}
		if err := DecodeJSON(r, &s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(s.Str); err != nil {
			Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			Error(w, err)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and
// calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		if err := DecodeJSON(r, &b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(b.Bool); err != nil {
			Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
