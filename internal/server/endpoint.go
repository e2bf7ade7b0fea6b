package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/termacl/termacl/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Endpoint wraps a handler with the response envelope and request tagging
type Endpoint struct {
	ctx     context.Context
	core    *core.Core
	name    string
	handler Handler
}

// Handler represents a custom handler
type Handler func(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error)

// Response is the uniform JSON envelope of every API endpoint
type Response struct {
	RequestID     uuid.UUID     `json:"request_id"`
	StatusCode    int           `json:"status_code"`
	Error         string        `json:"error,omitempty"`
	Payload       interface{}   `json:"payload,omitempty"`
	ExecutionTime time.Duration `json:"exec_time"`
}

// NewEndpoint initializes a named endpoint
func NewEndpoint(ctx context.Context, c *core.Core, h Handler, name string) (e Endpoint) {
	if c == nil {
		panic(core.ErrNilCore)
	}

	// basic validation
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		panic(errors.New("empty endpoint name"))
	}

	e = Endpoint{
		ctx:     ctx,
		core:    c,
		name:    name,
		handler: h,
	}

	return e
}

func (e Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// generating request ID
	requestID := uuid.New()

	start := time.Now()

	// executing handler
	result, code, err := e.handler(e.ctx, e.core, w, r)

	// initializing response
	response := Response{
		RequestID:     requestID,
		StatusCode:    code,
		Payload:       result,
		ExecutionTime: time.Since(start),
	}

	if err != nil {
		response.Error = err.Error()
	}

	// marshaling handler's result
	payload, merr := json.Marshal(response)
	if merr != nil {
		http.Error(
			w,
			errors.Wrap(merr, "failed to marshal server response").Error(),
			http.StatusInternalServerError,
		)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(code)
	w.Write(payload)
}
