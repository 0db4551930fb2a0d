// Package edge runs the gate as a Fastly Compute request handler.
package edge

import (
	"context"
	"io"
	"net/http"

	"edge_gate/internal/action"
	"edge_gate/internal/dataType"
	"edge_gate/internal/gate"
	"edge_gate/internal/utils"

	"github.com/fastly/compute-sdk-go/fsthttp"
	"github.com/google/uuid"
)

// ResponseWriter is the part of fsthttp.ResponseWriter the handler writes to
type ResponseWriter interface {
	Header() fsthttp.Header
	WriteHeader(code int)
	Write(p []byte) (int, error)
}

// SendFunc forwards a request to the named backend
type SendFunc func(ctx context.Context, r *fsthttp.Request, backend string) (*fsthttp.Response, error)

func send(ctx context.Context, r *fsthttp.Request, backend string) (*fsthttp.Response, error) {
	return r.Send(ctx, backend)
}

type Handler struct {
	router           *gate.Router
	forwardedHeaders []string
	backend          string
	send             SendFunc
}

func NewHandler(router *gate.Router, forwardedHeaders []string, backend string) *Handler {
	return &Handler{
		router:           router,
		forwardedHeaders: forwardedHeaders,
		backend:          backend,
		send:             send,
	}
}

// ServeHTTP implements fsthttp.Handler
func (h *Handler) ServeHTTP(ctx context.Context, w fsthttp.ResponseWriter, r *fsthttp.Request) {
	h.Serve(ctx, w, r)
}

func (h *Handler) Serve(ctx context.Context, w ResponseWriter, r *fsthttp.Request) {
	req := NewEdgeRequest(r, h.forwardedHeaders)
	decision := h.router.Route(req)

	switch decision.Get() {
	case action.PassThrough:
		h.forward(ctx, w, r, req)
	case action.RewriteURI:
		r.URL.Path = decision.Request.Uri
		r.URL.RawPath = ""
		r.URL.RawQuery = ""
		h.forward(ctx, w, r, req)
	case action.Redirect:
		w.Header().Set("Location", decision.Location)
		w.WriteHeader(decision.StatusCode)
	default:
		w.Header().Set("Content-Type", decision.ContentType)
		w.WriteHeader(decision.StatusCode)
		if _, err := w.Write(decision.Body); err != nil {
			utils.LogError(dataType.NewUserRequest(req, ""), "Error writing response: "+err.Error(), "Serve")
		}
	}
}

func (h *Handler) forward(ctx context.Context, w ResponseWriter, r *fsthttp.Request, req *dataType.EdgeRequest) {
	resp, err := h.send(ctx, r, h.backend)
	if err != nil {
		utils.LogError(dataType.NewUserRequest(req, ""), "Error sending to backend "+h.backend+": "+err.Error(), "forward")
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Reset(resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		utils.LogError(dataType.NewUserRequest(req, ""), "Error writing response: "+err.Error(), "forward")
	}
}

// NewEdgeRequest builds the typed request; the platform's RemoteAddr is the viewer address
func NewEdgeRequest(r *fsthttp.Request, forwardedHeaders []string) *dataType.EdgeRequest {
	if r == nil {
		return nil
	}

	var forwarded string
	for _, headerName := range forwardedHeaders {
		if v := r.Header.Get(headerName); v != "" {
			forwarded = v
			break
		}
	}

	host := r.Header.Get("Host")
	if host == "" {
		host = r.Host
	}

	req := &dataType.EdgeRequest{
		Host:          host,
		ForwardedFor:  forwarded,
		ViewerAddress: r.RemoteAddr,
		UserAgent:     r.Header.Get("User-Agent"),
		RequestID:     uuid.NewString(),
	}
	if r.URL != nil {
		req.Uri = r.URL.EscapedPath()
		req.Query = utils.ParseQuery(r.URL.RawQuery)
	}
	return req
}
