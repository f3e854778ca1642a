package objecturl

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// NewRouter serves GET /blob/{id} from reg and Prometheus metrics on
// GET /metrics.
func NewRouter(reg *Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/blob/{id}", func(w http.ResponseWriter, req *http.Request) {
		data, mimeType, ok := reg.Lookup(chi.URLParam(req, "id"))
		if !ok {
			http.NotFound(w, req)
			return
		}
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Server is the loopback HTTP server behind a Registry.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log logging.Logger
}

// Listen binds addr (use "127.0.0.1:0" for any free port), points reg's URLs
// at it and starts serving in the background.
func Listen(addr string, reg *Registry, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{Handler: NewRouter(reg), ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
		log: log.With("component", "objecturl"),
	}
	reg.SetBaseURL(s.URL())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "object url server stopped", "error", err)
		}
	}()
	s.log.Info(context.Background(), "serving cached files", "addr", ln.Addr().String())
	return s, nil
}

// URL is the server's base URL.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
