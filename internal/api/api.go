// Package api serves a read-only JSON view of the cluster pool, plus a
// reload trigger and the Prometheus metrics of the process.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/ocpool/internal/provisioning/cluster"
	"github.com/imamik/ocpool/internal/util/async"
)

// Pool is the part of pool.Manager the API reads.
type Pool interface {
	Clusters() []*cluster.Cluster
	Get(name string) (*cluster.Cluster, bool)
	Reload(ctx context.Context) error
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NodeView is one node of a cluster.
type NodeView struct {
	Name string `json:"name"`
	Type string `json:"type"`
	IP   string `json:"ip"`
}

// ClusterView is the JSON representation of a cluster.
type ClusterView struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Phase     string     `json:"phase,omitempty"`
	Version   string     `json:"version,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Nodes     []NodeView `json:"nodes"`
}

// API holds the handlers.
type API struct {
	pool     Pool
	gatherer prometheus.Gatherer
	log      logr.Logger
}

// Option configures the API.
type Option func(*API)

// WithGatherer sets the registry served at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *API) {
		a.gatherer = g
	}
}

// WithLogger sets the request error logger.
func WithLogger(log logr.Logger) Option {
	return func(a *API) {
		a.log = log
	}
}

// New creates the API over pool.
func New(pool Pool, opts ...Option) *API {
	a := &API{
		pool:     pool,
		gatherer: prometheus.DefaultGatherer,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns a router with every route registered.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API on r.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.healthHandler)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	r.Route("/clusters", func(r chi.Router) {
		r.Get("/", a.listClustersHandler)
		r.Get("/{name}", a.getClusterHandler)
	})
	r.Post("/reload", a.reloadHandler)
}

func (a *API) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listClustersHandler(w http.ResponseWriter, r *http.Request) {
	// view never fails; status lookup errors are logged and left blank.
	views, _ := async.Map(r.Context(), a.pool.Clusters(), 0, func(ctx context.Context, cl *cluster.Cluster) (ClusterView, error) {
		return a.view(ctx, cl), nil
	})
	writeJSON(w, http.StatusOK, views)
}

func (a *API) getClusterHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cl, ok := a.pool.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "cluster " + name + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, a.view(r.Context(), cl))
}

func (a *API) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pool.Reload(r.Context()); err != nil {
		a.log.Error(err, "reload failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	a.listClustersHandler(w, r)
}

func (a *API) view(ctx context.Context, cl *cluster.Cluster) ClusterView {
	v := ClusterView{Name: cl.Name(), Nodes: []NodeView{}}

	status, err := cl.Stack().Status(ctx)
	if err != nil {
		a.log.V(1).Info("status lookup failed", "cluster", cl.Name(), "error", err.Error())
	}
	v.Status = string(status)

	if md := cl.Metadata(); md != nil {
		v.Phase = string(md.Phase)
		v.Version = md.Version
		if !md.CreatedAt.IsZero() {
			created := md.CreatedAt
			v.CreatedAt = &created
		}
	}
	for _, n := range cl.Nodes() {
		v.Nodes = append(v.Nodes, NodeView{Name: n.Instance.FQDN, Type: n.Type.String(), IP: n.Instance.IP})
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
