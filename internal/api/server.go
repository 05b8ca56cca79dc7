package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/atharv3903/saferoute/internal/cache"
	"github.com/atharv3903/saferoute/internal/db"
	"github.com/atharv3903/saferoute/internal/model"
	"github.com/atharv3903/saferoute/internal/routing"
)

// DefaultRouteTimeout bounds a single routing request.
const DefaultRouteTimeout = 2 * time.Second

const defaultNearestLimit = 5

var validate = validator.New()

var tracer = otel.Tracer("saferoute.api")

type Server struct {
	Mux    *http.ServeMux
	Store  db.Store
	Engine *routing.Engine
	RC     *cache.RouteCache
	Logger *zap.Logger

	routeTimeout time.Duration
	registry     *prometheus.Registry
	metrics      *httpMetrics
}

type Option func(*Server)

// WithRouteTimeout overrides DefaultRouteTimeout. Non-positive values are ignored.
func WithRouteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.routeTimeout = d
		}
	}
}

// WithRegistry serves and records metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

func New(store db.Store, engine *routing.Engine, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Mux:          http.NewServeMux(),
		Store:        store,
		Engine:       engine,
		RC:           cache.NewRouteCache(),
		Logger:       logger,
		routeTimeout: DefaultRouteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newHTTPMetrics(s.registry)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	s.handle("POST /route", "route", s.handleRoute)
	s.handle("POST /route/nearest", "route_nearest", s.handleRouteNearest)
	s.handle("GET /services/nearest", "services_nearest", s.handleNearestServices)
	s.handle("POST /incidents", "incidents", s.handleIncident)

	s.Mux.HandleFunc("/debug/clear_cache", func(w http.ResponseWriter, r *http.Request) {
		s.Engine.Graphs().Clear()
		s.RC.Clear()
		w.Write([]byte("cleared"))
	})

	s.Mux.HandleFunc("POST /debug/invalidate_graph", func(w http.ResponseWriter, r *http.Request) {
		var req invalidateRequest
		if !s.decode(w, r, &req) {
			return
		}
		key, _, _ := cache.GraphKey(req.Start.coordinate(), req.End.coordinate())
		s.Engine.Graphs().Invalidate(key)
		writeJSON(w, http.StatusOK, map[string]string{"invalidated": key})
	})

	s.Mux.HandleFunc("GET /debug/cache_stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cacheStats{
			Graph:  s.Engine.Graphs().Stats(),
			Routes: s.RC.Len(),
			Epoch:  s.RC.Epoch(),
		})
	})

	s.Mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
}

// handle registers h under pattern with metrics, a server span and a
// request id.
func (s *Server) handle(pattern, name string, h http.HandlerFunc) {
	s.Mux.Handle(pattern, s.metrics.instrument(name, func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx, span := tracer.Start(r.Context(), "api."+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("request_id", id)),
		)
		defer span.End()

		h(w, r.WithContext(withRequestID(ctx, id)))
	}))
}

type cacheStats struct {
	Graph  cache.Stats `json:"graph"`
	Routes int         `json:"routes"`
	Epoch  uint64      `json:"epoch"`
}

type point struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" validate:"required,min=-180,max=180"`
}

func (p point) coordinate() model.Coordinate {
	return model.Coordinate{Lat: *p.Lat, Lng: *p.Lng}
}

type prefsRequest struct {
	PrioritizeSafety  *bool  `json:"prioritize_safety"`
	AvoidTraffic      *bool  `json:"avoid_traffic"`
	EmergencyCategory string `json:"emergency_category" validate:"omitempty,max=32"`
}

// preferences applies the request's overrides to the defaults.
func (p prefsRequest) preferences() model.Preferences {
	prefs := model.DefaultPreferences()
	if p.PrioritizeSafety != nil {
		prefs.PrioritizeSafety = *p.PrioritizeSafety
	}
	if p.AvoidTraffic != nil {
		prefs.AvoidTraffic = *p.AvoidTraffic
	}
	prefs.EmergencyCategory = p.EmergencyCategory
	return prefs
}

type routeRequest struct {
	Start point `json:"start"`
	End   point `json:"end"`
	prefsRequest
}

type nearestRouteRequest struct {
	Start    point  `json:"start"`
	Category string `json:"category" validate:"required,oneof=shelter hospital police fire_station pharmacy"`
	prefsRequest
}

type invalidateRequest struct {
	Start point `json:"start"`
	End   point `json:"end"`
}

type incidentRequest struct {
	Location   point      `json:"location"`
	Severity   float64    `json:"severity" validate:"omitempty,gte=1,lte=10"`
	OccurredAt *time.Time `json:"occurred_at"`
	Context    string     `json:"context" validate:"max=1024"`
}

type routeResponse struct {
	*model.RouteResult
	Facility *model.FacilityWithDistance `json:"facility,omitempty"`
	GeoJSON  *geojson.Feature            `json:"geojson"`
	CacheHit bool                        `json:"cache_hit"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, end, prefs := req.Start.coordinate(), req.End.coordinate(), req.preferences()

	key := cache.NewRouteKey(start, end, prefs, s.RC.Epoch())
	if v, ok := s.RC.Get(key); ok {
		s.metrics.outcome("cache_hit")
		writeJSON(w, http.StatusOK, newRouteResponse(v, nil, true))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.routeTimeout)
	defer cancel()

	incidents, err := s.Store.IncidentsInBound(ctx, s.Engine.IncidentBounds(start, end))
	if err != nil {
		s.storeError(w, r, "load incidents", err)
		return
	}

	res, err := s.Engine.ComputeRoute(ctx, start, end, prefs, incidents)
	if err != nil {
		s.routeError(w, r, err)
		return
	}
	s.RC.Put(key, res)
	s.metrics.outcome("ok")
	writeJSON(w, http.StatusOK, newRouteResponse(res, nil, false))
}

func (s *Server) handleRouteNearest(w http.ResponseWriter, r *http.Request) {
	var req nearestRouteRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, prefs := req.Start.coordinate(), req.preferences()

	ctx, cancel := context.WithTimeout(r.Context(), s.routeTimeout)
	defer cancel()

	facilities, err := s.Store.Facilities(ctx, req.Category)
	if err != nil {
		s.storeError(w, r, "load facilities", err)
		return
	}
	ranked, err := routing.NearestServices(start, req.Category, facilities, 1)
	if err != nil {
		s.routeError(w, r, err)
		return
	}
	if len(ranked) == 0 {
		s.routeError(w, r, &routing.RouteError{Kind: routing.ErrNoFacility, Reason: req.Category})
		return
	}

	incidents, err := s.Store.IncidentsInBound(ctx, s.Engine.IncidentBounds(start, ranked[0].Location))
	if err != nil {
		s.storeError(w, r, "load incidents", err)
		return
	}

	res, target, err := s.Engine.RouteToNearest(ctx, start, req.Category, facilities, prefs, incidents)
	if err != nil {
		s.routeError(w, r, err)
		return
	}
	s.metrics.outcome("ok")
	writeJSON(w, http.StatusOK, newRouteResponse(res, target, false))
}

func (s *Server) handleNearestServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "lat and lng must be numbers")
		return
	}
	limit := defaultNearestLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
			return
		}
		limit = n
	}
	category := q.Get("category")
	if !model.IsCategory(category) {
		writeError(w, http.StatusBadRequest, "invalid_input", "unknown category "+strconv.Quote(category))
		return
	}

	facilities, err := s.Store.Facilities(r.Context(), category)
	if err != nil {
		s.internalError(w, r, "load facilities", err)
		return
	}
	ranked, err := routing.NearestServices(model.Coordinate{Lat: lat, Lng: lng}, category, facilities, limit)
	if err != nil {
		s.routeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": ranked})
}

func (s *Server) handleIncident(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if !s.decode(w, r, &req) {
		return
	}
	inc := model.HistoricalIncident{
		Location: req.Location.coordinate(),
		Severity: req.Severity,
		Context:  req.Context,
	}
	if req.OccurredAt != nil {
		inc.OccurredAt = *req.OccurredAt
	}

	id, err := s.Store.InsertIncident(r.Context(), inc)
	if err != nil {
		s.internalError(w, r, "insert incident", err)
		return
	}
	// cached routes may now cross a riskier edge
	epoch := s.RC.BumpEpoch()
	s.metrics.incidents.Inc()

	s.Logger.Info("incident recorded",
		zap.String("request_id", requestID(r.Context())),
		zap.String("id", id),
		zap.Stringer("location", inc.Location),
		zap.Uint64("epoch", epoch),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "epoch": epoch})
}

// decode reads a JSON body into v and validates it. It writes the 400
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

func (s *Server) routeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *routing.RouteError
	if !errors.As(err, &re) {
		s.internalError(w, r, "route", err)
		return
	}

	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, routing.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, routing.ErrNoRoute):
		status, kind = http.StatusNotFound, "no_route"
	case errors.Is(err, routing.ErrNoFacility):
		status, kind = http.StatusNotFound, "no_facility"
	case errors.Is(err, routing.ErrRouteTimeout):
		status, kind = http.StatusGatewayTimeout, "timeout"
	}
	s.metrics.outcome(kind)
	s.Logger.Debug("route rejected",
		zap.String("request_id", requestID(r.Context())),
		zap.String("kind", kind),
		zap.String("reason", re.Reason),
	)
	writeError(w, status, kind, re.Reason)
}

// storeError reports a failed catalog query. A query cut short by the route
// deadline is a timeout, not an internal error.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		s.routeError(w, r, &routing.RouteError{Kind: routing.ErrRouteTimeout, Reason: op + ": deadline exceeded"})
		return
	}
	s.internalError(w, r, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.Logger.Error(op+" failed",
		zap.String("request_id", requestID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal", op+" failed")
}

func newRouteResponse(res *model.RouteResult, target *model.FacilityWithDistance, hit bool) routeResponse {
	var geom orb.Geometry
	if len(res.Path) == 1 {
		geom = orb.Point{res.Path[0].Lng, res.Path[0].Lat}
	} else {
		ls := make(orb.LineString, len(res.Path))
		for i, c := range res.Path {
			ls[i] = orb.Point{c.Lng, c.Lat}
		}
		geom = ls
	}
	f := geojson.NewFeature(geom)
	f.Properties["total_distance_km"] = res.Metadata.TotalDistanceKm
	f.Properties["estimated_time_min"] = res.Metadata.EstimatedTimeMin
	f.Properties["safety_score"] = res.Metadata.SafetyScore

	return routeResponse{RouteResult: res, Facility: target, GeoJSON: f, CacheHit: hit}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	writeJSON(w, status, map[string]string{"error": kind, "reason": reason})
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
