// Package routing turns start/end requests into searched, annotated routes.
//
// The Engine is stateless apart from the injected graph cache: every call
// builds (or reuses) a region graph, applies the caller's incidents as a
// private risk view, runs A* under the caller's preferences and renders the
// path as instructions plus metadata.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/atharv3903/saferoute/internal/algo"
	"github.com/atharv3903/saferoute/internal/cache"
	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/model"
)

var tracer = otel.Tracer("saferoute.routing")

type Engine struct {
	builder *graph.Builder
	risk    graph.RiskConfig
	graphs  *cache.GraphCache
	logger  *zap.Logger
}

// NewEngine wires an engine. A nil cache gets a fresh default one and a nil
// logger is replaced by a no-op logger.
func NewEngine(builder *graph.Builder, risk graph.RiskConfig, graphs *cache.GraphCache, logger *zap.Logger) *Engine {
	if builder == nil {
		builder = graph.NewBuilder(graph.DefaultBuilderConfig())
	}
	if graphs == nil {
		graphs = cache.NewGraphCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{builder: builder, risk: risk, graphs: graphs, logger: logger}
}

// Graphs exposes the engine's graph cache.
func (e *Engine) Graphs() *cache.GraphCache { return e.graphs }

// Bounds is the region a route between start and end is searched in.
func (e *Engine) Bounds(start, end model.Coordinate) orb.Bound {
	_, rs, re := cache.GraphKey(start, end)
	return e.builder.Bounds(rs, re)
}

// IncidentBounds is Bounds grown by the incident radius. Edges on the rim of
// the search region still score incidents lying just outside it, so callers
// loading incidents from a store must query this box.
func (e *Engine) IncidentBounds(start, end model.Coordinate) orb.Bound {
	b := e.Bounds(start, end)

	radius := e.risk.RadiusKm
	if radius <= 0 {
		radius = graph.DefaultRiskConfig().RadiusKm
	}
	dLat := radius / geo.KmPerDegree
	cosLat := math.Cos(math.Max(math.Abs(b.Min.Lat()), math.Abs(b.Max.Lat())) * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-6 {
		dLng = math.Min(180, dLat/cosLat)
	}

	return orb.Bound{
		Min: orb.Point{math.Max(-180, b.Min.Lon()-dLng), math.Max(-90, b.Min.Lat()-dLat)},
		Max: orb.Point{math.Min(180, b.Max.Lon()+dLng), math.Min(90, b.Max.Lat()+dLat)},
	}
}

// ComputeRoute finds the preferred route from start to end given the
// incident history. Failures are *RouteError values.
func (e *Engine) ComputeRoute(ctx context.Context, start, end model.Coordinate, prefs model.Preferences, incidents []model.HistoricalIncident) (*model.RouteResult, error) {
	ctx, span := tracer.Start(ctx, "routing.ComputeRoute")
	defer span.End()

	if err := validateEndpoints(start, end); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	key, rs, re := cache.GraphKey(start, end)
	base, hit := e.graphs.GetOrBuild(ctx, key, func() *graph.Graph {
		return e.builder.Build(rs, re)
	})
	span.SetAttributes(
		attribute.String("graph.key", key),
		attribute.Bool("graph.cache_hit", hit),
		attribute.Int("graph.nodes", len(base.Nodes)),
		attribute.Int("incidents", len(incidents)),
	)
	e.logger.Debug("region graph ready",
		zap.String("key", key),
		zap.Bool("cache_hit", hit),
		zap.Int("nodes", len(base.Nodes)),
		zap.Int("edges", len(base.Edges)),
	)

	res, err := e.route(ctx, base, start, end, prefs, incidents)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("route.waypoints", res.Metadata.WaypointCount),
		attribute.Float64("route.distance_km", res.Metadata.TotalDistanceKm),
	)
	return res, nil
}

// route searches an already built graph.
func (e *Engine) route(ctx context.Context, base *graph.Graph, start, end model.Coordinate, prefs model.Preferences, incidents []model.HistoricalIncident) (*model.RouteResult, error) {
	view := graph.Enrich(base, incidents, e.risk)

	src, err := view.Nearest(start)
	if err != nil {
		return nil, fail(ErrNoRoute, err.Error())
	}
	dst, err := view.Nearest(end)
	if err != nil {
		return nil, fail(ErrNoRoute, err.Error())
	}

	p, err := algo.AStar(ctx, algo.GraphCtx{G: view, Prefs: prefs}, src, dst)
	switch {
	case errors.Is(err, algo.ErrNoPath):
		e.logger.Info("no route",
			zap.Stringer("start", start),
			zap.Stringer("end", end),
			zap.Int("explored", p.Explored),
		)
		return nil, fail(ErrNoRoute, fmt.Sprintf("no path from %v to %v", start, end))
	case errors.Is(err, algo.ErrCanceled):
		e.logger.Warn("route search aborted", zap.Error(err))
		return nil, fail(ErrRouteTimeout, err.Error())
	case err != nil:
		return nil, fmt.Errorf("search: %w", err)
	}

	return &model.RouteResult{
		Path:         geometry(p),
		Instructions: instructions(p),
		Metadata:     metadata(view, p),
		Explored:     p.Explored,
	}, nil
}

// RouteToNearest routes from start to the closest facility of category.
func (e *Engine) RouteToNearest(ctx context.Context, start model.Coordinate, category string, facilities []model.Facility, prefs model.Preferences, incidents []model.HistoricalIncident) (*model.RouteResult, *model.FacilityWithDistance, error) {
	ranked, err := NearestServices(start, category, facilities, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(ranked) == 0 {
		return nil, nil, fail(ErrNoFacility, fmt.Sprintf("no %q facility known", category))
	}
	target := ranked[0]

	res, err := e.ComputeRoute(ctx, start, target.Location, prefs, incidents)
	if err != nil {
		return nil, nil, err
	}
	return res, &target, nil
}

func validateEndpoints(start, end model.Coordinate) error {
	if err := start.Validate(); err != nil {
		return fail(ErrInvalidInput, "start: "+err.Error())
	}
	if err := end.Validate(); err != nil {
		return fail(ErrInvalidInput, "end: "+err.Error())
	}
	return nil
}
