package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/route-sentinel/internal/constants"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/routing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Settings tunes the navigator thresholds.
type Settings struct {
	OffRouteThreshold      float64       // meters
	RerouteDelay           time.Duration // deviation debounce
	ArrivalRadius          float64       // meters
	IncidentRadius         float64       // meters
	IncidentLookback       time.Duration // non-positive disables the window
	RoutingTimeout         time.Duration
	SuppressRepeatWarnings bool
}

// DefaultSettings returns the standard thresholds.
func DefaultSettings() Settings {
	return Settings{
		OffRouteThreshold: constants.OffRouteThreshold,
		RerouteDelay:      constants.RerouteDelay,
		ArrivalRadius:     constants.ArrivalRadius,
		IncidentRadius:    constants.IncidentRadius,
		IncidentLookback:  constants.IncidentLookback,
		RoutingTimeout:    constants.RoutingTimeout,
	}
}

// event types handled by the navigator loop
type (
	positionEvent struct{ position models.Position }
	alertsEvent   struct{ alerts []models.Alert }

	startRequest struct {
		origin      string
		destination string
		reply       chan startReply
	}
	startReply struct {
		tripID string
		err    error
	}

	cancelRequest struct{ done chan struct{} }

	snapshotRequest struct{ reply chan TripSession }

	tripResolved struct {
		tripID      string
		origin      models.Coordinate
		destination models.Place
		route       *models.RouteGeometry
		err         error
		reply       chan startReply
	}

	rerouteDue struct{ seq uint64 }

	rerouteResolved struct {
		tripID string
		route  *models.RouteGeometry
		err    error
	}
)

// Navigator owns the trip session. All state transitions happen on a single goroutine;
// positions, alert snapshots, commands, timer fires and routing results reach it as
// events, so none of its fields need locking.
type Navigator struct {
	settings  Settings
	router    RouteProvider
	geocoder  Geocoder
	presenter Presenter
	metrics   Metrics
	logger    zerolog.Logger
	now       func() time.Time

	events chan any

	// loop-owned state
	session      TripSession
	lastPosition *models.Position
	alerts       []models.Alert
	warned       map[string]struct{}
	timer        *time.Timer
	timerSeq     uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNavigator creates a Navigator. metrics may be nil.
func NewNavigator(settings Settings, router RouteProvider, geocoder Geocoder, presenter Presenter,
	metrics Metrics, logger zerolog.Logger) *Navigator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Navigator{
		settings:  settings,
		router:    router,
		geocoder:  geocoder,
		presenter: presenter,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		events:    make(chan any, 64),
		warned:    make(map[string]struct{}),
	}
}

// Start launches the event loop.
func (n *Navigator) Start() error {
	if n.ctx != nil {
		n.logger.Warn().Msg("Navigator is already running")
		return errors.New("navigator is already running")
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.run()
	}()

	n.logger.Info().
		Float64("off_route_m", n.settings.OffRouteThreshold).
		Dur("reroute_delay", n.settings.RerouteDelay).
		Float64("arrival_m", n.settings.ArrivalRadius).
		Float64("incident_m", n.settings.IncidentRadius).
		Msg("Navigator started")
	return nil
}

// Stop terminates the loop and waits for it to exit. In-flight routing calls are cancelled.
func (n *Navigator) Stop() error {
	if n.ctx == nil {
		n.logger.Warn().Msg("Navigator is not running")
		return ErrNavigatorStopped
	}

	n.cancel()
	n.wg.Wait()

	n.ctx = nil
	n.cancel = nil

	n.logger.Info().Msg("Navigator stopped")
	return nil
}

// UpdatePosition feeds a new location fix to the navigator.
func (n *Navigator) UpdatePosition(position models.Position) {
	n.post(positionEvent{position: position})
}

// OnAlerts replaces the alert snapshot used for route warnings.
func (n *Navigator) OnAlerts(alerts []models.Alert) {
	n.post(alertsEvent{alerts: alerts})
}

// StartTrip resolves origin and destination, routes between them and makes the result the
// active trip. A trip already in progress is replaced. It blocks until routing completes,
// ctx is done or the navigator stops, and returns the new trip id.
func (n *Navigator) StartTrip(ctx context.Context, origin, destination string) (string, error) {
	loop := n.ctx
	reply := make(chan startReply, 1)
	if !n.postWith(loop, startRequest{origin: origin, destination: destination, reply: reply}) {
		return "", ErrNavigatorStopped
	}

	r, err := await(ctx, loop, reply)
	if err != nil {
		return "", err
	}
	return r.tripID, r.err
}

// CancelTrip ends the current trip, if any. It returns once the session is idle.
func (n *Navigator) CancelTrip(ctx context.Context) error {
	loop := n.ctx
	done := make(chan struct{})
	if !n.postWith(loop, cancelRequest{done: done}) {
		return ErrNavigatorStopped
	}

	_, err := await(ctx, loop, done)
	return err
}

// Session returns a copy of the current trip session.
func (n *Navigator) Session(ctx context.Context) (TripSession, error) {
	loop := n.ctx
	reply := make(chan TripSession, 1)
	if !n.postWith(loop, snapshotRequest{reply: reply}) {
		return TripSession{}, ErrNavigatorStopped
	}

	return await(ctx, loop, reply)
}

// await waits for the loop's answer to a request. A request still queued when the loop
// exits is never answered, so the loop ending fails it with ErrNavigatorStopped.
func await[T any](ctx, loop context.Context, reply <-chan T) (T, error) {
	var zero T
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-loop.Done():
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, ErrNavigatorStopped
		}
	}
}

func (n *Navigator) post(ev any) bool {
	return n.postWith(n.ctx, ev)
}

// postWith delivers ev unless ctx, the loop context captured by the sender, is done.
func (n *Navigator) postWith(ctx context.Context, ev any) bool {
	if ctx == nil {
		return false
	}
	select {
	case n.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (n *Navigator) run() {
	defer n.disarmReroute()

	for {
		select {
		case ev := <-n.events:
			n.handle(ev)
		case <-n.ctx.Done():
			n.logger.Info().Msg("Navigator loop stopping")
			return
		}
	}
}

func (n *Navigator) handle(ev any) {
	switch e := ev.(type) {
	case positionEvent:
		n.handlePosition(e.position)
	case alertsEvent:
		n.alerts = e.alerts
		n.checkIncidents()
	case startRequest:
		n.handleStart(e)
	case tripResolved:
		n.handleTripResolved(e)
	case cancelRequest:
		if n.session.State != StateIdle {
			n.endTrip(models.OutcomeCancelled)
		}
		close(e.done)
	case snapshotRequest:
		e.reply <- n.session
	case rerouteDue:
		n.handleRerouteDue(e)
	case rerouteResolved:
		n.handleRerouteResolved(e)
	default:
		n.logger.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("Unknown navigator event")
	}
}

func (n *Navigator) handlePosition(position models.Position) {
	n.lastPosition = &position
	n.metrics.PositionProcessed()

	if !n.session.Active() {
		return
	}

	// Arrival wins over deviation.
	if hasArrived(position.Coordinate(), n.session.Destination, n.settings.ArrivalRadius) {
		n.logger.Info().
			Str("trip_id", n.session.TripID).
			Str("destination", n.session.DestinationLabel).
			Msg("Arrived at destination")
		n.endTrip(models.OutcomeArrived)
		return
	}

	n.checkDeviation(position)
}

func (n *Navigator) handleStart(req startRequest) {
	if n.session.State != StateIdle {
		n.logger.Info().Str("trip_id", n.session.TripID).Msg("Replacing current trip")
		n.endTrip(models.OutcomeCancelled)
	}

	tripID := uuid.NewString()
	n.session.beginRouting(tripID)

	var last *models.Position
	if n.lastPosition != nil {
		p := *n.lastPosition
		last = &p
	}

	n.logger.Info().
		Str("trip_id", tripID).
		Str("origin", req.origin).
		Str("destination", req.destination).
		Msg("Routing new trip")

	ctx := n.ctx
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		res := n.resolveTrip(ctx, tripID, req, last)
		if ctx.Err() != nil || !n.postWith(ctx, res) {
			req.reply <- startReply{err: ErrNavigatorStopped}
		}
	}()
}

// resolveTrip runs off the loop goroutine.
func (n *Navigator) resolveTrip(ctx context.Context, tripID string, req startRequest, last *models.Position) tripResolved {
	result := tripResolved{tripID: tripID, reply: req.reply}

	origin, err := n.resolveOrigin(ctx, req.origin, last)
	if err != nil {
		result.err = err
		return result
	}

	destination, err := n.resolvePlace(ctx, req.destination)
	if err != nil {
		result.err = err
		return result
	}

	route, err := n.route(ctx, origin, destination.Coordinate)
	if err != nil {
		result.err = err
		return result
	}

	result.origin = origin
	result.destination = destination
	result.route = route
	return result
}

func (n *Navigator) resolveOrigin(ctx context.Context, query string, last *models.Position) (models.Coordinate, error) {
	if last != nil && strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), constants.MyLocationPrefix) {
		return last.Coordinate(), nil
	}
	place, err := n.resolvePlace(ctx, query)
	if err != nil {
		return models.Coordinate{}, err
	}
	return place.Coordinate, nil
}

func (n *Navigator) resolvePlace(ctx context.Context, query string) (models.Place, error) {
	ctx, cancel := n.routingContext(ctx)
	defer cancel()

	places, err := n.geocoder.Resolve(ctx, query)
	if err != nil {
		return models.Place{}, err
	}
	if len(places) == 0 {
		return models.Place{}, fmt.Errorf("%q: %w", query, routing.ErrGeocodeNotFound)
	}
	return places[0], nil
}

func (n *Navigator) route(ctx context.Context, from, to models.Coordinate) (*models.RouteGeometry, error) {
	ctx, cancel := n.routingContext(ctx)
	defer cancel()

	route, err := n.router.Route(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if route == nil || len(route.Vertices) == 0 {
		return nil, routing.ErrRouteNotFound
	}
	return route, nil
}

func (n *Navigator) routingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.settings.RoutingTimeout > 0 {
		return context.WithTimeout(ctx, n.settings.RoutingTimeout)
	}
	return context.WithCancel(ctx)
}

func (n *Navigator) handleTripResolved(res tripResolved) {
	if n.session.State != StateRouting || n.session.TripID != res.tripID {
		n.logger.Debug().Str("trip_id", res.tripID).Msg("Discarding routing result for superseded trip")
		res.reply <- startReply{err: ErrTripSuperseded}
		return
	}

	if res.err != nil {
		n.logger.Error().Err(res.err).Str("trip_id", res.tripID).Msg("Failed to start trip")
		n.session.reset()
		n.toast(models.Toast{
			Kind:    models.ToastRoutingError,
			TripID:  res.tripID,
			Message: "Routing failed: " + res.err.Error(),
		})
		res.reply <- startReply{err: res.err}
		return
	}

	label := shortLabel(res.destination.Label)
	n.session.activate(res.origin, res.destination.Coordinate, label, res.route)
	n.warned = make(map[string]struct{})
	n.metrics.TripStarted()

	n.logger.Info().
		Str("trip_id", res.tripID).
		Str("destination", label).
		Float64("distance_m", res.route.DistanceMeters).
		Int("vertices", len(res.route.Vertices)).
		Msg("Trip started")

	n.showRoute(false)
	n.checkIncidents()
	res.reply <- startReply{tripID: res.tripID}
}

// endTrip clears the session. The reroute timer is stopped before returning so that a
// late fire or routing result for this trip is discarded.
func (n *Navigator) endTrip(outcome models.TripOutcome) {
	tripID := n.session.TripID
	label := n.session.DestinationLabel
	wasActive := n.session.Active()

	n.disarmReroute()
	n.session.reset()
	n.warned = make(map[string]struct{})

	if !wasActive {
		return
	}

	n.metrics.TripEnded(outcome)

	msg := "Trip ended."
	kind := models.ToastTripEnded
	if outcome == models.OutcomeArrived {
		msg = "You have arrived at your destination!"
		kind = models.ToastArrived
	}
	n.toast(models.Toast{Kind: kind, TripID: tripID, Message: msg})

	if err := n.presenter.TripEnded(models.TripEnded{
		TripID:           tripID,
		Outcome:          outcome,
		DestinationLabel: label,
		At:               n.now(),
	}); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to present trip end")
	}
}

func (n *Navigator) showRoute(reroute bool) {
	route := n.session.Route
	if err := n.presenter.RouteDrawn(models.RouteDrawn{
		TripID:  n.session.TripID,
		Route:   *route,
		Reroute: reroute,
	}); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to present route")
	}

	if err := n.presenter.TripBanner(models.TripBanner{
		TripID:           n.session.TripID,
		DistanceKm:       math.Round(route.DistanceMeters/100) / 10,
		EtaMinutes:       int(math.Round(route.DurationSeconds / 60)),
		DestinationLabel: n.session.DestinationLabel,
	}); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to present trip banner")
	}
}

// checkIncidents warns about alerts along the active route.
func (n *Navigator) checkIncidents() {
	if !n.session.Active() {
		return
	}

	matches := MatchIncidents(n.session.Route, n.alerts, n.settings.IncidentRadius, n.settings.IncidentLookback, n.now())
	if n.settings.SuppressRepeatWarnings {
		var fresh []models.Alert
		for _, a := range matches {
			if _, seen := n.warned[a.Key]; seen {
				continue
			}
			n.warned[a.Key] = struct{}{}
			fresh = append(fresh, a)
		}
		matches = fresh
	}
	if len(matches) == 0 {
		return
	}

	n.metrics.IncidentWarnings(len(matches))
	n.logger.Info().Str("trip_id", n.session.TripID).Int("count", len(matches)).Msg("Incidents on route")

	plural := ""
	if len(matches) > 1 {
		plural = "s"
	}
	n.toast(models.Toast{
		Kind:    models.ToastIncidentWarning,
		TripID:  n.session.TripID,
		Message: fmt.Sprintf("%d incident%s on your route!", len(matches), plural),
		Count:   len(matches),
		Alerts:  matches,
	})
}

func (n *Navigator) toast(t models.Toast) {
	if err := n.presenter.Toast(t); err != nil {
		n.logger.Warn().Err(err).Str("kind", string(t.Kind)).Msg("Failed to present toast")
	}
}

// shortLabel keeps the first comma separated part of a geocoder label.
func shortLabel(label string) string {
	if i := strings.Index(label, ","); i >= 0 {
		return strings.TrimSpace(label[:i])
	}
	return strings.TrimSpace(label)
}
