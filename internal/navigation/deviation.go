package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/geo"
)

// checkDeviation arms or disarms the reroute timer for a new position. Only the on/off
// route transition matters: further off-route fixes never restart a pending timer.
func (n *Navigator) checkDeviation(position models.Position) {
	if geo.IsOnRoute(position.Coordinate(), n.session.Route.Vertices, n.settings.OffRouteThreshold) {
		if n.session.ReroutePending {
			n.logger.Debug().Str("trip_id", n.session.TripID).Msg("Back on route, reroute timer cancelled")
		}
		n.disarmReroute()
		return
	}
	n.armReroute()
}

// armReroute starts the debounce timer unless one is already pending.
func (n *Navigator) armReroute() {
	if n.timer != nil {
		return
	}

	n.timerSeq++
	seq := n.timerSeq
	ctx := n.ctx
	n.timer = time.AfterFunc(n.settings.RerouteDelay, func() {
		n.postWith(ctx, rerouteDue{seq: seq})
	})
	n.session.ReroutePending = true

	n.logger.Debug().
		Str("trip_id", n.session.TripID).
		Dur("delay", n.settings.RerouteDelay).
		Msg("Off route, reroute timer armed")
}

// disarmReroute stops a pending timer. A fire already queued is ignored by sequence.
func (n *Navigator) disarmReroute() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.session.ReroutePending = false
}

func (n *Navigator) handleRerouteDue(ev rerouteDue) {
	if n.timer == nil || ev.seq != n.timerSeq {
		return // stopped or superseded
	}
	n.timer = nil
	n.session.ReroutePending = false

	if !n.session.Active() || n.lastPosition == nil {
		return
	}

	// The agent may have recovered since the timer was armed.
	position := *n.lastPosition
	if geo.IsOnRoute(position.Coordinate(), n.session.Route.Vertices, n.settings.OffRouteThreshold) {
		n.logger.Debug().Str("trip_id", n.session.TripID).Msg("Recovered before reroute, skipping")
		return
	}

	if n.session.Rerouting() {
		n.logger.Debug().Str("trip_id", n.session.TripID).Msg("Reroute already in flight")
		return
	}

	n.beginReroute(position)
}

func (n *Navigator) beginReroute(position models.Position) {
	tripID := n.session.TripID
	destination := n.session.Destination
	n.session.State = StateRerouting
	n.metrics.RerouteRequested()

	n.logger.Info().
		Str("trip_id", tripID).
		Float64("lat", position.Latitude).
		Float64("lng", position.Longitude).
		Msg("Off route, requesting new route")
	n.toast(models.Toast{
		Kind:    models.ToastRerouteStarted,
		TripID:  tripID,
		Message: "Off route, recalculating...",
	})

	ctx := n.ctx
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		route, err := n.route(ctxOrBackground(ctx), position.Coordinate(), destination)
		n.postWith(ctx, rerouteResolved{tripID: tripID, route: route, err: err})
	}()
}

func (n *Navigator) handleRerouteResolved(res rerouteResolved) {
	if n.session.TripID != res.tripID || !n.session.Rerouting() {
		n.logger.Debug().Str("trip_id", res.tripID).Msg("Discarding reroute result for ended trip")
		return
	}

	if res.err != nil {
		err := fmt.Errorf("%w: %v", ErrRerouteTransientFailure, res.err)
		n.metrics.RerouteCompleted(err)

		// Keep following the stale route; the next deviation retries.
		n.session.State = StateActive
		n.logger.Warn().Err(err).Str("trip_id", res.tripID).Msg("Reroute failed")
		n.toast(models.Toast{
			Kind:    models.ToastRerouteFailed,
			TripID:  res.tripID,
			Message: "Reroute failed. Check your connection.",
			Error:   err.Error(),
			Err:     err,
		})
		return
	}

	n.metrics.RerouteCompleted(nil)
	n.session.replaceRoute(res.route)
	n.logger.Info().
		Str("trip_id", res.tripID).
		Float64("distance_m", res.route.DistanceMeters).
		Msg("Rerouted")

	n.showRoute(true)
	n.toast(models.Toast{
		Kind:    models.ToastRerouteSuccess,
		TripID:  res.tripID,
		Message: "New route found.",
	})
	n.checkIncidents()
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
