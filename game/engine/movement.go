package engine

import (
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// Advance moves the vehicle for one tick of dt seconds.
//
// While a route remains the vehicle heads for the current waypoint, or steps
// to the next waypoint once within WaypointProximity. A step never carries
// the vehicle past the waypoint it is heading for. Idle vehicles with no
// route drift back toward their parking slot.
func (a *Ambulance) Advance(dt float64) {
	if dt <= 0 {
		return
	}

	if len(a.Route) > 0 && !a.routeExhausted() {
		target := a.Route[a.RouteIndex]
		dist := grid.Distance(a.Position, target)
		if dist <= WaypointProximity {
			a.RouteIndex++
			return
		}

		speed := a.Speed
		if a.Status == StatusReturning {
			speed *= ReturnSpeedFactor
		}
		a.Position = stepToward(a.Position, target, dist, speed*dt)
		return
	}

	if a.Status == StatusIdle {
		dist := grid.Distance(a.Position, a.Parking)
		if dist > IdleDriftThreshold {
			a.Position = stepToward(a.Position, a.Parking, dist, a.Speed*IdleDriftSpeedFactor*dt)
		}
	}
}

// stepToward moves from toward target by at most step, given their current distance
func stepToward(from, target grid.Point, dist, step float64) grid.Point {
	if step >= dist {
		return target
	}
	ratio := step / dist
	return grid.Point{
		X: from.X + (target.X-from.X)*ratio,
		Y: from.Y + (target.Y-from.Y)*ratio,
	}
}
