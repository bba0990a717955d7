// Package warp models a warp as three phases: exponential acceleration up to
// top speed, a constant-speed cruise, and exponential deceleration down to the
// dropout speed. From that model it derives the moment a delayed action (a
// bomb with a fixed fuse) must be launched so that it goes off a given number
// of seconds before the ship lands.
//
// The model deliberately reuses the warp speed in AU/s as the per-second
// acceleration rate. This matches the in-game approximation the numbers are
// checked against and must not be "corrected" into real kinematics.
//
// All functions are pure. They hold no state and are safe for concurrent use.
package warp

import (
	"errors"
	"fmt"
	"math"
)

// AUInMeters is one astronomical unit in meters.
const AUInMeters = 149_597_870_700.0

const (
	// maxDecelConstant caps the deceleration rate.
	maxDecelConstant = 2.0
	// maxDropoutSpeed caps the warp exit speed, m/s.
	maxDropoutSpeed = 100.0
)

var (
	// ErrInvalidInput is returned for missing, non-finite or non-positive inputs.
	ErrInvalidInput = errors.New("all values must be greater than zero")

	// ErrDegenerate is returned when the inputs drive the model outside the
	// domain of its logarithms, or when a result is not finite.
	ErrDegenerate = errors.New("warp model is degenerate for these inputs")
)

// ComputeWarpProfile derives the rate constants for a ship and splits a warp
// of distanceMeters into its phases.
//
//	kAccel   = warpSpeedAU
//	kDecel   = min(warpSpeedAU/3, 2)
//	dropout  = min(subwarpSpeed/2, 100)
//	vMax     = warpSpeedAU * AU
//	tAccel   = ln(vMax/kAccel) / kAccel
//	dAccel   = vMax/kAccel * (1 - e^(-kAccel*tAccel))
//	tDecel   = ln(vMax/dropout) / kDecel
//	dDecel   = vMax/kDecel * (1 - e^(-kDecel*tDecel))
//	dCruise  = max(0, distance - dAccel - dDecel)
//	tCruise  = dCruise / vMax
//
// On very short hops dAccel+dDecel can exceed the distance. The cruise phase
// then clamps to zero and the phase distances are left as computed, so their
// sum overshoots the requested distance.
func ComputeWarpProfile(warpSpeedAU, subwarpSpeed, distanceMeters float64) (Profile, Breakdown, error) {
	if !positive(warpSpeedAU) || !positive(subwarpSpeed) || !positive(distanceMeters) {
		return Profile{}, Breakdown{}, fmt.Errorf("warp speed %g, sub-warp speed %g, distance %g: %w",
			warpSpeedAU, subwarpSpeed, distanceMeters, ErrInvalidInput)
	}

	p := Profile{
		AccelConstant: warpSpeedAU,
		DecelConstant: math.Min(warpSpeedAU/3, maxDecelConstant),
		DropoutSpeed:  math.Min(subwarpSpeed/2, maxDropoutSpeed),
		MaxSpeed:      warpSpeedAU * AUInMeters,
	}

	// Both phase durations are logarithms of a speed ratio; a ratio of 1 or
	// less gives a zero or negative duration.
	accelRatio := p.MaxSpeed / p.AccelConstant
	if !(accelRatio > 1) {
		return Profile{}, Breakdown{}, fmt.Errorf("acceleration speed ratio %g: %w", accelRatio, ErrDegenerate)
	}
	decelRatio := p.MaxSpeed / p.DropoutSpeed
	if !(decelRatio > 1) {
		return Profile{}, Breakdown{}, fmt.Errorf("deceleration speed ratio %g: %w", decelRatio, ErrDegenerate)
	}

	var b Breakdown
	b.AccelTime = math.Log(accelRatio) / p.AccelConstant
	b.AccelDistance = (p.MaxSpeed / p.AccelConstant) * (1 - math.Exp(-p.AccelConstant*b.AccelTime))

	b.DecelTime = math.Log(decelRatio) / p.DecelConstant
	b.DecelDistance = (p.MaxSpeed / p.DecelConstant) * (1 - math.Exp(-p.DecelConstant*b.DecelTime))

	b.CruiseDistance = math.Max(0, distanceMeters-b.AccelDistance-b.DecelDistance)
	if p.MaxSpeed > 0 {
		b.CruiseTime = b.CruiseDistance / p.MaxSpeed
	}

	b.TotalTime = b.AccelTime + b.CruiseTime + b.DecelTime

	if !finite(b.AccelTime, b.AccelDistance, b.CruiseTime, b.CruiseDistance, b.DecelTime, b.DecelDistance, b.TotalTime) {
		return Profile{}, Breakdown{}, fmt.Errorf("non-finite phase breakdown: %w", ErrDegenerate)
	}

	return p, b, nil
}

// decelPhaseDuration is the time the deceleration law takes to go from top
// speed down to the dropout speed.
func decelPhaseDuration(kDecel, maxSpeed, dropoutSpeed float64) float64 {
	return math.Log(maxSpeed/dropoutSpeed) / kDecel
}

// DistanceRemainingAtTime returns how far the ship still has to travel when
// timeLeft seconds of warp remain. It assumes that moment lies inside the
// deceleration phase, which holds for the short fuse times it is used with.
//
// A timeLeft at or beyond the whole deceleration phase falls back to
// decelDist. Callers are not expected to get there.
func DistanceRemainingAtTime(timeLeft, kDecel, maxSpeed, dropoutSpeed, decelDist float64) float64 {
	if timeLeft <= 0 {
		return 0
	}
	if timeLeft >= decelPhaseDuration(kDecel, maxSpeed, dropoutSpeed) {
		return decelDist
	}
	return (maxSpeed / kDecel) * (1 - math.Exp(-kDecel*timeLeft))
}

// ComputeLaunchPlan derives the launch moment for a bomb whose fuse is
// detonationTime seconds, along with the ship's speed and the distance it
// still has to cover at that moment.
//
// The launch time is returned as is, including negative values when the fuse
// outlasts the whole warp. Use LaunchPlan.Feasible to tell the two apart.
func ComputeLaunchPlan(p Profile, b Breakdown, detonationTime float64) LaunchPlan {
	launch := b.TotalTime - detonationTime

	var speed float64
	switch {
	case launch <= b.AccelTime:
		// Same AU scaling as the acceleration constant, see the package doc.
		speed = p.AccelConstant * AUInMeters * math.Exp(p.AccelConstant*launch)
	case launch <= b.AccelTime+b.CruiseTime:
		speed = p.MaxSpeed
	default:
		speed = p.MaxSpeed * math.Exp(-p.DecelConstant*(launch-b.AccelTime-b.CruiseTime))
	}

	return LaunchPlan{
		LaunchTime:                launch,
		SpeedAtLaunch:             speed,
		DistanceRemainingAtLaunch: DistanceRemainingAtTime(detonationTime, p.DecelConstant, p.MaxSpeed, p.DropoutSpeed, b.DecelDistance),
	}
}

// Calculate validates in and runs the full model on it.
func Calculate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	dist := in.DistanceMeters()
	p, b, err := ComputeWarpProfile(in.WarpSpeedAU, in.SubwarpSpeed, dist)
	if err != nil {
		return Result{}, err
	}

	plan := ComputeLaunchPlan(p, b, in.DetonationTime)
	if !finite(plan.LaunchTime, plan.SpeedAtLaunch, plan.DistanceRemainingAtLaunch) {
		return Result{}, fmt.Errorf("non-finite launch plan: %w", ErrDegenerate)
	}

	return Result{
		Input:          in,
		DistanceMeters: dist,
		Profile:        p,
		Breakdown:      b,
		Plan:           plan,
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
