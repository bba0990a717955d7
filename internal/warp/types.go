package warp

// Input holds the four values a calculation is run from.
type Input struct {
	DistanceAU     float64 `json:"distance"`        // warp distance, AU
	WarpSpeedAU    float64 `json:"warp_speed"`      // maximum warp speed, AU/s
	SubwarpSpeed   float64 `json:"subwarp_speed"`   // maximum sub-warp speed, m/s
	DetonationTime float64 `json:"detonation_time"` // bomb fuse, seconds
}

// DistanceMeters returns the warp distance converted to meters.
func (in Input) DistanceMeters() float64 {
	return in.DistanceAU * AUInMeters
}

// Profile holds the rate constants derived from the ship's speeds.
// Immutable once computed.
type Profile struct {
	AccelConstant float64 // exponential growth rate while accelerating, 1/s
	DecelConstant float64 // exponential decay rate while decelerating, 1/s
	DropoutSpeed  float64 // speed at which the ship leaves warp, m/s
	MaxSpeed      float64 // top warp speed, m/s
}

// Breakdown splits a warp into its three phases.
type Breakdown struct {
	AccelTime      float64 `json:"accel_time"`
	AccelDistance  float64 `json:"accel_distance"`
	CruiseTime     float64 `json:"cruise_time"`
	CruiseDistance float64 `json:"cruise_distance"`
	DecelTime      float64 `json:"decel_time"`
	DecelDistance  float64 `json:"decel_distance"`
	TotalTime      float64 `json:"total_time"`
}

// LaunchPlan says when, measured from warp start, the bomb has to leave.
type LaunchPlan struct {
	LaunchTime                float64 `json:"launch_time"`
	SpeedAtLaunch             float64 `json:"speed_at_launch"`
	DistanceRemainingAtLaunch float64 `json:"distance_remaining_at_launch"`
}

// Feasible reports whether the launch happens at or after warp start.
// A negative launch time means the fuse is longer than the whole warp.
func (p LaunchPlan) Feasible() bool {
	return p.LaunchTime >= 0
}

// Result bundles everything one calculation produces.
type Result struct {
	Input          Input
	DistanceMeters float64
	Profile        Profile
	Breakdown      Breakdown
	Plan           LaunchPlan
}
