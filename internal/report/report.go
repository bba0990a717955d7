// Package report turns a warp calculation into the display strings every
// front-end shows: three titled sections, distances in km and AU, speeds in
// m/s and AU/s.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// Section titles.
const (
	TitleTarget = "TARGET INFORMATION"
	TitleWarp   = "WARP TIME BREAKDOWN"
	TitleLaunch = "BOMB LAUNCH TIMING"
)

// TargetInfo echoes the inputs.
type TargetInfo struct {
	WarpDistance   string `json:"warp_distance"`
	WarpSpeed      string `json:"warp_speed"`
	SubwarpSpeed   string `json:"subwarp_speed"`
	DetonationTime string `json:"detonation_time"`
}

// WarpTime describes the three phases and the total.
type WarpTime struct {
	AccelPhase  string `json:"accel_phase"`
	CruisePhase string `json:"cruise_phase"`
	DecelPhase  string `json:"decel_phase"`
	TotalTime   string `json:"total_time"`
}

// BombTiming describes the launch moment.
type BombTiming struct {
	LaunchTime        string `json:"launch_time"`
	TimeBeforeLanding string `json:"time_before_landing"`
	DistanceRemaining string `json:"distance_remaining"`
	CurrentSpeed      string `json:"current_speed"`
}

// Section is a titled block of display lines. Empty lines are spacers.
type Section struct {
	Title string
	Lines []string
}

// Report holds the formatted result.
type Report struct {
	Target  TargetInfo
	Warp    WarpTime
	Launch  BombTiming
	Warning string // set when the launch time is negative

	fuse float64
}

// Build formats res.
func Build(res warp.Result) Report {
	in, b, plan := res.Input, res.Breakdown, res.Plan

	r := Report{
		Target: TargetInfo{
			WarpDistance:   fmt.Sprintf("%.2f AU (%s km)", in.DistanceAU, Thousands(res.DistanceMeters/1000)),
			WarpSpeed:      Plain(in.WarpSpeedAU) + " AU/s",
			SubwarpSpeed:   Plain(in.SubwarpSpeed) + " m/s",
			DetonationTime: Plain(in.DetonationTime) + " seconds",
		},
		Warp: WarpTime{
			AccelPhase:  phase(b.AccelTime, b.AccelDistance),
			CruisePhase: phase(b.CruiseTime, b.CruiseDistance),
			DecelPhase:  phase(b.DecelTime, b.DecelDistance),
			TotalTime:   fmt.Sprintf("%.2f seconds", b.TotalTime),
		},
		Launch: BombTiming{
			LaunchTime:        fmt.Sprintf("%.2f seconds after warp start", plan.LaunchTime),
			TimeBeforeLanding: fmt.Sprintf("%.2f seconds before landing", in.DetonationTime),
			DistanceRemaining: fmt.Sprintf("%.4f AU (%s km)", plan.DistanceRemainingAtLaunch/warp.AUInMeters, Thousands(plan.DistanceRemainingAtLaunch/1000)),
			CurrentSpeed:      fmt.Sprintf("%s m/s (%.2f AU/s)", Thousands(plan.SpeedAtLaunch), plan.SpeedAtLaunch/warp.AUInMeters),
		},
		fuse: in.DetonationTime,
	}

	if !plan.Feasible() {
		r.Warning = fmt.Sprintf("Detonation time exceeds total warp time by %.2f seconds: the bomb cannot be launched in time", -plan.LaunchTime)
	}

	return r
}

func phase(seconds, meters float64) string {
	return fmt.Sprintf("%.2f seconds (distance: %s km)", seconds, Thousands(meters/1000))
}

// Sections lays the report out for line-oriented displays.
func (r Report) Sections() []Section {
	launch := Section{
		Title: TitleLaunch,
		Lines: []string{
			"Launch Bomb at: " + r.Launch.LaunchTime,
			"Which is " + r.Launch.TimeBeforeLanding,
			"",
			"At launch time:",
			"- Distance remaining: " + r.Launch.DistanceRemaining,
			"- Current speed: " + r.Launch.CurrentSpeed,
			fmt.Sprintf("- This distance will be covered in exactly %.2f seconds", r.fuse),
		},
	}
	if r.Warning != "" {
		launch.Lines = append(launch.Lines, "", "WARNING: "+r.Warning)
	}

	return []Section{
		{
			Title: TitleTarget,
			Lines: []string{
				"Warp Distance: " + r.Target.WarpDistance,
				"Warp Speed: " + r.Target.WarpSpeed,
				"Sub Warp Speed: " + r.Target.SubwarpSpeed,
				"Bomb Detonation Time: " + r.Target.DetonationTime,
			},
		},
		{
			Title: TitleWarp,
			Lines: []string{
				"Acceleration Phase: " + r.Warp.AccelPhase,
				"Cruise Phase: " + r.Warp.CruisePhase,
				"Deceleration Phase: " + r.Warp.DecelPhase,
				"",
				"Total Warp Time: " + r.Warp.TotalTime,
			},
		},
		launch,
	}
}

// Text renders every section as plain text, items indented by two spaces.
func (r Report) Text() string {
	var sb strings.Builder
	for _, s := range r.Sections() {
		sb.WriteString(s.Title)
		sb.WriteByte('\n')
		for _, line := range s.Lines {
			if line == "" {
				sb.WriteByte('\n')
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// maxCommaInt is the largest magnitude rounded into an int64 for grouping.
const maxCommaInt = 1 << 62

// Thousands rounds v to an integer and groups its digits with commas.
// Magnitudes beyond int64 fall back to exponent notation.
func Thousands(v float64) string {
	r := math.RoundToEven(v)
	if math.IsNaN(r) || math.Abs(r) >= maxCommaInt {
		return strconv.FormatFloat(v, 'e', 3, 64)
	}
	return humanize.Comma(int64(r))
}

// Plain prints v the shortest way that round-trips, always keeping a decimal
// point on whole numbers ("5.0", "4.2", "1e-05").
func Plain(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
