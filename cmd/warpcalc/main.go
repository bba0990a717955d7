// Command warpcalc prints the bomb launch timing for one warp.
//
//	warpcalc --distance 1 --warp-speed 5 --subwarp-speed 200 --detonation 5
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/ieatacidme/Tickbomb/internal/report"
	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// Exit codes.
const (
	exitOK         = 0
	exitDegenerate = 1
	exitUsage      = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("warpcalc", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	distance := fs.String("distance", "1.0", "warp distance in AU")
	warpSpeed := fs.String("warp-speed", "5.0", "ship warp speed in AU/s")
	subwarpSpeed := fs.String("subwarp-speed", "200", "ship sub-warp speed in m/s")
	detonation := fs.String("detonation", "5.0", "bomb detonation time in seconds")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	verbose := fs.BoolP("verbose", "v", false, "log the model phases to stderr")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	in, err := warp.ParseInput(*distance, *warpSpeed, *subwarpSpeed, *detonation)
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
		return exitUsage
	}

	res, err := warp.Calculate(in)
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
		if errors.Is(err, warp.ErrDegenerate) {
			return exitDegenerate
		}
		return exitUsage
	}

	logger.Debug("warp profile",
		"accel_constant", res.Profile.AccelConstant,
		"decel_constant", res.Profile.DecelConstant,
		"dropout_speed", res.Profile.DropoutSpeed,
		"max_speed", res.Profile.MaxSpeed,
		"accel_time", res.Breakdown.AccelTime,
		"cruise_time", res.Breakdown.CruiseTime,
		"decel_time", res.Breakdown.DecelTime,
	)

	rep := report.Build(res)
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output{
			TargetInfo: rep.Target,
			WarpTime:   rep.Warp,
			BombTiming: rep.Launch,
			Breakdown:  res.Breakdown,
			Plan:       res.Plan,
			Feasible:   res.Plan.Feasible(),
			Warning:    rep.Warning,
		}); err != nil {
			fmt.Fprintln(stderr, "ERROR:", err)
			return exitDegenerate
		}
		return exitOK
	}

	fmt.Fprint(stdout, rep.Text())
	return exitOK
}

type output struct {
	TargetInfo report.TargetInfo `json:"target_info"`
	WarpTime   report.WarpTime   `json:"warp_time"`
	BombTiming report.BombTiming `json:"bomb_timing"`
	Breakdown  warp.Breakdown    `json:"breakdown"`
	Plan       warp.LaunchPlan   `json:"plan"`
	Feasible   bool              `json:"feasible"`
	Warning    string            `json:"warning,omitempty"`
}
