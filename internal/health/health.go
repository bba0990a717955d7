package health

import (
	"errors"
	"net/http"

	"github.com/ieatacidme/Tickbomb/internal/warp"
)

var errInfeasibleProbe = errors.New("probe calculation produced an infeasible plan")

// probeInput is a known-good calculation: 1 AU at 5 AU/s, 200 m/s subwarp,
// 5 s fuse.
var probeInput = warp.Input{
	DistanceAU:     1,
	WarpSpeedAU:    5,
	SubwarpSpeed:   200,
	DetonationTime: 5,
}

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" when the calculator produces a feasible plan
// for the probe input, 503 otherwise.
func Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if err := probe(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: " + err.Error() + "\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}

func probe() error {
	res, err := warp.Calculate(probeInput)
	if err != nil {
		return err
	}
	if !res.Plan.Feasible() {
		return errInfeasibleProbe
	}
	return nil
}
