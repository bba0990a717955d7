package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/ieatacidme/Tickbomb/internal/metrics"
	"github.com/ieatacidme/Tickbomb/internal/report"
	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// maxCalculateBody caps the request body of a calculation.
const maxCalculateBody = 64 << 10

// calculateResponse is the JSON body of a successful calculation.
type calculateResponse struct {
	TargetInfo report.TargetInfo `json:"target_info"`
	WarpTime   report.WarpTime   `json:"warp_time"`
	BombTiming report.BombTiming `json:"bomb_timing"`
	Countdown  countdownSeed     `json:"countdown"`
	Feasible   bool              `json:"feasible"`
	Warning    string            `json:"warning,omitempty"`
}

// countdownSeed carries the raw seconds a client needs to run the countdown.
type countdownSeed struct {
	TotalTime  float64 `json:"total_time"`
	LaunchTime float64 `json:"launch_time"`
}

// flexNumber accepts a JSON number or a string holding one and keeps the
// raw text for warp.ParseInput.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	*n = flexNumber(b)
	return nil
}

type calculateRequest struct {
	Distance       flexNumber `json:"distance"`
	WarpSpeed      flexNumber `json:"warp_speed"`
	SubwarpSpeed   flexNumber `json:"subwarp_speed"`
	DetonationTime flexNumber `json:"detonation_time"`
}

// decodeCalculateRequest reads a JSON body or, for any other content type,
// a url-encoded form with the same field names.
func decodeCalculateRequest(r *http.Request) (calculateRequest, error) {
	var req calculateRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid JSON body: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form body: %w", err)
	}
	req.Distance = flexNumber(r.PostForm.Get(warp.FieldDistance))
	req.WarpSpeed = flexNumber(r.PostForm.Get(warp.FieldWarpSpeed))
	req.SubwarpSpeed = flexNumber(r.PostForm.Get(warp.FieldSubwarpSpeed))
	req.DetonationTime = flexNumber(r.PostForm.Get(warp.FieldDetonationTime))
	return req, nil
}

// calculateHandler handles POST /api/v1/calculate and its /calculate alias.
// Invalid input is a 400; a model failure on valid input is a 422.
func calculateHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxCalculateBody)

		req, err := decodeCalculateRequest(r)
		if err != nil {
			metrics.IncCalculation(metrics.ResultInvalid)
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		in, err := warp.ParseInput(string(req.Distance), string(req.WarpSpeed),
			string(req.SubwarpSpeed), string(req.DetonationTime))
		if err != nil {
			metrics.IncCalculation(metrics.ResultInvalid)
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := warp.Calculate(in)
		if err != nil {
			status := http.StatusUnprocessableEntity
			result := metrics.ResultDegenerate
			if errors.Is(err, warp.ErrInvalidInput) || errors.Is(err, warp.ErrNotNumeric) {
				status, result = http.StatusBadRequest, metrics.ResultInvalid
			}
			metrics.IncCalculation(result)
			logger.Warn("calculation failed",
				"component", "api",
				"distance_au", in.DistanceAU,
				"warp_speed", in.WarpSpeedAU,
				"subwarp_speed", in.SubwarpSpeed,
				"detonation_time", in.DetonationTime,
				"error", err,
			)
			writeJSONError(w, status, err.Error())
			return
		}

		metrics.IncCalculation(metrics.ResultOK)
		feasible := res.Plan.Feasible()
		if !feasible {
			metrics.IncInfeasible()
		}

		rep := report.Build(res)
		logger.Debug("calculation",
			"component", "api",
			"distance_au", in.DistanceAU,
			"total_time", res.Breakdown.TotalTime,
			"launch_time", res.Plan.LaunchTime,
			"feasible", feasible,
		)

		writeJSON(w, http.StatusOK, calculateResponse{
			TargetInfo: rep.Target,
			WarpTime:   rep.Warp,
			BombTiming: rep.Launch,
			Countdown: countdownSeed{
				TotalTime:  res.Breakdown.TotalTime,
				LaunchTime: res.Plan.LaunchTime,
			},
			Feasible: feasible,
			Warning:  rep.Warning,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(msg)})
}
