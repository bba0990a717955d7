package stream

import (
	"fmt"
	"net/url"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// plan is a countdown request decoded from the query string.
type plan struct {
	launch float64
	total  float64
	alerts countdown.Alerts
}

// parsePlan reads launch_time and total_time (required) and the optional
// alert thresholds. A negative launch time wraps countdown.ErrInfeasible.
func (h *Handler) parsePlan(q url.Values) (plan, error) {
	p := plan{alerts: h.config.DefaultAlerts}

	launch, err := requiredNumber(q, "launch_time")
	if err != nil {
		return plan{}, err
	}
	total, err := requiredNumber(q, "total_time")
	if err != nil {
		return plan{}, err
	}
	if total <= 0 {
		return plan{}, errParam("total_time", "must be greater than zero")
	}
	if launch < 0 {
		return plan{}, fmt.Errorf("launch_time %.2f: %w", launch, countdown.ErrInfeasible)
	}
	if launch > total {
		return plan{}, errParam("launch_time", "must not exceed total_time")
	}
	p.launch, p.total = launch, total

	if p.alerts.Align, err = optionalAlert(q, "align_alert", p.alerts.Align); err != nil {
		return plan{}, err
	}
	if p.alerts.Bomb, err = optionalAlert(q, "bomb_alert", p.alerts.Bomb); err != nil {
		return plan{}, err
	}
	return p, nil
}

func requiredNumber(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, errParam(name, "is required")
	}
	v, err := warp.ParseNumber(raw)
	if err != nil {
		return 0, errParam(name, "must be a finite number")
	}
	return v, nil
}

func optionalAlert(q url.Values, name string, def float64) (float64, error) {
	if q.Get(name) == "" {
		return def, nil
	}
	v, err := requiredNumber(q, name)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errParam(name, "must not be negative")
	}
	return v, nil
}
