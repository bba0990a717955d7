package warp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotNumeric is returned by ParseInput when a field is empty or does not
// hold a number.
var ErrNotNumeric = errors.New("please enter valid numbers in all fields")

// Field names as used by the front-ends and the JSON payload.
const (
	FieldDistance       = "distance"
	FieldWarpSpeed      = "warp_speed"
	FieldSubwarpSpeed   = "subwarp_speed"
	FieldDetonationTime = "detonation_time"
)

// Validate checks that every field is a finite number greater than zero.
func (in Input) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{FieldDistance, in.DistanceAU},
		{FieldWarpSpeed, in.WarpSpeedAU},
		{FieldSubwarpSpeed, in.SubwarpSpeed},
		{FieldDetonationTime, in.DetonationTime},
	}
	for _, f := range fields {
		if !finite(f.value) {
			return fmt.Errorf("%s is not a finite number: %w", f.name, ErrNotNumeric)
		}
		if f.value <= 0 {
			return fmt.Errorf("%s = %g: %w", f.name, f.value, ErrInvalidInput)
		}
	}
	return nil
}

// ParseInput builds an Input from raw text fields and validates it.
func ParseInput(distance, warpSpeed, subwarpSpeed, detonationTime string) (Input, error) {
	var in Input
	targets := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{FieldDistance, distance, &in.DistanceAU},
		{FieldWarpSpeed, warpSpeed, &in.WarpSpeedAU},
		{FieldSubwarpSpeed, subwarpSpeed, &in.SubwarpSpeed},
		{FieldDetonationTime, detonationTime, &in.DetonationTime},
	}
	for _, t := range targets {
		v, err := ParseNumber(t.raw)
		if err != nil {
			return Input{}, fmt.Errorf("%s: %w", t.name, err)
		}
		*t.dst = v
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// ParseNumber parses a single decimal field. Surrounding whitespace is ignored.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrNotNumeric
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, ErrNotNumeric
	}
	return v, nil
}
