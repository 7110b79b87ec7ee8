//go:build !darwin && !linux

package dispatch

import "errors"

// otherFnTap is the reduced-capability stand-in for platforms with no
// wired HID tap (spec §4.D's Linux carve-out extends to any other
// platform lacking a Fn-equivalent source): Run returns immediately with
// an error rather than silently never firing, so callers can fall back
// to binding-only dispatch without a Fn monitor.
type otherFnTap struct{}

func newPlatformFnTap() fnTap { return otherFnTap{} }

func (otherFnTap) Run(onEvent func(fnSignal)) error {
	return errors.New("fn monitor: no platform tap available")
}

func (otherFnTap) Close() {}
