// Package validate checks operator input before it reaches the controller or
// the configuration store.
package validate

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid value")

// FieldError names the offending field.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return e.Field + " " + e.Reason
	}
	return fmt.Sprintf("%s: %v %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

func fieldErr(field string, v any, reason string) error {
	return &FieldError{Field: field, Value: v, Reason: reason}
}

func inRange(field string, v, lo, hi int64) error {
	if v < lo || v > hi {
		return fieldErr(field, v, fmt.Sprintf("not in [%d, %d]", lo, hi))
	}
	return nil
}

// MAC accepts a 48 bit address in colon or dash notation.
func MAC(field, s string) error {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return fieldErr(field, s, "is not a MAC address")
	}
	return nil
}

func IPv4(field, s string) error {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return fieldErr(field, s, "is not an IPv4 address")
	}
	return nil
}

func IPv6(field, s string) error {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is6() || a.Is4In6() {
		return fieldErr(field, s, "is not an IPv6 address")
	}
	return nil
}

func MPLSLabel(field string, v int64) error { return inRange(field, v, 0, 1<<20-1) }
func MPLSTC(field string, v int64) error    { return inRange(field, v, 0, 7) }
func TTL(field string, v int64) error       { return inRange(field, v, 0, 255) }
func ToS(field string, v int64) error       { return inRange(field, v, 0, 255) }
func Port(field string, v int64) error      { return inRange(field, v, 1, 65535) }
func VNI(field string, v int64) error       { return inRange(field, v, 0, 1<<24-1) }
func VLANID(field string, v int64) error    { return inRange(field, v, 1, 4094) }
func PCP(field string, v int64) error       { return inRange(field, v, 0, 7) }
func DEI(field string, v int64) error       { return inRange(field, v, 0, 1) }
func FlowLabel(field string, v int64) error { return inRange(field, v, 0, 1<<20-1) }

// Limits of the data plane.
const (
	MaxLSE      = 15
	MaxSRv6SIDs = 3
)

func LSECount(field string, v int64) error { return inRange(field, v, 1, MaxLSE) }
func SIDCount(field string, v int64) error { return inRange(field, v, 1, MaxSRv6SIDs) }
