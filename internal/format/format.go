// Package format renders counters and rates with the largest unit that keeps
// the scaled value in [1, 1000).
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Unit is a family of units separated by factors of 1000.
type Unit struct {
	tiers []string
	// scale converts the caller's input into the smallest tier.
	scale float64
}

var (
	BitRate     = Unit{tiers: []string{"bit/s", "Kbit/s", "Mbit/s", "Gbit/s", "Tbit/s"}, scale: 1}
	PacketRate  = Unit{tiers: []string{"packets/s", "Kpackets/s", "Mpackets/s", "Gpackets/s", "Tpackets/s"}, scale: 1}
	Nanoseconds = Unit{tiers: []string{"ps", "ns", "µs", "ms", "s"}, scale: 1000}
	Packets     = Unit{tiers: []string{"", "K", "M", "G", "T"}, scale: 1}
	ByteSize    = Unit{tiers: []string{"B", "KB", "MB", "GB", "TB"}, scale: 1}
)

// Base is the smallest unit name of the family.
func (u Unit) Base() string {
	return u.tiers[0]
}

var siTiers = map[string]int{"": 0, "k": 1, "M": 2, "G": 3, "T": 4, "P": 5, "E": 6}

// Value formats v in unit family u with the given number of decimals.
// Strings are returned unchanged so already formatted values can be passed again.
func Value(v any, u Unit, decimals int) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return Float(n, u, decimals)
	case float32:
		return Float(float64(n), u, decimals)
	case int:
		return Float(float64(n), u, decimals)
	case int64:
		return Float(float64(n), u, decimals)
	case int32:
		return Float(float64(n), u, decimals)
	case uint:
		return Float(float64(n), u, decimals)
	case uint64:
		return Float(float64(n), u, decimals)
	case uint32:
		return Float(float64(n), u, decimals)
	case nil:
		return zero(u)
	}
	return fmt.Sprint(v)
}

// Float scales x to the tier of u that keeps it below 1000. Values past the
// largest tier stay in it; zero, negative and NaN values render as zero.
func Float(x float64, u Unit, decimals int) string {
	if math.IsNaN(x) || x <= 0 {
		return zero(u)
	}
	if decimals < 0 {
		decimals = 0
	}
	last := len(u.tiers) - 1
	x *= u.scale

	_, prefix := humanize.ComputeSI(x)
	tier, ok := siTiers[prefix]
	if !ok {
		// sub-unit prefixes stay in the smallest tier, unscaled
		tier = 0
		if x >= 1 {
			tier = last
		}
	}
	if tier > last {
		tier = last
	}

	scaled := x / math.Pow(1000, float64(tier))
	if tier < last && round(scaled, decimals) >= 1000 {
		tier++
		scaled = x / math.Pow(1000, float64(tier))
	}
	return join(strconv.FormatFloat(scaled, 'f', decimals, 64), u.tiers[tier])
}

func zero(u Unit) string {
	return join("0", u.tiers[0])
}

func join(num, unit string) string {
	if unit == "" {
		return num
	}
	return num + " " + unit
}

func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// Bits formats a rate given in bit/s.
func Bits(bps float64, decimals int) string {
	return Float(bps, BitRate, decimals)
}

// Pps formats a rate given in packets/s.
func Pps(pps float64, decimals int) string {
	return Float(pps, PacketRate, decimals)
}

// Time formats a duration given in nanoseconds.
func Time(ns float64, decimals int) string {
	return Float(ns, Nanoseconds, decimals)
}

// PacketCount formats a packet counter with a K/M/G/T suffix.
func PacketCount(n uint64, decimals int) string {
	return Float(float64(n), Packets, decimals)
}

// Bytes formats a byte count with decimal units.
func Bytes(n uint64, decimals int) string {
	return Float(float64(n), ByteSize, decimals)
}

// Count renders a raw counter with thousands separators.
func Count(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10)
	}
	return humanize.Comma(int64(n))
}

// Percent returns part/whole as a percentage; a zero whole yields 0.
func Percent(part, whole float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	p := 0.0
	if whole > 0 && part > 0 {
		p = part / whole * 100
	}
	return strconv.FormatFloat(p, 'f', decimals, 64) + " %"
}

// Elapsed renders a number of seconds as "45s", "1m 05s" or "2h 01m 09s".
func Elapsed(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	d := time.Duration(math.Round(seconds)) * time.Second
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	var b strings.Builder
	switch {
	case h > 0:
		fmt.Fprintf(&b, "%dh %02dm %02ds", h, m, s)
	case m > 0:
		fmt.Fprintf(&b, "%dm %02ds", m, s)
	default:
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
