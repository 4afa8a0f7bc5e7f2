package provider

import (
	"encoding/json"
	"strconv"
)

// Float decodes a numeric field that providers may send as a JSON number, a
// quoted string, or null. An unparseable value decodes to zero rather than
// failing the surrounding payload, matching the transform contract that
// missing or malformed numerics default to 0.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	// Try as number first
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = Float(v)
		return nil
	}

	// Then as string
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = Float(v)
	return nil
}

// Float64 returns the decoded value.
func (f Float) Float64() float64 { return float64(f) }

// StringSlice decodes a field that providers may send as a native JSON array,
// as a JSON-encoded string containing an array (Gamma sends
// `"[\"Yes\", \"No\"]"`), or omit entirely. All three shapes normalize to a
// plain slice; a parse failure on the string form yields an empty slice.
type StringSlice []string

func (ss *StringSlice) UnmarshalJSON(data []byte) error {
	// Native array of strings
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*ss = arr
		return nil
	}

	// Native array of numbers (some provider responses skip the quoting)
	var nums []json.Number
	if err := json.Unmarshal(data, &nums); err == nil {
		arr = make([]string, len(nums))
		for i, n := range nums {
			arr[i] = n.String()
		}
		*ss = arr
		return nil
	}

	// JSON-encoded string form
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*ss = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		*ss = nil
		return nil
	}
	*ss = arr
	return nil
}

// Floats parses every element with ParseFloat, defaulting unparseable
// entries to 0. Used for outcome price sequences.
func (ss StringSlice) Floats() []float64 {
	if len(ss) == 0 {
		return []float64{}
	}
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v = 0
		}
		out[i] = v
	}
	return out
}
