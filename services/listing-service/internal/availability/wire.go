package availability

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Format selects the JSON shape used when availability is sent to the backend.
type Format string

const (
	// FormatObjects is [{"start": ..., "end": ...}, ...].
	FormatObjects Format = "objects"
	// FormatFlat is ["start1", "end1", "start2", "end2", ...].
	FormatFlat Format = "flat"
)

// isoLayout matches the millisecond UTC timestamps browsers produce.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrUnknownFormat = errors.New("unknown availability format")
	ErrInvalidDate   = errors.New("invalid date")
	errNotArray      = errors.New("availability must be a JSON array")
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatObjects, "":
		return FormatObjects, nil
	case FormatFlat:
		return FormatFlat, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// RawRange is a range as it arrives from a client or from storage, before
// any date parsing.
type RawRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Rejected describes an input entry that normalization discarded.
type Rejected struct {
	Index  int      `json:"index"`
	Range  RawRange `json:"range"`
	Reason string   `json:"reason"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

// compactDate is the eight digit YYYYMMDD form.
const compactDate = "20060102"

// minEpochDigits keeps short digit strings from being read as instants in
// 1970. Unix milliseconds have 10 or more digits after 1970-04-26.
const minEpochDigits = 10

// ParseDate converts a date-like string into a time in loc. Strings with an
// explicit offset are converted; strings without one are read as wall time
// in loc. Eight digits are a compact YYYYMMDD date; longer digit strings are
// Unix milliseconds; other digit strings are rejected.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if allDigits(raw) {
		switch {
		case len(raw) == len(compactDate):
			if t, err := time.ParseInLocation(compactDate, raw, loc); err == nil {
				return t, nil
			}
		case len(raw) >= minEpochDigits:
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return time.UnixMilli(ms).In(loc), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// ParseRange parses both endpoints of raw in loc. Endpoints are returned as
// given; flooring and ordering happen in Normalize.
func ParseRange(raw RawRange, loc *time.Location) (DateRange, error) {
	start, err := ParseDate(raw.Start, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseDate(raw.End, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	return DateRange{Start: start, End: end}, nil
}

// NormalizeRaw parses and normalizes externally sourced ranges. Entries that
// cannot be used are left out of the set and reported in the returned slice.
func NormalizeRaw(raws []RawRange, loc *time.Location) (IntervalSet, []Rejected) {
	var rejected []Rejected
	parsed := make([]DateRange, 0, len(raws))
	origin := make([]int, 0, len(raws))
	for i, raw := range raws {
		r, err := ParseRange(raw, loc)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Range: raw, Reason: err.Error()})
			continue
		}
		parsed = append(parsed, r)
		origin = append(origin, i)
	}
	set, dropped := normalize(parsed)
	for _, j := range dropped {
		i := origin[j]
		rejected = append(rejected, Rejected{Index: i, Range: raws[i], Reason: "empty range"})
	}
	slices.SortFunc(rejected, func(a, b Rejected) int { return cmp.Compare(a.Index, b.Index) })
	return set, rejected
}

// FormatTime renders t as an ISO-8601 UTC timestamp with milliseconds.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Objects renders s in the objects shape.
func Objects(s IntervalSet) []RawRange {
	out := make([]RawRange, 0, len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, RawRange{Start: FormatTime(r.Start), End: FormatTime(r.End)})
	}
	return out
}

// Flat renders s as alternating start/end strings.
func Flat(s IntervalSet) []string {
	out := make([]string, 0, 2*len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, FormatTime(r.Start), FormatTime(r.End))
	}
	return out
}

// Encode marshals s in the requested shape. An empty set encodes as [].
func Encode(s IntervalSet, f Format) ([]byte, error) {
	switch f {
	case FormatObjects, "":
		return json.Marshal(Objects(s))
	case FormatFlat:
		return json.Marshal(Flat(s))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// DecodeRaw reads a JSON array in either supported shape. Elements of the
// wrong type decode as empty ranges so that NormalizeRaw reports them instead
// of failing the whole payload. A trailing unpaired flat element becomes a
// range with no end. null decodes to nil.
func DecodeRaw(data []byte) ([]RawRange, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, errNotArray
	}
	if len(elems) == 0 {
		return nil, nil
	}

	if isScalar(elems[0]) {
		out := make([]RawRange, 0, (len(elems)+1)/2)
		for i := 0; i < len(elems); i += 2 {
			r := RawRange{Start: dateLike(elems[i])}
			if i+1 < len(elems) {
				r.End = dateLike(elems[i+1])
			}
			out = append(out, r)
		}
		return out, nil
	}

	out := make([]RawRange, 0, len(elems))
	for _, e := range elems {
		var obj struct {
			Start json.RawMessage `json:"start"`
			End   json.RawMessage `json:"end"`
		}
		if err := json.Unmarshal(e, &obj); err != nil {
			out = append(out, RawRange{})
			continue
		}
		out = append(out, RawRange{Start: dateLike(obj.Start), End: dateLike(obj.End)})
	}
	return out, nil
}

// isScalar reports whether m is a JSON string or number, which marks the
// flat shape.
func isScalar(m json.RawMessage) bool {
	m = bytes.TrimSpace(m)
	if len(m) == 0 {
		return false
	}
	c := m[0]
	return c == '"' || c == '-' || (c >= '0' && c <= '9')
}

// dateLike flattens a JSON string or number into the string form ParseDate
// accepts. Anything else yields "".
func dateLike(m json.RawMessage) string {
	m = bytes.TrimSpace(m)
	if len(m) == 0 {
		return ""
	}
	if m[0] == '"' {
		var s string
		if err := json.Unmarshal(m, &s); err != nil {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err != nil {
		return ""
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return ""
}
