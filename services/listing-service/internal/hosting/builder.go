package hosting

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
)

var (
	ErrRangeIncomplete = errors.New("range incomplete: choose a start and end date first")
	ErrNoRanges        = errors.New("add at least one date range before publishing")
)

// Builder accumulates the availability ranges a host is about to publish.
// The picker selection is held as pending until the host confirms it, at
// which point it is merged into the confirmed set.
type Builder struct {
	pending   *availability.DateRange
	confirmed availability.IntervalSet
}

func NewBuilder() *Builder {
	return &Builder{}
}

// NewBuilderFrom starts a draft from already published availability.
func NewBuilderFrom(set availability.IntervalSet) *Builder {
	return &Builder{confirmed: set}
}

// SelectPending replaces the pending selection. r is kept as given.
func (b *Builder) SelectPending(r availability.DateRange) {
	b.pending = &r
}

func (b *Builder) Pending() (availability.DateRange, bool) {
	if b.pending == nil {
		return availability.DateRange{}, false
	}
	return *b.pending, true
}

func (b *Builder) Confirmed() availability.IntervalSet {
	return b.confirmed
}

// ConfirmPending merges the pending selection into the confirmed set and
// clears it. State is left untouched when no complete range is pending.
func (b *Builder) ConfirmPending() error {
	if b.pending == nil || !b.pending.Complete() {
		return ErrRangeIncomplete
	}
	b.confirmed = availability.AddRange(b.confirmed, *b.pending)
	b.pending = nil
	return nil
}

// Remove drops the confirmed range at index.
func (b *Builder) Remove(index int) error {
	next, err := availability.RemoveAt(b.confirmed, index)
	if err != nil {
		return err
	}
	b.confirmed = next
	return nil
}

// Reset returns the builder to its initial empty state.
func (b *Builder) Reset() {
	b.pending = nil
	b.confirmed = availability.IntervalSet{}
}

// Payload serializes the confirmed set for the publish request.
func (b *Builder) Payload(f availability.Format) ([]byte, error) {
	if b.confirmed.Empty() {
		return nil, ErrNoRanges
	}
	return availability.Encode(b.confirmed, f)
}

type draftSnapshot struct {
	Pending   *availability.RawRange  `json:"pending,omitempty"`
	Confirmed []availability.RawRange `json:"confirmed"`
}

// EncodeDraft serializes b for a DraftStore.
func EncodeDraft(b *Builder) ([]byte, error) {
	snap := draftSnapshot{Confirmed: availability.Objects(b.confirmed)}
	if b.pending != nil {
		snap.Pending = &availability.RawRange{
			Start: formatOptional(b.pending.Start),
			End:   formatOptional(b.pending.End),
		}
	}
	return json.Marshal(snap)
}

// DecodeDraft restores a builder written by EncodeDraft. Dates are read in
// loc so that day boundaries match the ones the draft was built with.
func DecodeDraft(data []byte, loc *time.Location) (*Builder, error) {
	var snap draftSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	b := NewBuilder()
	b.confirmed, _ = availability.NormalizeRaw(snap.Confirmed, loc)
	if snap.Pending != nil {
		var r availability.DateRange
		if snap.Pending.Start != "" {
			t, err := availability.ParseDate(snap.Pending.Start, loc)
			if err != nil {
				return nil, fmt.Errorf("decode draft pending start: %w", err)
			}
			r.Start = t
		}
		if snap.Pending.End != "" {
			t, err := availability.ParseDate(snap.Pending.End, loc)
			if err != nil {
				return nil, fmt.Errorf("decode draft pending end: %w", err)
			}
			r.End = t
		}
		b.pending = &r
	}
	return b, nil
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return availability.FormatTime(t)
}
