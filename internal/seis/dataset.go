package seis

import (
	"sort"
	"time"
)

// StationEvents maps event ID to the event's waveform stream at one station.
type StationEvents map[string]Stream

// NetworkEventDataset groups event waveform streams by station within one
// network. Station and event iteration order is deterministic (sorted), so
// positionally recombined results always line up.
type NetworkEventDataset struct {
	Network string
	data    map[string]StationEvents
}

// NewNetworkEventDataset creates an empty dataset for the given network code.
func NewNetworkEventDataset(network string) *NetworkEventDataset {
	return &NetworkEventDataset{
		Network: network,
		data:    make(map[string]StationEvents),
	}
}

// Add stores a stream under the given station and event ID.
func (ds *NetworkEventDataset) Add(station, eventID string, st Stream) {
	evs, ok := ds.data[station]
	if !ok {
		evs = make(StationEvents)
		ds.data[station] = evs
	}
	evs[eventID] = st
}

// Len returns the total number of event streams across all stations.
func (ds *NetworkEventDataset) Len() int {
	n := 0
	for _, evs := range ds.data {
		n += len(evs)
	}
	return n
}

// Stations returns the station codes in sorted order.
func (ds *NetworkEventDataset) Stations() []string {
	stations := make([]string, 0, len(ds.data))
	for sta := range ds.data {
		stations = append(stations, sta)
	}
	sort.Strings(stations)
	return stations
}

// EventIDs returns the event IDs recorded at a station in sorted order.
func (ds *NetworkEventDataset) EventIDs(station string) []string {
	evs := ds.data[station]
	ids := make([]string, 0, len(evs))
	for id := range evs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Station returns the event collection for one station.
func (ds *NetworkEventDataset) Station(station string) StationEvents {
	return ds.data[station]
}

// Stream returns the waveform stream for one event at one station, or nil.
func (ds *NetworkEventDataset) Stream(station, eventID string) Stream {
	return ds.data[station][eventID]
}

// DateRange returns the earliest start time and latest end time over all
// traces recorded at a station.
func (ds *NetworkEventDataset) DateRange(station string) (start, end time.Time) {
	for _, id := range ds.EventIDs(station) {
		for _, tr := range ds.data[station][id] {
			if start.IsZero() || tr.Stats.StartTime.Before(start) {
				start = tr.Stats.StartTime
			}
			if e := tr.EndTime(); end.IsZero() || e.After(end) {
				end = e
			}
		}
	}
	return start, end
}

// Copy returns a deep copy of the dataset.
func (ds *NetworkEventDataset) Copy() *NetworkEventDataset {
	out := NewNetworkEventDataset(ds.Network)
	for sta, evs := range ds.data {
		for id, st := range evs {
			out.Add(sta, id, st.Copy())
		}
	}
	return out
}

// transform builds a new dataset by applying fn to a copy of every stream.
// Streams for which fn returns an empty result are dropped.
func (ds *NetworkEventDataset) transform(fn func(Stream) Stream) *NetworkEventDataset {
	out := NewNetworkEventDataset(ds.Network)
	for sta, evs := range ds.data {
		for id, st := range evs {
			if next := fn(st.Copy()); len(next) > 0 {
				out.Add(sta, id, next)
			}
		}
	}
	return out
}

// TrimWindow returns a snapshot with every stream trimmed to
// [onset+startOffset, onset+endOffset] seconds.
func (ds *NetworkEventDataset) TrimWindow(startOffset, endOffset float64) *NetworkEventDataset {
	return ds.transform(func(st Stream) Stream {
		out := make(Stream, 0, len(st))
		for _, tr := range st {
			trimmed := tr.TrimRelOnset(startOffset, endOffset)
			if len(trimmed.Data) > 0 {
				out = append(out, trimmed)
			}
		}
		return out
	})
}

// Downsample returns a snapshot resampled to the given rate, applying a
// zero-phase anti-alias low-pass at the new Nyquist frequency first.
func (ds *NetworkEventDataset) Downsample(rate float64) *NetworkEventDataset {
	return ds.transform(func(st Stream) Stream {
		out := make(Stream, 0, len(st))
		for _, tr := range st {
			tr.Lowpass(rate / 2)
			out = append(out, tr.Resample(rate))
		}
		return out
	})
}
