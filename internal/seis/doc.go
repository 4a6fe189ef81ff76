// Package seis models three-component seismic event waveforms and the
// network-scoped dataset the orientation analysis operates on.
//
// # Data source
//
// Waveform archives are produced by an upstream extraction stage that pulls
// per-event windows from continuous station recordings. Each record is a
// three-component stream (vertical plus two horizontals, or rotated
// radial/transverse) for one earthquake observed at one station, annotated
// with event ID, station code, back-azimuth, onset time, and sample rate.
// Archives are msgpack documents; see [LoadArchive] and [SaveArchive].
//
// # Conventions
//
//	Channel codes follow SEED: the last letter names the component,
//	e.g. "BHZ" (vertical), "BHN"/"BHE" (north/east), "BHR"/"BHT"
//	(radial/transverse after rotation).
//
//	Back-azimuth is the direction from the station back toward the event,
//	degrees clockwise from north, in [0, 360).
//
//	Onset is the expected primary-arrival time. Trim windows throughout the
//	pipeline are expressed in seconds relative to onset.
//
// # Snapshots
//
// Dataset-level stage transforms ([NetworkEventDataset.TrimWindow],
// [NetworkEventDataset.Downsample], [Curate]) return a new dataset snapshot
// rather than mutating their receiver, so each pipeline stage owns the
// snapshot it produced. Trace-level operations (Detrend, Taper) mutate their
// receiver; callers that need the original first take a Copy.
package seis
