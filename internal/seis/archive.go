package seis

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// archiveTrace is the serialized form of one trace in a waveform archive.
type archiveTrace struct {
	Station     string    `msgpack:"station"`
	Channel     string    `msgpack:"channel"`
	EventID     string    `msgpack:"event_id"`
	BackAzimuth float64   `msgpack:"back_azimuth"`
	SampleRate  float64   `msgpack:"sample_rate"`
	StartTime   time.Time `msgpack:"start_time"`
	Onset       time.Time `msgpack:"onset"`
	Data        []float64 `msgpack:"data"`
}

// archiveDoc is the top-level structure of a waveform archive file.
type archiveDoc struct {
	Network string         `msgpack:"network"`
	Traces  []archiveTrace `msgpack:"traces"`
}

// SaveArchive writes the dataset to a msgpack waveform-archive file.
func SaveArchive(path string, ds *NetworkEventDataset) error {
	doc := archiveDoc{Network: ds.Network}
	for _, sta := range ds.Stations() {
		for _, id := range ds.EventIDs(sta) {
			for _, tr := range ds.Stream(sta, id) {
				doc.Traces = append(doc.Traces, archiveTrace{
					Station:     tr.Stats.Station,
					Channel:     tr.Stats.Channel,
					EventID:     tr.Stats.EventID,
					BackAzimuth: tr.Stats.BackAzimuth,
					SampleRate:  tr.Stats.SampleRate,
					StartTime:   tr.Stats.StartTime,
					Onset:       tr.Stats.Onset,
					Data:        tr.Data,
				})
			}
		}
	}

	data, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// LoadArchive reads a msgpack waveform-archive file into a dataset.
func LoadArchive(path string) (*NetworkEventDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	var doc archiveDoc
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	ds := NewNetworkEventDataset(doc.Network)
	for _, at := range doc.Traces {
		tr := &Trace{
			Stats: Stats{
				Network:     doc.Network,
				Station:     at.Station,
				Channel:     at.Channel,
				EventID:     at.EventID,
				BackAzimuth: at.BackAzimuth,
				SampleRate:  at.SampleRate,
				StartTime:   at.StartTime,
				Onset:       at.Onset,
			},
			Data: at.Data,
		}
		st := ds.Stream(at.Station, at.EventID)
		ds.Add(at.Station, at.EventID, append(st, tr))
	}
	return ds, nil
}
