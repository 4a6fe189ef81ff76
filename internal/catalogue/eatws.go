package catalogue

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Document is one event's worth of EATWS feed data: the event solution plus
// its supporting station arrivals and magnitude estimates.
type Document struct {
	EventDetails EventFeature        `json:"event_details"`
	Stations     StationCollection   `json:"station_information"`
	Magnitudes   MagnitudeCollection `json:"magnitudes_information"`
}

// EventFeature wraps the event solution properties.
type EventFeature struct {
	Properties EventProperties `json:"properties"`
}

// StationCollection is the feature list of station arrivals.
type StationCollection struct {
	Features []StationFeature `json:"features"`
}

// StationFeature wraps one station arrival's properties.
type StationFeature struct {
	Properties StationProperties `json:"properties"`
}

// MagnitudeCollection is the feature list of magnitude solutions.
type MagnitudeCollection struct {
	Features []MagnitudeFeature `json:"features"`
}

// MagnitudeFeature wraps one magnitude solution's properties.
type MagnitudeFeature struct {
	Properties MagnitudeProperties `json:"properties"`
}

// EventProperties is the event solution as published by the feed. Depth and
// its uncertainty are in kilometres.
type EventProperties struct {
	EventID                      string  `json:"event_id"`
	OriginID                     string  `json:"origin_id"`
	Source                       string  `json:"source"`
	OriginTime                   string  `json:"origin_time"`
	OriginTimeUncertainty        float64 `json:"origin_time_uncertainty"`
	Longitude                    float64 `json:"longitude"`
	Latitude                     float64 `json:"latitude"`
	Depth                        float64 `json:"depth"`
	DepthUncertainty             float64 `json:"depth_uncertainty"`
	EarthModelID                 string  `json:"earth_model_id"`
	EvaluationMode               string  `json:"evaluation_mode"`
	EvaluationStatus             string  `json:"evaluation_status"`
	PhaseCount                   int     `json:"phase_count"`
	StationCount                 int     `json:"station_count"`
	StandardError                float64 `json:"standard_error"`
	AzimuthalGap                 float64 `json:"azimuthal_gap"`
	MinimumDistance              float64 `json:"minimum_distance"`
	MaximumDistance              float64 `json:"maximum_distance"`
	MinHorizontalUncertainty     float64 `json:"min_horizontal_uncertainty"`
	MaxHorizontalUncertainty     float64 `json:"max_horizontal_uncertainty"`
	AzimuthHorizontalUncertainty float64 `json:"azimuth_horizontal_uncertainty"`
}

// StationProperties is one station arrival.
type StationProperties struct {
	ArrivalID   int64   `json:"arrival_id"`
	ArrivalTime string  `json:"arrival_time"`
	NetworkCode string  `json:"network_code"`
	StationCode string  `json:"station_code"`
	ChannelCode string  `json:"channel_code"`
	Phase       string  `json:"phase"`
	Distance    float64 `json:"distance"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
}

// MagnitudeProperties is one magnitude solution.
type MagnitudeProperties struct {
	EarthquakeID     int64   `json:"earthquake_id"`
	Magnitude        float64 `json:"magnitude"`
	Type             string  `json:"type"`
	EvaluationStatus string  `json:"evaluation_status"`
}

// ReadDocument decodes an EATWS document from r.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding feed document: %w", err)
	}
	return &doc, nil
}

// ReadDocumentFile decodes an EATWS document from a file.
func ReadDocumentFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feed document: %w", err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// feed timestamps come in a few spellings, with and without the T separator
// and fractional seconds.
var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

func parseFeedTime(s string) (time.Time, error) {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised feed timestamp %q", s)
}
