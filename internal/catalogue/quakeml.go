package catalogue

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"
)

// QuakeML 1.2 namespaces. The document root lives in the quakeml namespace
// and the event description elements in the basic event description (bed)
// namespace, matching the interchange files other processing tools expect.
const (
	quakemlNamespace = "http://quakeml.org/xmlns/quakeml/1.2"
	bedNamespace     = "http://quakeml.org/xmlns/bed/1.2"
)

// quakemlTimeLayout renders times the way QuakeML consumers conventionally
// write them: UTC with microsecond precision.
const quakemlTimeLayout = "2006-01-02T15:04:05.000000Z"

// QuakeML is the document root.
type QuakeML struct {
	XMLName         xml.Name        `xml:"q:quakeml"`
	QNamespace      string          `xml:"xmlns:q,attr"`
	Namespace       string          `xml:"xmlns,attr"`
	EventParameters EventParameters `xml:"eventParameters"`
}

// EventParameters is the event catalogue body.
type EventParameters struct {
	PublicID     string        `xml:"publicID,attr"`
	Description  string        `xml:"description,omitempty"`
	CreationInfo *CreationInfo `xml:"creationInfo,omitempty"`
	Events       []Event       `xml:"event"`
}

// Event is a single seismic event with its picks, origins and magnitudes.
type Event struct {
	PublicID          string        `xml:"publicID,attr"`
	PreferredOriginID string        `xml:"preferredOriginID,omitempty"`
	Type              string        `xml:"type,omitempty"`
	TypeCertainty     string        `xml:"typeCertainty,omitempty"`
	Description       []Description `xml:"description"`
	CreationInfo      *CreationInfo `xml:"creationInfo,omitempty"`
	Picks             []Pick        `xml:"pick"`
	Origins           []Origin      `xml:"origin"`
	Magnitudes        []Magnitude   `xml:"magnitude"`
}

// Description is a free-text event annotation.
type Description struct {
	Text string `xml:"text"`
	Type string `xml:"type,omitempty"`
}

// CreationInfo records the provenance of a catalogue object.
type CreationInfo struct {
	AgencyID  string `xml:"agencyID,omitempty"`
	Author    string `xml:"author,omitempty"`
	AuthorURI string `xml:"authorURI,omitempty"`
	Version   string `xml:"version,omitempty"`
}

// TimeQuantity is a timestamp with an optional one-sigma uncertainty in
// seconds.
type TimeQuantity struct {
	Value       string   `xml:"value"`
	Uncertainty *float64 `xml:"uncertainty,omitempty"`
}

// RealQuantity is a measured value with an optional uncertainty.
type RealQuantity struct {
	Value       float64  `xml:"value"`
	Uncertainty *float64 `xml:"uncertainty,omitempty"`
}

// WaveformID identifies the recording channel a pick was made on.
type WaveformID struct {
	NetworkCode  string `xml:"networkCode,attr"`
	StationCode  string `xml:"stationCode,attr"`
	LocationCode string `xml:"locationCode,attr"`
	ChannelCode  string `xml:"channelCode,attr"`
}

// Pick is a phase arrival time observation at one station.
type Pick struct {
	PublicID         string        `xml:"publicID,attr"`
	Time             TimeQuantity  `xml:"time"`
	WaveformID       WaveformID    `xml:"waveformID"`
	Backazimuth      *RealQuantity `xml:"backazimuth,omitempty"`
	PhaseHint        string        `xml:"phaseHint,omitempty"`
	Polarity         string        `xml:"polarity,omitempty"`
	EvaluationMode   string        `xml:"evaluationMode,omitempty"`
	EvaluationStatus string        `xml:"evaluationStatus,omitempty"`
	CreationInfo     *CreationInfo `xml:"creationInfo,omitempty"`
}

// Arrival associates a pick with an origin solution.
type Arrival struct {
	PublicID     string        `xml:"publicID,attr"`
	PickID       string        `xml:"pickID"`
	Phase        string        `xml:"phase"`
	Azimuth      *float64      `xml:"azimuth,omitempty"`
	Distance     *float64      `xml:"distance,omitempty"`
	EarthModelID string        `xml:"earthModelID,omitempty"`
	CreationInfo *CreationInfo `xml:"creationInfo,omitempty"`
}

// OriginQuality summarises the constraints behind an origin solution.
type OriginQuality struct {
	UsedPhaseCount   int     `xml:"usedPhaseCount"`
	UsedStationCount int     `xml:"usedStationCount"`
	StandardError    float64 `xml:"standardError"`
	AzimuthalGap     float64 `xml:"azimuthalGap"`
	MinimumDistance  float64 `xml:"minimumDistance"`
	MaximumDistance  float64 `xml:"maximumDistance"`
}

// OriginUncertainty describes the horizontal error ellipse.
type OriginUncertainty struct {
	MinHorizontalUncertainty        float64 `xml:"minHorizontalUncertainty"`
	MaxHorizontalUncertainty        float64 `xml:"maxHorizontalUncertainty"`
	AzimuthMaxHorizontalUncertainty float64 `xml:"azimuthMaxHorizontalUncertainty"`
}

// Origin is an event location solution. Depth is in metres.
type Origin struct {
	PublicID          string             `xml:"publicID,attr"`
	Time              TimeQuantity       `xml:"time"`
	Longitude         RealQuantity       `xml:"longitude"`
	Latitude          RealQuantity       `xml:"latitude"`
	Depth             RealQuantity       `xml:"depth"`
	DepthType         string             `xml:"depthType,omitempty"`
	EarthModelID      string             `xml:"earthModelID,omitempty"`
	Quality           *OriginQuality     `xml:"quality,omitempty"`
	OriginUncertainty *OriginUncertainty `xml:"originUncertainty,omitempty"`
	Region            string             `xml:"region,omitempty"`
	Arrivals          []Arrival          `xml:"arrival"`
	CreationInfo      *CreationInfo      `xml:"creationInfo,omitempty"`
}

// Magnitude is one magnitude solution tied to an origin.
type Magnitude struct {
	PublicID         string        `xml:"publicID,attr"`
	Mag              RealQuantity  `xml:"mag"`
	Type             string        `xml:"type,omitempty"`
	OriginID         string        `xml:"originID,omitempty"`
	StationCount     int           `xml:"stationCount"`
	AzimuthalGap     float64       `xml:"azimuthalGap"`
	EvaluationMode   string        `xml:"evaluationMode,omitempty"`
	EvaluationStatus string        `xml:"evaluationStatus,omitempty"`
	CreationInfo     *CreationInfo `xml:"creationInfo,omitempty"`
}

func quakemlTime(t time.Time, uncertainty *float64) TimeQuantity {
	return TimeQuantity{Value: t.UTC().Format(quakemlTimeLayout), Uncertainty: uncertainty}
}

// WriteQuakeML renders the document as indented XML with the standard
// declaration header.
func WriteQuakeML(w io.Writer, q *QuakeML) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(q); err != nil {
		return fmt.Errorf("encoding quakeml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteQuakeMLFile writes the document to a file.
func WriteQuakeMLFile(path string, q *QuakeML) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating quakeml file: %w", err)
	}
	if err := WriteQuakeML(f, q); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
