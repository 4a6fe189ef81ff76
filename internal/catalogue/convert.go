package catalogue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

const (
	authorURI       = "ga.gov.au"
	creationVersion = "1.0"
)

// Converter maps EATWS documents onto QuakeML.
type Converter struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConverter creates a converter.
func NewConverter(logger *slog.Logger, metrics *observability.Metrics) *Converter {
	return &Converter{logger: logger, metrics: metrics}
}

// Convert maps a single feed document onto a one-event QuakeML catalogue.
func (c *Converter) Convert(doc *Document) (*QuakeML, error) {
	q, err := convert(doc)
	if err != nil {
		c.metrics.ConvertErrors.Inc()
		return nil, err
	}
	c.metrics.RecordsConverted.Inc()
	c.logger.Info("event converted",
		"event_id", doc.EventDetails.Properties.EventID,
		"picks", len(doc.Stations.Features),
		"magnitudes", len(doc.Magnitudes.Features))
	return q, nil
}

func convert(doc *Document) (*QuakeML, error) {
	details := doc.EventDetails.Properties
	originID := "smi:local/origins_id_" + details.OriginID

	picks, arrivals, err := convertArrivals(doc)
	if err != nil {
		return nil, err
	}
	origin, err := convertOrigin(doc, originID, arrivals)
	if err != nil {
		return nil, err
	}
	magnitudes := convertMagnitudes(doc, originID)

	event := Event{
		PublicID:          "smi:local/resource_id_" + details.EventID,
		PreferredOriginID: originID,
		Type:              "earthquake",
		TypeCertainty:     "known",
		CreationInfo:      creationInfo(details),
		Picks:             picks,
		Origins:           []Origin{origin},
		Magnitudes:        magnitudes,
	}

	return &QuakeML{
		QNamespace: quakemlNamespace,
		Namespace:  bedNamespace,
		EventParameters: EventParameters{
			PublicID:     "smi:local/catalog_id_0",
			Description:  "catalog of ga events",
			CreationInfo: creationInfo(details),
			Events:       []Event{event},
		},
	}, nil
}

// convertArrivals builds the pick and arrival pairs. The pick back azimuth
// points from the station to the event; the arrival azimuth points the other
// way.
func convertArrivals(doc *Document) ([]Pick, []Arrival, error) {
	details := doc.EventDetails.Properties
	status := normalizeStatus(details.EvaluationStatus)
	info := creationInfo(details)

	var picks []Pick
	var arrivals []Arrival
	for _, feature := range doc.Stations.Features {
		sta := feature.Properties

		arrivalTime, err := parseFeedTime(sta.ArrivalTime)
		if err != nil {
			return nil, nil, fmt.Errorf("arrival %d: %w", sta.ArrivalID, err)
		}

		pickID := fmt.Sprintf("smi:local/pick_id_%d", sta.ArrivalID)
		baz := Azimuth(sta.Longitude, sta.Latitude, details.Longitude, details.Latitude)
		picks = append(picks, Pick{
			PublicID: pickID,
			Time:     quakemlTime(arrivalTime, nil),
			WaveformID: WaveformID{
				NetworkCode: sta.NetworkCode,
				StationCode: sta.StationCode,
				ChannelCode: sta.ChannelCode,
			},
			Backazimuth:      &RealQuantity{Value: baz},
			PhaseHint:        sta.Phase,
			Polarity:         "undecidable",
			EvaluationMode:   details.EvaluationMode,
			EvaluationStatus: status,
			CreationInfo:     info,
		})

		az := Azimuth(details.Longitude, details.Latitude, sta.Longitude, sta.Latitude)
		distance := sta.Distance
		arrivals = append(arrivals, Arrival{
			PublicID:     fmt.Sprintf("smi:local/arrival_id_%d", sta.ArrivalID),
			PickID:       pickID,
			Phase:        sta.Phase,
			Azimuth:      &az,
			Distance:     &distance,
			EarthModelID: details.EarthModelID,
			CreationInfo: info,
		})
	}
	return picks, arrivals, nil
}

func convertOrigin(doc *Document, originID string, arrivals []Arrival) (Origin, error) {
	details := doc.EventDetails.Properties

	originTime, err := parseFeedTime(details.OriginTime)
	if err != nil {
		return Origin{}, fmt.Errorf("origin time: %w", err)
	}

	// Region falls back to the network code of the first reporting station.
	region := ""
	if len(doc.Stations.Features) > 0 {
		region = doc.Stations.Features[0].Properties.NetworkCode
	}

	timeUncertainty := details.OriginTimeUncertainty
	depthUncertainty := details.DepthUncertainty * 1e3
	return Origin{
		PublicID:     originID,
		Time:         quakemlTime(originTime, &timeUncertainty),
		Longitude:    RealQuantity{Value: details.Longitude},
		Latitude:     RealQuantity{Value: details.Latitude},
		Depth:        RealQuantity{Value: details.Depth * 1e3, Uncertainty: &depthUncertainty},
		DepthType:    "other",
		EarthModelID: details.EarthModelID,
		Quality: &OriginQuality{
			UsedPhaseCount:   details.PhaseCount,
			UsedStationCount: details.StationCount,
			StandardError:    details.StandardError,
			AzimuthalGap:     details.AzimuthalGap,
			MinimumDistance:  details.MinimumDistance,
			MaximumDistance:  details.MaximumDistance,
		},
		OriginUncertainty: &OriginUncertainty{
			MinHorizontalUncertainty:        details.MinHorizontalUncertainty,
			MaxHorizontalUncertainty:        details.MaxHorizontalUncertainty,
			AzimuthMaxHorizontalUncertainty: details.AzimuthHorizontalUncertainty,
		},
		Region:       region,
		Arrivals:     arrivals,
		CreationInfo: creationInfo(details),
	}, nil
}

// convertMagnitudes keeps confirmed magnitude solutions when any exist and
// falls back to all of them otherwise.
func convertMagnitudes(doc *Document, originID string) []Magnitude {
	confirmed := make([]MagnitudeFeature, 0, len(doc.Magnitudes.Features))
	for _, feature := range doc.Magnitudes.Features {
		if feature.Properties.EvaluationStatus == "confirmed" {
			confirmed = append(confirmed, feature)
		}
	}
	selected := confirmed
	if len(selected) == 0 {
		selected = doc.Magnitudes.Features
	}

	details := doc.EventDetails.Properties
	status := normalizeStatus(details.EvaluationStatus)
	info := creationInfo(details)

	magnitudes := make([]Magnitude, 0, len(selected))
	for _, feature := range selected {
		mag := feature.Properties
		magnitudes = append(magnitudes, Magnitude{
			PublicID:         fmt.Sprintf("smi:local/magnitude_id_%d", mag.EarthquakeID),
			Mag:              RealQuantity{Value: mag.Magnitude},
			Type:             mag.Type,
			OriginID:         originID,
			StationCount:     details.StationCount,
			AzimuthalGap:     details.AzimuthalGap,
			EvaluationMode:   details.EvaluationMode,
			EvaluationStatus: status,
			CreationInfo:     info,
		})
	}
	return magnitudes
}

// normalizeStatus maps the feed's FINL marker onto the QuakeML vocabulary.
func normalizeStatus(s string) string {
	if s == "FINL" {
		return "final"
	}
	return s
}

func creationInfo(details EventProperties) *CreationInfo {
	return &CreationInfo{
		AgencyID:  details.Source,
		Author:    details.Source,
		AuthorURI: authorURI,
		Version:   creationVersion,
	}
}

// Summary is the compact record published downstream for each converted
// event.
type Summary struct {
	EventID          string    `json:"event_id"`
	OriginTime       time.Time `json:"origin_time"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	DepthKm          float64   `json:"depth_km"`
	Magnitude        float64   `json:"magnitude,omitempty"`
	MagnitudeType    string    `json:"magnitude_type,omitempty"`
	EvaluationStatus string    `json:"evaluation_status"`
	PickCount        int       `json:"pick_count"`
}

// Summarize reduces a feed document to its publishable summary. The
// magnitude comes from the first solution the conversion would keep.
func Summarize(doc *Document) (Summary, error) {
	details := doc.EventDetails.Properties
	originTime, err := parseFeedTime(details.OriginTime)
	if err != nil {
		return Summary{}, fmt.Errorf("origin time: %w", err)
	}

	s := Summary{
		EventID:          details.EventID,
		OriginTime:       originTime,
		Latitude:         details.Latitude,
		Longitude:        details.Longitude,
		DepthKm:          details.Depth,
		EvaluationStatus: normalizeStatus(details.EvaluationStatus),
		PickCount:        len(doc.Stations.Features),
	}
	if mags := convertMagnitudes(doc, ""); len(mags) > 0 {
		s.Magnitude = mags[0].Mag.Value
		s.MagnitudeType = mags[0].Type
	}
	return s, nil
}
