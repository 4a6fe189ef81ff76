package catalogue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

func TestAzimuth(t *testing.T) {
	cases := []struct {
		name                   string
		lon1, lat1, lon2, lat2 float64
		want                   float64
	}{
		{"due north", 0, 0, 0, 10, 0},
		{"due east on equator", 0, 0, 10, 0, 90},
		{"due south", 0, 0, 0, -10, 180},
		{"north east quadrant", 0, 0, 10, 10, 44.561451},
		{"south east quadrant", 0, 0, 10, -10, 135.438549},
		{"north west quadrant", 0, 0, -10, 10, 315.438549},
		{"south west quadrant", 0, 0, -10, -10, 224.561451},
		{"central australia to south east", 133, -23, 140, -30, 139.686553},
		{"sydney to alice springs", 151, -33, 133, -23, 297.663712},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Azimuth(tc.lon1, tc.lat1, tc.lon2, tc.lat2), 1e-4)
		})
	}
}

func testDocument() *Document {
	return &Document{
		EventDetails: EventFeature{Properties: EventProperties{
			EventID:                      "ga2019abcd",
			OriginID:                     "900321",
			Source:                       "ga",
			OriginTime:                   "2019-06-02 05:04:03.123456",
			OriginTimeUncertainty:        0.25,
			Longitude:                    133.5,
			Latitude:                     -23.2,
			Depth:                        10.5,
			DepthUncertainty:             1.2,
			EarthModelID:                 "iasp91",
			EvaluationMode:               "manual",
			EvaluationStatus:             "FINL",
			PhaseCount:                   24,
			StationCount:                 12,
			StandardError:                0.6,
			AzimuthalGap:                 85,
			MinimumDistance:              0.8,
			MaximumDistance:              14.2,
			MinHorizontalUncertainty:     2100,
			MaxHorizontalUncertainty:     3400,
			AzimuthHorizontalUncertainty: 60,
		}},
		Stations: StationCollection{Features: []StationFeature{
			{Properties: StationProperties{
				ArrivalID:   101,
				ArrivalTime: "2019-06-02 05:04:40.500000",
				NetworkCode: "AU",
				StationCode: "ASAR",
				ChannelCode: "BHZ",
				Phase:       "P",
				Distance:    2.3,
				Longitude:   134.1,
				Latitude:    -23.7,
			}},
			{Properties: StationProperties{
				ArrivalID:   102,
				ArrivalTime: "2019-06-02 05:05:12.000000",
				NetworkCode: "AU",
				StationCode: "WRAB",
				ChannelCode: "BHZ",
				Phase:       "S",
				Distance:    4.1,
				Longitude:   134.4,
				Latitude:    -19.9,
			}},
		}},
		Magnitudes: MagnitudeCollection{Features: []MagnitudeFeature{
			{Properties: MagnitudeProperties{
				EarthquakeID:     501,
				Magnitude:        4.1,
				Type:             "ML",
				EvaluationStatus: "preliminary",
			}},
			{Properties: MagnitudeProperties{
				EarthquakeID:     502,
				Magnitude:        4.3,
				Type:             "Mw",
				EvaluationStatus: "confirmed",
			}},
		}},
	}
}

func newTestConverter() *Converter {
	return NewConverter(observability.NewDiscardLogger(), observability.NewMetricsForTesting())
}

func TestConvert(t *testing.T) {
	doc := testDocument()
	q, err := newTestConverter().Convert(doc)
	require.NoError(t, err)

	require.Len(t, q.EventParameters.Events, 1)
	event := q.EventParameters.Events[0]

	assert.Equal(t, "smi:local/resource_id_ga2019abcd", event.PublicID)
	assert.Equal(t, "earthquake", event.Type)
	assert.Equal(t, "known", event.TypeCertainty)
	assert.Equal(t, "smi:local/origins_id_900321", event.PreferredOriginID)

	t.Run("picks and arrivals", func(t *testing.T) {
		require.Len(t, event.Picks, 2)
		require.Len(t, event.Origins, 1)
		require.Len(t, event.Origins[0].Arrivals, 2)

		pick := event.Picks[0]
		assert.Equal(t, "smi:local/pick_id_101", pick.PublicID)
		assert.Equal(t, "2019-06-02T05:04:40.500000Z", pick.Time.Value)
		assert.Equal(t, "AU", pick.WaveformID.NetworkCode)
		assert.Equal(t, "ASAR", pick.WaveformID.StationCode)
		assert.Equal(t, "P", pick.PhaseHint)
		assert.Equal(t, "undecidable", pick.Polarity)
		assert.Equal(t, "manual", pick.EvaluationMode)
		assert.Equal(t, "final", pick.EvaluationStatus, "FINL is normalised")

		arrival := event.Origins[0].Arrivals[0]
		assert.Equal(t, "smi:local/arrival_id_101", arrival.PublicID)
		assert.Equal(t, pick.PublicID, arrival.PickID)
		assert.Equal(t, "P", arrival.Phase)
		assert.Equal(t, "iasp91", arrival.EarthModelID)
		require.NotNil(t, arrival.Distance)
		assert.Equal(t, 2.3, *arrival.Distance)

		// The two azimuths point in opposite directions along the path.
		require.NotNil(t, pick.Backazimuth)
		require.NotNil(t, arrival.Azimuth)
		sta := doc.Stations.Features[0].Properties
		det := doc.EventDetails.Properties
		assert.InDelta(t, Azimuth(sta.Longitude, sta.Latitude, det.Longitude, det.Latitude), pick.Backazimuth.Value, 1e-9)
		assert.InDelta(t, Azimuth(det.Longitude, det.Latitude, sta.Longitude, sta.Latitude), *arrival.Azimuth, 1e-9)
	})

	t.Run("origin", func(t *testing.T) {
		origin := event.Origins[0]
		assert.Equal(t, "smi:local/origins_id_900321", origin.PublicID)
		assert.Equal(t, "2019-06-02T05:04:03.123456Z", origin.Time.Value)
		require.NotNil(t, origin.Time.Uncertainty)
		assert.Equal(t, 0.25, *origin.Time.Uncertainty)
		assert.Equal(t, 133.5, origin.Longitude.Value)
		assert.Equal(t, -23.2, origin.Latitude.Value)
		assert.Equal(t, 10500.0, origin.Depth.Value, "depth converts to metres")
		require.NotNil(t, origin.Depth.Uncertainty)
		assert.Equal(t, 1200.0, *origin.Depth.Uncertainty)
		assert.Equal(t, "other", origin.DepthType)
		assert.Equal(t, "AU", origin.Region, "region from the first reporting station")

		require.NotNil(t, origin.Quality)
		assert.Equal(t, 24, origin.Quality.UsedPhaseCount)
		assert.Equal(t, 12, origin.Quality.UsedStationCount)
		require.NotNil(t, origin.OriginUncertainty)
		assert.Equal(t, 3400.0, origin.OriginUncertainty.MaxHorizontalUncertainty)
		assert.Equal(t, 60.0, origin.OriginUncertainty.AzimuthMaxHorizontalUncertainty)
	})

	t.Run("magnitudes prefer confirmed", func(t *testing.T) {
		require.Len(t, event.Magnitudes, 1)
		mag := event.Magnitudes[0]
		assert.Equal(t, "smi:local/magnitude_id_502", mag.PublicID)
		assert.Equal(t, 4.3, mag.Mag.Value)
		assert.Equal(t, "Mw", mag.Type)
		assert.Equal(t, "smi:local/origins_id_900321", mag.OriginID)
		assert.Equal(t, "final", mag.EvaluationStatus)
	})
}

func TestConvert_MagnitudeFallback(t *testing.T) {
	doc := testDocument()
	for i := range doc.Magnitudes.Features {
		doc.Magnitudes.Features[i].Properties.EvaluationStatus = "preliminary"
	}

	q, err := newTestConverter().Convert(doc)
	require.NoError(t, err)
	assert.Len(t, q.EventParameters.Events[0].Magnitudes, 2, "no confirmed solutions keeps them all")
}

func TestConvert_NoStations(t *testing.T) {
	doc := testDocument()
	doc.Stations.Features = nil

	q, err := newTestConverter().Convert(doc)
	require.NoError(t, err)
	event := q.EventParameters.Events[0]
	assert.Empty(t, event.Picks)
	assert.Empty(t, event.Origins[0].Arrivals)
	assert.Empty(t, event.Origins[0].Region)
}

func TestConvert_BadOriginTime(t *testing.T) {
	doc := testDocument()
	doc.EventDetails.Properties.OriginTime = "not a timestamp"

	_, err := newTestConverter().Convert(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "origin time")
}

func TestWriteQuakeML(t *testing.T) {
	q, err := newTestConverter().Convert(testDocument())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteQuakeML(&buf, q))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<q:quakeml xmlns:q="http://quakeml.org/xmlns/quakeml/1.2" xmlns="http://quakeml.org/xmlns/bed/1.2">`)
	assert.Contains(t, out, `publicID="smi:local/resource_id_ga2019abcd"`)
	assert.Contains(t, out, "<value>10500</value>")
	assert.Contains(t, out, "<description>catalog of ga events</description>")

	path := filepath.Join(t.TempDir(), "event.xml")
	require.NoError(t, WriteQuakeMLFile(path, q))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestReadDocument(t *testing.T) {
	src := testDocument()
	data, err := json.Marshal(src)
	require.NoError(t, err)

	doc, err := ReadDocument(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src, doc)

	_, err = ReadDocument(strings.NewReader("{broken"))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(testDocument())
	require.NoError(t, err)

	assert.Equal(t, "ga2019abcd", s.EventID)
	assert.Equal(t, time.Date(2019, 6, 2, 5, 4, 3, 123456000, time.UTC), s.OriginTime)
	assert.Equal(t, 10.5, s.DepthKm)
	assert.Equal(t, 4.3, s.Magnitude, "summary carries the preferred magnitude")
	assert.Equal(t, "Mw", s.MagnitudeType)
	assert.Equal(t, "final", s.EvaluationStatus)
	assert.Equal(t, 2, s.PickCount)
}

func TestSerializeToMessage(t *testing.T) {
	s := Summary{
		EventID:          "ga2019abcd",
		OriginTime:       time.Date(2019, 6, 2, 5, 4, 3, 0, time.UTC),
		Latitude:         -23.2,
		Longitude:        133.5,
		DepthKm:          10.5,
		Magnitude:        4.3,
		MagnitudeType:    "Mw",
		EvaluationStatus: "final",
		PickCount:        2,
	}

	msg, err := serializeToMessage(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("ga2019abcd"), msg.Key)
	assert.Contains(t, string(msg.Value), `"magnitude_type":"Mw"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "evaluation_status", msg.Headers[0].Key)
	assert.Equal(t, []byte("final"), msg.Headers[0].Value)
	assert.Equal(t, "origin_time", msg.Headers[1].Key)
	assert.Equal(t, []byte("2019-06-02T05:04:03Z"), msg.Headers[1].Value)
}
