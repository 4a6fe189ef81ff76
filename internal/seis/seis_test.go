package seis

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

var testStart = time.Date(2010, 6, 16, 3, 42, 0, 0, time.UTC)

func makeTrace(station, channel, eventID string, fs float64, data []float64, onsetOffset float64) *Trace {
	return &Trace{
		Stats: Stats{
			Network:     "7X",
			Station:     station,
			Channel:     channel,
			EventID:     eventID,
			BackAzimuth: 45,
			SampleRate:  fs,
			StartTime:   testStart,
			Onset:       testStart.Add(time.Duration(onsetOffset * float64(time.Second))),
		},
		Data: data,
	}
}

func constData(n int, v float64) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return data
}

func TestTrace_TrimRelOnset(t *testing.T) {
	// 41 samples at 1 Hz, onset 20 s in; values equal the sample index.
	data := make([]float64, 41)
	for i := range data {
		data[i] = float64(i)
	}
	tr := makeTrace("SA01", "BHZ", "ev1", 1.0, data, 20)

	trimmed := tr.TrimRelOnset(-5, 5)
	require.Len(t, trimmed.Data, 11)
	assert.Equal(t, 15.0, trimmed.Data[0])
	assert.Equal(t, 25.0, trimmed.Data[10])
	assert.Equal(t, testStart.Add(15*time.Second), trimmed.Stats.StartTime)

	// Original untouched.
	assert.Len(t, tr.Data, 41)

	t.Run("clamped to available samples", func(t *testing.T) {
		wide := tr.TrimRelOnset(-100, 100)
		assert.Len(t, wide.Data, 41)
	})

	t.Run("empty window", func(t *testing.T) {
		empty := tr.TrimRelOnset(50, 60)
		assert.Empty(t, empty.Data)
	})
}

func TestTrace_Detrend(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = 3 + 0.5*float64(i)
	}
	tr := makeTrace("SA01", "BHZ", "ev1", 10, data, 5)
	tr.Detrend()

	for _, v := range tr.Data {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestTrace_Taper(t *testing.T) {
	tr := makeTrace("SA01", "BHZ", "ev1", 10, constData(100, 1), 5)
	tr.Taper(0.1)

	assert.Equal(t, 0.0, tr.Data[0])
	assert.Equal(t, 0.0, tr.Data[99])
	assert.Equal(t, 1.0, tr.Data[50])
	// Taper is symmetric.
	assert.InDelta(t, tr.Data[3], tr.Data[96], 1e-12)
}

func TestTrace_MeanEmptyIsNaN(t *testing.T) {
	tr := makeTrace("SA01", "BHZ", "ev1", 10, nil, 0)
	assert.True(t, math.IsNaN(tr.Mean()))
}

func TestStack_AlignsOnOnset(t *testing.T) {
	a := makeTrace("SA01", "BHR", "ev1", 1, []float64{0, 0, 1, 0, 0}, 2)
	b := makeTrace("SA01", "BHR", "ev2", 1, []float64{0, 3, 0}, 1)

	stacked := Stack([]*Trace{a, b})
	require.NotNil(t, stacked)
	// Common window: 1 sample before onset, 2 from onset.
	require.Len(t, stacked.Data, 3)
	assert.Equal(t, []float64{0, 2, 0}, stacked.Data)
}

func TestStack_Empty(t *testing.T) {
	assert.Nil(t, Stack(nil))
}

func TestTrace_ResamplePreservesSinusoid(t *testing.T) {
	// 1 Hz sine at 40 Hz, resampled to 20 Hz; interior samples must track.
	fs := 40.0
	data := make([]float64, 400)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * float64(i) / fs)
	}
	tr := makeTrace("SA01", "BHZ", "ev1", fs, data, 5)

	out := tr.Resample(20.0)
	assert.Equal(t, 20.0, out.Stats.SampleRate)
	require.Greater(t, len(out.Data), 100)
	for i := 50; i < len(out.Data)-50; i++ {
		want := math.Sin(2 * math.Pi * float64(i) / 20.0)
		assert.InDelta(t, want, out.Data[i], 0.02)
	}
}

func TestTrace_LowpassAttenuates(t *testing.T) {
	fs := 40.0
	data := make([]float64, 800)
	for i := range data {
		// 0.5 Hz signal plus 15 Hz contamination.
		ts := float64(i) / fs
		data[i] = math.Sin(2*math.Pi*0.5*ts) + math.Sin(2*math.Pi*15*ts)
	}
	tr := makeTrace("SA01", "BHZ", "ev1", fs, data, 10)
	tr.Lowpass(2.0)

	// The 15 Hz component is far above the corner; mid-trace samples should
	// closely follow the 0.5 Hz component alone.
	for i := 200; i < 600; i++ {
		ts := float64(i) / fs
		assert.InDelta(t, math.Sin(2*math.Pi*0.5*ts), tr.Data[i], 0.12)
	}
}

func TestStream_SelectAndCopy(t *testing.T) {
	st := Stream{
		makeTrace("SA01", "BHZ", "ev1", 10, constData(10, 1), 0),
		makeTrace("SA01", "BHN", "ev1", 10, constData(10, 2), 0),
		makeTrace("SA01", "BHE", "ev1", 10, constData(10, 3), 0),
	}

	r := st.Select("N")
	require.Len(t, r, 1)
	assert.Equal(t, "BHN", r[0].Stats.Channel)

	dup := st.Copy()
	dup[0].Data[0] = 99
	assert.Equal(t, 1.0, st[0].Data[0], "copy must not share backing arrays")
}

func newTestDataset() *NetworkEventDataset {
	ds := NewNetworkEventDataset("7X")
	for _, sta := range []string{"SA01", "SA02"} {
		for _, ev := range []string{"ev1", "ev2"} {
			st := Stream{
				makeTrace(sta, "BHZ", ev, 10, constData(400, 1), 20),
				makeTrace(sta, "BHN", ev, 10, constData(400, 0.5), 20),
				makeTrace(sta, "BHE", ev, 10, constData(400, 0.5), 20),
			}
			ds.Add(sta, ev, st)
		}
	}
	return ds
}

func TestDataset_OrderingAndLen(t *testing.T) {
	ds := newTestDataset()
	assert.Equal(t, []string{"SA01", "SA02"}, ds.Stations())
	assert.Equal(t, []string{"ev1", "ev2"}, ds.EventIDs("SA01"))
	assert.Equal(t, 4, ds.Len())
}

func TestDataset_DateRange(t *testing.T) {
	ds := newTestDataset()
	start, end := ds.DateRange("SA01")
	assert.Equal(t, testStart, start)
	assert.Equal(t, testStart.Add(time.Duration(399.0/10.0*float64(time.Second))), end)
}

func TestDataset_TrimWindowIsSnapshot(t *testing.T) {
	ds := newTestDataset()
	trimmed := ds.TrimWindow(-10, 30)

	// Window clamps at the trace end: samples from onset-10s (10 s in) to the
	// end of the 40 s trace remain.
	require.Len(t, trimmed.Stream("SA01", "ev1")[0].Data, 300)
	assert.Len(t, ds.Stream("SA01", "ev1")[0].Data, 400)
}

func TestDataset_Downsample(t *testing.T) {
	ds := newTestDataset()
	down := ds.Downsample(5)

	tr := down.Stream("SA02", "ev2")[0]
	assert.Equal(t, 5.0, tr.Stats.SampleRate)
	assert.Less(t, len(tr.Data), 400)
	// Source snapshot unchanged.
	assert.Equal(t, 10.0, ds.Stream("SA02", "ev2")[0].Stats.SampleRate)
}

func TestCurate(t *testing.T) {
	logger := observability.NewDiscardLogger()
	opts := config.DefaultAnalysisOptions().Curation

	signal := func(amp, noise float64) []float64 {
		data := make([]float64, 400)
		for i := range data {
			if i >= 200 {
				data[i] = amp * math.Sin(float64(i))
			} else {
				data[i] = noise * math.Sin(float64(i))
			}
		}
		return data
	}

	goodStream := func(sta, ev string) Stream {
		return Stream{
			makeTrace(sta, "BHZ", ev, 10, signal(100, 1), 20),
			makeTrace(sta, "BHN", ev, 10, signal(50, 1), 20),
			makeTrace(sta, "BHE", ev, 10, signal(50, 1), 20),
		}
	}

	t.Run("keeps clean events", func(t *testing.T) {
		ds := NewNetworkEventDataset("7X")
		ds.Add("SA01", "ev1", goodStream("SA01", "ev1"))
		out := Curate(ds, opts, logger)
		assert.Equal(t, 1, out.Len())
	})

	t.Run("drops low SNR", func(t *testing.T) {
		ds := NewNetworkEventDataset("7X")
		st := Stream{
			makeTrace("SA01", "BHZ", "ev1", 10, signal(1, 1), 20),
			makeTrace("SA01", "BHN", "ev1", 10, signal(1, 1), 20),
			makeTrace("SA01", "BHE", "ev1", 10, signal(1, 1), 20),
		}
		ds.Add("SA01", "ev1", st)
		out := Curate(ds, opts, logger)
		assert.Zero(t, out.Len())
	})

	t.Run("drops clipped amplitude", func(t *testing.T) {
		ds := NewNetworkEventDataset("7X")
		st := goodStream("SA01", "ev1")
		st[0].Data[250] = 50000
		ds.Add("SA01", "ev1", st)
		out := Curate(ds, opts, logger)
		assert.Zero(t, out.Len())
	})

	t.Run("drops dominant horizontals", func(t *testing.T) {
		ds := NewNetworkEventDataset("7X")
		st := Stream{
			makeTrace("SA01", "BHZ", "ev1", 10, signal(100, 1), 20),
			makeTrace("SA01", "BHN", "ev1", 10, signal(500, 1), 20),
			makeTrace("SA01", "BHE", "ev1", 10, signal(50, 1), 20),
		}
		ds.Add("SA01", "ev1", st)
		out := Curate(ds, opts, logger)
		assert.Zero(t, out.Len())
	})

	t.Run("drops incomplete components", func(t *testing.T) {
		ds := NewNetworkEventDataset("7X")
		ds.Add("SA01", "ev1", goodStream("SA01", "ev1")[:2])
		out := Curate(ds, opts, logger)
		assert.Zero(t, out.Len())
	})
}

func TestArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveforms.mpk")
	ds := newTestDataset()

	require.NoError(t, SaveArchive(path, ds))
	loaded, err := LoadArchive(path)
	require.NoError(t, err)

	assert.Equal(t, "7X", loaded.Network)
	assert.Equal(t, ds.Stations(), loaded.Stations())
	assert.Equal(t, ds.Len(), loaded.Len())

	want := ds.Stream("SA01", "ev1").Select("N").First()
	got := loaded.Stream("SA01", "ev1").Select("N").First()
	require.NotNil(t, got)
	assert.True(t, want.Stats.Onset.Equal(got.Stats.Onset))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestLoadArchive_Missing(t *testing.T) {
	_, err := LoadArchive(filepath.Join(t.TempDir(), "absent.mpk"))
	require.Error(t, err)
}
