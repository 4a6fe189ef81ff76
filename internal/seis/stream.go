package seis

// Stream is the ordered set of component traces for one event at one station.
type Stream []*Trace

// Copy returns a deep copy of the stream.
func (st Stream) Copy() Stream {
	out := make(Stream, len(st))
	for i, tr := range st {
		out[i] = tr.Copy()
	}
	return out
}

// Select returns the traces whose component letter matches c.
func (st Stream) Select(c string) Stream {
	var out Stream
	for _, tr := range st {
		if tr.Component() == c {
			out = append(out, tr)
		}
	}
	return out
}

// First returns the stream's first trace, or nil if the stream is empty.
func (st Stream) First() *Trace {
	if len(st) == 0 {
		return nil
	}
	return st[0]
}

// BackAzimuth returns the back-azimuth recorded on the first trace.
// All traces of a stream share event metadata.
func (st Stream) BackAzimuth() float64 {
	if tr := st.First(); tr != nil {
		return tr.Stats.BackAzimuth
	}
	return 0
}

// SetBackAzimuth sets the back-azimuth on every trace of the stream.
func (st Stream) SetBackAzimuth(baz float64) {
	for _, tr := range st {
		tr.Stats.BackAzimuth = baz
	}
}
