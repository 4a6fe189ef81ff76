// Package catalogue converts earthquake summaries from the Geoscience
// Australia EATWS feed into QuakeML interchange documents.
//
// An EATWS export is a set of GeoJSON-style feature collections: the event
// details, the per-station arrival information, and the magnitude solutions.
// The conversion maps these onto the QuakeML 1.2 basic event description
// model, one event per document.
package catalogue
