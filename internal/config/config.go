package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds command-level settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// Workers is the size of the per-station worker pool. Defaults to one
	// less than the CPU count, keeping a core free for the controlling process.
	Workers int

	// Kafka settings for the optional interchange-record publisher.
	// Publishing is disabled when KafkaTopic is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "text"),
		Workers:      workers,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),
	}

	if cfg.KafkaTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_TOPIC is set but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

// DefaultWorkers is the worker-pool size used when WORKERS is unset:
// all cores minus one, never fewer than one.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func parseWorkers() (int, error) {
	s := os.Getenv("WORKERS")
	if s == "" {
		return DefaultWorkers(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New("invalid WORKERS")
	}
	return n, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Curation holds seismogram curation options. None of the criteria may be
// sensitive to a station orientation error, or curation would bias the very
// signal the analysis measures.
type Curation struct {
	MinSNR             float64            `yaml:"min_snr"`
	MaxRawAmplitude    float64            `yaml:"max_raw_amplitude"`
	RMSAmplitudeBounds map[string]float64 `yaml:"rms_amplitude_bounds"`
}

// Filtering holds waveform filtering options for receiver-function processing.
type Filtering struct {
	ResampleRate float64    `yaml:"resample_rate"` // Hz
	TaperLimit   float64    `yaml:"taper_limit"`   // fraction of trace length
	FilterBand   [2]float64 `yaml:"filter_band"`   // [low, high] Hz
}

// Processing holds receiver-function processing options.
type Processing struct {
	RotationType  string  `yaml:"rotation_type"`
	DeconvDomain  string  `yaml:"deconv_domain"`
	Normalize     bool    `yaml:"normalize"`
	TrimStartTime float64 `yaml:"trim_start_time"` // seconds relative to onset
	TrimEndTime   float64 `yaml:"trim_end_time"`   // seconds relative to onset
	Spiking       float64 `yaml:"spiking"`         // deconvolution regularization
}

// AnalysisOptions bundles the three independent option groups for the
// orientation analysis.
type AnalysisOptions struct {
	Curation   Curation   `yaml:"curation"`
	Filtering  Filtering  `yaml:"filtering"`
	Processing Processing `yaml:"processing"`
}

// DefaultAnalysisOptions returns the safe defaults for all option groups.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		Curation: Curation{
			MinSNR:          2.0,
			MaxRawAmplitude: 20000.0,
			RMSAmplitudeBounds: map[string]float64{
				"R/Z": 1.0,
				"T/Z": 1.0,
			},
		},
		Filtering: Filtering{
			ResampleRate: 10.0,
			TaperLimit:   0.05,
			FilterBand:   [2]float64{0.02, 1.0},
		},
		Processing: Processing{
			RotationType:  "ZRT",
			DeconvDomain:  "time",
			Normalize:     true,
			TrimStartTime: -10,
			TrimEndTime:   30,
			Spiking:       1.0,
		},
	}
}

// LoadAnalysisOptions reads a YAML options file over the defaults. Option
// groups or keys absent from the file keep their default values.
func LoadAnalysisOptions(path string) (AnalysisOptions, error) {
	opts := DefaultAnalysisOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options file: %w", err)
	}

	if err := validateOptions(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func validateOptions(opts AnalysisOptions) error {
	if opts.Filtering.ResampleRate <= 0 {
		return errors.New("filtering.resample_rate must be positive")
	}
	if opts.Filtering.TaperLimit < 0 || opts.Filtering.TaperLimit > 0.5 {
		return errors.New("filtering.taper_limit must be in [0, 0.5]")
	}
	if opts.Filtering.FilterBand[0] >= opts.Filtering.FilterBand[1] {
		return errors.New("filtering.filter_band must be [low, high] with low < high")
	}
	if opts.Processing.TrimStartTime >= opts.Processing.TrimEndTime {
		return errors.New("processing.trim_start_time must precede trim_end_time")
	}
	if opts.Processing.Spiking < 0 {
		return errors.New("processing.spiking must be non-negative")
	}
	return nil
}
