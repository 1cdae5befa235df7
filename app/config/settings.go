// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/greenkube/greenkube-agent/app/types"
)

type Settings struct {
	ClusterName string `yaml:"cluster_name" env:"CLUSTER_NAME" env-description:"name of the cluster being accounted"`

	Logging     Logging     `yaml:"logging"`
	Database    Database    `yaml:"database"`
	Processing  Processing  `yaml:"processing"`
	Defaults    Defaults    `yaml:"defaults"`
	Recommender Recommender `yaml:"recommender"`
	Sources     Sources     `yaml:"sources"`
	Export      Export      `yaml:"export"`
}

// Sources locates the JSON dumps the file-backed collectors replay. Live
// deployments swap in their own collector wiring instead.
type Sources struct {
	Dir string `yaml:"dir" default:"./sources" env:"SOURCES_DIR" env-description:"directory holding usage/nodes/costs/requests/intensity JSON dumps"`
}

// Export controls the per-run report files. An empty directory disables
// exporting; the store remains the system of record either way.
type Export struct {
	Dir     string   `yaml:"dir" env:"EXPORT_DIR" env-description:"directory receiving run reports; empty disables exporting"`
	Formats []string `yaml:"formats" default:"json" env:"EXPORT_FORMATS" env-description:"report formats to write: json, csv"`
}

type Logging struct {
	Level string `yaml:"level" default:"info" env:"LOG_LEVEL" env-description:"logging level such as debug, info, error"`
}

type Database struct {
	Driver string `yaml:"driver" default:"sqlite" env:"DB_DRIVER" env-description:"storage backend: sqlite, postgres, or memory"`
	DSN    string `yaml:"dsn" default:"greenkube.db" env:"DB_DSN" env-description:"database path or connection string"`

	// Conflicting writes to the same key retry with backoff before the
	// failure is surfaced for that key only.
	MaxRetries   int           `yaml:"max_retries" default:"3" env:"DB_MAX_RETRIES" env-description:"bounded attempts for conflicting writes"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"100ms" env:"DB_RETRY_BACKOFF" env-description:"base backoff between write retries"`
}

type Processing struct {
	// Granularity controls how timestamps are floored into intensity time
	// buckets: hour, day, or none.
	Granularity  string        `yaml:"normalization_granularity" default:"hour" env:"NORMALIZATION_GRANULARITY" env-description:"time bucket granularity: hour, day, none"`
	PollInterval time.Duration `yaml:"poll_interval" default:"5m" env:"POLL_INTERVAL" env-description:"interval between processing runs"`
	SampleStep   time.Duration `yaml:"sample_step" default:"5m" env:"SAMPLE_STEP" env-description:"duration each usage sample covers"`
	Namespace    string        `yaml:"namespace" env:"NAMESPACE_FILTER" env-description:"namespace the poller passes to each run; empty processes all namespaces"`
}

// Defaults are the conservative fallbacks applied when a cluster-observed
// value is missing. Every use of one flags the derived metric estimated.
type Defaults struct {
	PUE             float64 `yaml:"pue" default:"1.5" env:"DEFAULT_PUE" env-description:"PUE applied when the data-center PUE is unknown"`
	IntensityGPerKW float64 `yaml:"intensity_gco2e_per_kwh" default:"475" env:"DEFAULT_INTENSITY" env-description:"carbon intensity used when no grid data is available"`
	Zone            string  `yaml:"zone" default:"FR" env:"DEFAULT_ZONE" env-description:"grid zone assumed when node zone cannot be mapped"`
}

// Recommender thresholds are deployment-tunable rather than hardcoded.
type Recommender struct {
	LowUtilization     float64       `yaml:"low_utilization" default:"0.05" env:"REC_LOW_UTILIZATION" env-description:"average utilization fraction below which a pod is a zombie candidate"`
	RightsizingRatio   float64       `yaml:"rightsizing_ratio" default:"0.2" env:"REC_RIGHTSIZING_RATIO" env-description:"usage/request fraction below which rightsizing is recommended"`
	SafetyMargin       float64       `yaml:"safety_margin" default:"1.3" env:"REC_SAFETY_MARGIN" env-description:"multiplier applied to observed peak when recommending a request"`
	MinPodAge          time.Duration `yaml:"min_pod_age" default:"1h" env:"REC_MIN_POD_AGE" env-description:"minimum observed age before a pod is analyzed"`
	CostNoiseFloor     float64       `yaml:"cost_noise_floor" default:"0.01" env:"REC_COST_NOISE_FLOOR" env-description:"minimum accumulated cost before a zombie finding is worth emitting"`
	CO2eNoiseFloor     float64       `yaml:"co2e_noise_floor" default:"1.0" env:"REC_CO2E_NOISE_FLOOR" env-description:"minimum accumulated co2e grams before a zombie finding is worth emitting"`
	MinCPUMillicores   float64       `yaml:"min_cpu_millicores" default:"10" env:"REC_MIN_CPU_MILLICORES" env-description:"floor for recommended CPU requests"`
	MinMemoryBytes     int64         `yaml:"min_memory_bytes" default:"16777216" env:"REC_MIN_MEMORY_BYTES" env-description:"floor for recommended memory requests"`
	IdleNamespaceRatio float64       `yaml:"idle_namespace_ratio" default:"0.05" env:"REC_IDLE_NAMESPACE_RATIO" env-description:"namespace-wide utilization fraction below which the namespace is flagged idle"`
}

// NewSettings reads the given config files in order (later files override
// earlier ones), then the environment, then validates. Validation failures
// are startup failures; nothing else reads configuration mid-run.
func NewSettings(configFiles ...string) (*Settings, error) {
	var cfg Settings
	read := false
	for _, cfgFile := range configFiles {
		if cfgFile == "" {
			continue
		}

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("no config %s", cfgFile)
		}

		if err := cleanenv.ReadConfig(cfgFile, &cfg); err != nil {
			return nil, fmt.Errorf("config read %s: %w", cfgFile, err)
		}
		read = true
	}
	if !read {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to read environment")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate settings")
	}

	return &cfg, nil
}

// Validate checks each section and fills zero values with the documented
// defaults, so a minimal config file yields a runnable configuration.
func (s *Settings) Validate() error {
	s.ClusterName = strings.TrimSpace(s.ClusterName)
	if s.ClusterName == "" {
		return errors.Wrap(types.ErrConfigurationInvalid, "cluster name is empty")
	}

	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Sources.Dir == "" {
		s.Sources.Dir = "./sources"
	}
	if s.Export.Dir != "" && len(s.Export.Formats) == 0 {
		s.Export.Formats = []string{"json"}
	}

	if err := s.Database.Validate(); err != nil {
		return errors.Wrap(err, "database validation")
	}

	if err := s.Processing.Validate(); err != nil {
		return errors.Wrap(err, "processing validation")
	}

	if err := s.Defaults.Validate(); err != nil {
		return errors.Wrap(err, "defaults validation")
	}

	if err := s.Recommender.Validate(); err != nil {
		return errors.Wrap(err, "recommender validation")
	}

	return nil
}

func (d *Database) Validate() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case "":
		d.Driver = "sqlite"
	case "sqlite", "postgres", "memory":
	default:
		return errors.Wrapf(types.ErrConfigurationInvalid, "unknown database driver %q", d.Driver)
	}
	if d.Driver == "sqlite" && d.DSN == "" {
		d.DSN = "greenkube.db"
	}
	if d.Driver == "postgres" && d.DSN == "" {
		return errors.Wrap(types.ErrConfigurationInvalid, "database dsn is empty")
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = 3
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = 100 * time.Millisecond
	}
	return nil
}

func (p *Processing) Validate() error {
	if strings.TrimSpace(p.Granularity) == "" {
		p.Granularity = "hour"
	}
	g, err := types.ParseGranularity(p.Granularity)
	if err != nil {
		return err
	}
	p.Granularity = string(g)

	if p.PollInterval <= 0 {
		p.PollInterval = 5 * time.Minute
	}
	if p.SampleStep <= 0 {
		p.SampleStep = 5 * time.Minute
	}
	return nil
}

func (d *Defaults) Validate() error {
	if d.PUE == 0 {
		d.PUE = 1.5
	}
	if d.PUE < 1.0 {
		return errors.Wrapf(types.ErrConfigurationInvalid, "default PUE %.2f is below 1.0", d.PUE)
	}
	if d.IntensityGPerKW == 0 {
		d.IntensityGPerKW = 475
	}
	if d.IntensityGPerKW < 0 {
		return errors.Wrap(types.ErrConfigurationInvalid, "default intensity must be positive")
	}
	d.Zone = strings.TrimSpace(d.Zone)
	if d.Zone == "" {
		d.Zone = "FR"
	}
	return nil
}

func (r *Recommender) Validate() error {
	if r.LowUtilization == 0 {
		r.LowUtilization = 0.05
	}
	if r.RightsizingRatio == 0 {
		r.RightsizingRatio = 0.2
	}
	if r.SafetyMargin == 0 {
		r.SafetyMargin = 1.3
	}
	if r.MinPodAge == 0 {
		r.MinPodAge = time.Hour
	}
	if r.CostNoiseFloor == 0 {
		r.CostNoiseFloor = 0.01
	}
	if r.CO2eNoiseFloor == 0 {
		r.CO2eNoiseFloor = 1.0
	}
	if r.MinCPUMillicores == 0 {
		r.MinCPUMillicores = 10
	}
	if r.MinMemoryBytes == 0 {
		r.MinMemoryBytes = 16 << 20
	}
	if r.IdleNamespaceRatio == 0 {
		r.IdleNamespaceRatio = 0.05
	}

	if r.LowUtilization <= 0 || r.LowUtilization >= 1 {
		return errors.Wrapf(types.ErrConfigurationInvalid, "low utilization threshold %.2f outside (0,1)", r.LowUtilization)
	}
	if r.RightsizingRatio <= 0 || r.RightsizingRatio >= 1 {
		return errors.Wrapf(types.ErrConfigurationInvalid, "rightsizing ratio %.2f outside (0,1)", r.RightsizingRatio)
	}
	if r.SafetyMargin < 1.0 {
		return errors.Wrapf(types.ErrConfigurationInvalid, "safety margin %.2f is below 1.0", r.SafetyMargin)
	}
	if r.MinPodAge < 0 {
		return errors.Wrap(types.ErrConfigurationInvalid, "minimum pod age is negative")
	}
	return nil
}

// NormalizationGranularity returns the validated bucket granularity.
func (s *Settings) NormalizationGranularity() types.Granularity {
	g, _ := types.ParseGranularity(s.Processing.Granularity)
	return g
}
