package config

// SourceConfig describes one upstream disclosure source. One YAML file per
// source lives in the sources directory; the file name (without extension)
// becomes the source name.
type SourceConfig struct {
	Name     string         // Derived from filename (without .yml extension)
	Type     string         `yaml:"type"` // us_house, us_senate, uk_parliament, aggregator
	URL      string         `yaml:"url"`
	Settings SourceSettings `yaml:"settings"`
}

// SourceSettings enumerates every recognized per-source option. Unknown
// keys in the YAML file are rejected at load time.
type SourceSettings struct {
	Enabled               bool `yaml:"enabled"`
	LookbackDays          int  `yaml:"lookback_days"`
	BatchSize             int  `yaml:"batch_size"`
	RefreshInterval       int  `yaml:"refresh_interval"` // seconds
	Timeout               int  `yaml:"timeout"`          // seconds
	RequestDelay          int  `yaml:"request_delay"`    // seconds between requests
	StrictValidation      bool `yaml:"strict_validation"`
	AutoCreatePoliticians bool `yaml:"auto_create_politicians"`
	UpdateExisting        bool `yaml:"update_existing"`
	ArchiveRaw            bool `yaml:"archive_raw"`
	ParsePDFs             bool `yaml:"parse_pdfs"`
}

// SourceTypes lists the adapter implementations this build knows about.
var SourceTypes = map[string]bool{
	"us_house":      true,
	"us_senate":     true,
	"uk_parliament": true,
	"aggregator":    true,
}
