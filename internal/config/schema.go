package config

// Config is the top-level configuration file structure. It is accepted as
// YAML, TOML or JSON.
type Config struct {
	Version   string        `yaml:"version" toml:"version" json:"version"`
	Connector ConnectorConf `yaml:"connector" toml:"connector" json:"connector"`
	Parsers   []string      `yaml:"parsers" toml:"parsers" json:"parsers"`
	// Hints maps hint ids to their raw configuration: a severity name or
	// number, or an array whose first element is the severity and whose
	// second element holds the hint options.
	Hints                map[string]interface{} `yaml:"hints" toml:"hints" json:"hints"`
	Browserslist         []string               `yaml:"browserslist" toml:"browserslist" json:"browserslist"`
	Language             string                 `yaml:"language" toml:"language" json:"language"`
	HintsTimeoutMs       int                    `yaml:"hints_timeout_ms" toml:"hints_timeout_ms" json:"hints_timeout_ms"`
	ReportListenerFaults bool                   `yaml:"report_listener_faults" toml:"report_listener_faults" json:"report_listener_faults"`
	IgnoredURLs          []IgnoredURL           `yaml:"ignored_urls" toml:"ignored_urls" json:"ignored_urls"`
	Engine               EngineConf             `yaml:"engine" toml:"engine" json:"engine"`
}

// ConnectorConf selects the connector and carries its options.
type ConnectorConf struct {
	Name    string                 `yaml:"name" toml:"name" json:"name"`
	Options map[string]interface{} `yaml:"options" toml:"options" json:"options"`
}

// IgnoredURL turns off the listed hints ("*" for all) for resources whose
// URL matches Pattern.
type IgnoredURL struct {
	Pattern string   `yaml:"pattern" toml:"pattern" json:"pattern"`
	Hints   []string `yaml:"hints" toml:"hints" json:"hints"`
}

// EngineConf holds tunables for running many independent scans.
type EngineConf struct {
	ScanWorkers   int `yaml:"scan_workers" toml:"scan_workers" json:"scan_workers"`
	QueueDepth    int `yaml:"queue_depth" toml:"queue_depth" json:"queue_depth"`
	ScanTimeoutMs int `yaml:"scan_timeout_ms" toml:"scan_timeout_ms" json:"scan_timeout_ms"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Connector.Name == "" {
		c.Connector.Name = "local"
	}
	if len(c.Parsers) == 0 {
		c.Parsers = []string{"html"}
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.HintsTimeoutMs == 0 {
		c.HintsTimeoutMs = 60000
	}
	if c.Engine.ScanWorkers == 0 {
		c.Engine.ScanWorkers = 4
	}
	if c.Engine.QueueDepth == 0 {
		c.Engine.QueueDepth = 64
	}
	if c.Engine.ScanTimeoutMs == 0 {
		c.Engine.ScanTimeoutMs = 120000
	}
}
