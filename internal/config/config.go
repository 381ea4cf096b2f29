package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InputRule selects which captured packets feed one monitor input. The match
// token is one of: any, tcp, udp, icmp, syn, synack, ack, fin, rst.
type InputRule struct {
	Match string `yaml:"match"`
}

// PersistenceConfig controls the probe's write-behind packet tee.
type PersistenceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RootPath  string `yaml:"root_path"`
	Format    string `yaml:"format"` // gob, text or pcap
	QueueSize int    `yaml:"queue_size"`
}

// ProbeConfig holds the capture and publishing settings of nf-probe.
type ProbeConfig struct {
	NATSURL       string            `yaml:"nats_url"`
	SubjectPrefix string            `yaml:"subject_prefix"`
	Interface     string            `yaml:"interface"`
	SnapshotLen   int32             `yaml:"snapshot_len"`
	Promiscuous   bool              `yaml:"promiscuous"`
	Inputs        []InputRule       `yaml:"inputs"`
	Persistence   PersistenceConfig `yaml:"persistence"`
}

// InputDef binds one monitor input to a packet field and a counter delta.
type InputDef struct {
	Field string `yaml:"field"` // src or dst
	Delta int32  `yaml:"delta"`
}

// MonitorDef defines a single traffic monitor from the config file.
type MonitorDef struct {
	Name      string     `yaml:"name"`
	Threshold int32      `yaml:"threshold"`
	Inputs    []InputDef `yaml:"inputs"`
}

// WriterDef defines one snapshot writer attached to the engine.
type WriterDef struct {
	Type     string `yaml:"type"` // text or clickhouse
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
	RootPath string `yaml:"root_path"`
}

// EngineConfig holds the settings of the monitoring engine.
type EngineConfig struct {
	NumWorkers          int          `yaml:"num_workers"`
	SizeOfPacketChannel int          `yaml:"size_of_packet_channel"`
	ResetPeriod         string       `yaml:"reset_period"`
	Monitors            []MonitorDef `yaml:"monitors"`
	Writers             []WriterDef  `yaml:"writers"`
}

// ManagementConfig holds the listen address of the monitor control API.
type ManagementConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// GateConfig holds the settings of the nf-gate drop stage.
type GateConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	SiblingLimit  int32  `yaml:"sibling_limit"`
	ForwardDrops  bool   `yaml:"forward_drops"`
	ListenAddr    string `yaml:"listen_addr"`
}

// APIConfig holds the listen address of the nf-api query service.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ClickHouseConfig holds the connection settings for cluster storage.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AlertRule fires when a monitor metric passes a bound. Metric is one of
// aggregate, clusters or depth; Operator is gt or ge.
type AlertRule struct {
	Monitor  string `yaml:"monitor"`
	Metric   string `yaml:"metric"`
	Operator string `yaml:"operator"`
	Value    int64  `yaml:"value"`
}

// AIConfig holds the settings for LLM-assisted alert summaries.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AlerterConfig holds the periodic alert evaluation settings.
type AlerterConfig struct {
	Enabled       bool        `yaml:"enabled"`
	CheckInterval string      `yaml:"check_interval"`
	Rules         []AlertRule `yaml:"rules"`
	AI            AIConfig    `yaml:"ai"`
}

// SMTPConfig holds the mail settings used for alert delivery. To may list
// several recipients separated by commas.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Probe      ProbeConfig      `yaml:"probe"`
	Engine     EngineConfig     `yaml:"engine"`
	Management ManagementConfig `yaml:"management"`
	Gate       GateConfig       `yaml:"gate"`
	API        APIConfig        `yaml:"api"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Alerter    AlerterConfig    `yaml:"alerter"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct. Sections a process does not use may be left empty; each component
// validates its own section when it is constructed.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
