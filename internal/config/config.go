// Package config handles configuration loading for tenantsim.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DayFormat is the layout for date-valued configuration fields.
const DayFormat = "2006-01-02"

// Config holds the complete run configuration. Every field is static for
// the duration of a run; generators receive the relevant sections at
// construction and never read configuration afterwards.
type Config struct {
	Scenario     ScenarioConfig     `yaml:"scenario"`
	Identity     IdentityConfig     `yaml:"identity"`
	Network      NetworkConfig      `yaml:"network"`
	Pools        PoolsConfig        `yaml:"pools"`
	Output       OutputConfig       `yaml:"output"`
	Storage      StorageConfig      `yaml:"storage"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Reservations ReservationsConfig `yaml:"reservations"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ScenarioConfig fixes the simulated time window and the compromise
// storyline parameters.
type ScenarioConfig struct {
	DateStart    string        `yaml:"date_start"` // inclusive, YYYY-MM-DD
	DateEnd      string        `yaml:"date_end"`   // inclusive, YYYY-MM-DD
	OfficeHours  HourWindow    `yaml:"office_hours"`
	Seed         int64         `yaml:"seed"`
	Anomaly      AnomalyConfig `yaml:"anomaly"`
	SuspiciousPF float64       `yaml:"suspicious_probability"` // per-principal eligibility chance
	DailyPF      float64       `yaml:"suspicious_daily_probability"`
}

// HourWindow bounds working-hour timestamps to a clock range.
type HourWindow struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// AnomalyConfig fixes the compromise storyline: one reserved principal,
// one day, one suspicious network origin.
type AnomalyConfig struct {
	Principal      string `yaml:"principal"`
	Day            string `yaml:"day"`             // YYYY-MM-DD
	EscalationBase string `yaml:"escalation_base"` // HH:MM, tenant-local
	SourceIP       string `yaml:"source_ip"`
	ElevatedRole   string `yaml:"elevated_role"`
	HighestRole    string `yaml:"highest_role"`
	Site           string `yaml:"site"`
}

// IdentityConfig controls the identity corpus.
type IdentityConfig struct {
	RosterPath     string   `yaml:"roster_path"`
	Domain         string   `yaml:"domain"`
	ITDepartments  []string `yaml:"it_departments"`
	MaxFabAttempts int      `yaml:"max_fabricate_attempts"`
}

// NetworkConfig maps office locations to their fixed network origins.
type NetworkConfig struct {
	Offices    map[string]OfficeNet `yaml:"offices"`
	DefaultIP  string               `yaml:"default_ip"`
	Suspicious []SuspiciousOrigin   `yaml:"suspicious"`
}

// OfficeNet is the fixed egress address and country label of one office.
type OfficeNet struct {
	IP      string `yaml:"ip"`
	Country string `yaml:"country"`
}

// SuspiciousOrigin is a known-bad address pinned to a displayed location.
type SuspiciousOrigin struct {
	IP       string `yaml:"ip"`
	Location string `yaml:"location"`
}

// PoolsConfig carries the fixed sampling pools. They are configuration,
// not code, so a scenario can swap them without touching the generators.
type PoolsConfig struct {
	FirstNames  []string      `yaml:"first_names"`
	LastNames   []string      `yaml:"last_names"`
	Roles       []string      `yaml:"roles"`
	GenericOps  []string      `yaml:"generic_ops"`
	Departments []string      `yaml:"departments"`
	Sites       []string      `yaml:"sites"`
	ClientApps  []string      `yaml:"client_apps"`
	Activities  []string      `yaml:"activities"`
	FileBases   []string      `yaml:"file_bases"`
	FileExts    []string      `yaml:"file_exts"`
	SignInApps  []string      `yaml:"signin_apps"`
	Failures    []FailureCode `yaml:"failures"`
}

// FailureCode is one entry of the sign-in failure pool.
type FailureCode struct {
	Code        int    `yaml:"code"`
	Description string `yaml:"description"`
}

// OutputConfig controls where the three streams are written.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	AuditFile    string `yaml:"audit_file"`
	ActivityFile string `yaml:"activity_file"`
	SignInFile   string `yaml:"signin_file"`
	MergeSignIns string `yaml:"merge_signins"` // optional pre-existing sign-in table
}

// StorageConfig holds the optional ClickHouse sink settings.
type StorageConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Hosts           []string      `yaml:"hosts"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	TablePrefix     string        `yaml:"table_prefix"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TLSEnabled      bool          `yaml:"tls_enabled"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// KafkaConfig holds the optional Kafka publisher settings.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	TopicPrefix   string        `yaml:"topic_prefix"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RequiredAcks  int           `yaml:"required_acks"` // -1=all, 0=none, 1=leader
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	CreateMissing bool          `yaml:"create_missing_topics"`
}

// ArchiveConfig holds the optional S3 archive settings.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"` // non-AWS endpoints (minio etc)
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// ReservationsConfig holds the optional Redis-backed reservation store
// used to keep fabricated identifiers unique across runs.
type ReservationsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Key         string        `yaml:"key"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	TLSEnabled  bool          `yaml:"tls_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration: the contoso tenant
// scenario for June 2025.
func DefaultConfig() *Config {
	return &Config{
		Scenario: ScenarioConfig{
			DateStart:    "2025-06-01",
			DateEnd:      "2025-06-30",
			OfficeHours:  HourWindow{Start: 9, End: 17},
			Seed:         1,
			SuspiciousPF: 0.3,
			DailyPF:      0.3,
			Anomaly: AnomalyConfig{
				Principal:      "jason.bourne@contoso.com",
				Day:            "2025-06-18",
				EscalationBase: "12:45",
				SourceIP:       "92.63.194.12",
				ElevatedRole:   "User Administrator",
				HighestRole:    "Global Administrator",
				Site:           "https://contoso.sharepoint.com/sites/engineering",
			},
		},
		Identity: IdentityConfig{
			RosterPath:     "IdentityInfo.csv",
			Domain:         "contoso.com",
			ITDepartments:  []string{"IT Support", "Engineering"},
			MaxFabAttempts: 10000,
		},
		Network: NetworkConfig{
			Offices: map[string]OfficeNet{
				"London":   {IP: "86.23.123.45", Country: "UK"},
				"New York": {IP: "66.249.64.1", Country: "USA"},
				"Dublin":   {IP: "78.137.97.10", Country: "IE"},
			},
			DefaultIP: "10.0.0.1",
			Suspicious: []SuspiciousOrigin{
				{IP: "185.254.75.23", Location: "Moscow, RU"},
				{IP: "103.87.199.12", Location: "Kuala Lumpur, MY"},
				{IP: "185.220.101.1", Location: "Bucharest, RO"},
				{IP: "45.142.120.5", Location: "Amsterdam, NL"},
				{IP: "109.74.204.61", Location: "Stockholm, SE"},
			},
		},
		Pools: PoolsConfig{
			FirstNames: []string{
				"alex", "sam", "charlie", "jordan", "riley", "taylor", "chris", "pat", "morgan", "drew",
				"casey", "jamie", "avery", "kai", "reese", "devon", "bailey", "quinn", "skyler", "dallas",
				"blake", "cameron", "emerson", "finley", "hayden", "kendall", "lane", "marley", "parker", "rowan",
				"sawyer", "sloane", "spencer", "teagan", "val", "wren", "zane", "zephyr", "logan", "reagan",
			},
			LastNames: []string{
				"doe", "smith", "johnson", "parker", "murray", "harris", "edwards", "stone", "rivers", "knight",
				"foster", "bennett", "carter", "clarke", "day", "ellis", "french", "graham", "holland", "irving",
				"jones", "keaton", "lewis", "morgan", "nelson", "owens", "pratt", "quincy", "reed", "sanders",
				"taylor", "upton", "vance", "walsh", "xavier", "young", "zimmer", "wright", "evans", "anderson",
			},
			Roles: []string{
				"Global Administrator", "User Administrator",
				"Security Administrator", "Exchange Administrator",
			},
			GenericOps: []string{
				"AddMemberToGroup", "RemoveMemberFromGroup",
				"UpdateDevice", "UpdateUser", "AddUser",
			},
			Departments: []string{"Sales", "Legal", "Marketing"},
			Sites: []string{
				"https://contoso.sharepoint.com/sites/marketing",
				"https://contoso.sharepoint.com/sites/hr",
				"https://contoso.sharepoint.com/sites/finance",
				"https://contoso.sharepoint.com/sites/engineering",
			},
			ClientApps: []string{"Outlook", "Teams", "Browser", "SharePoint", "Office 365 Web"},
			Activities: []string{
				"TeamsSessionStarted", "FileAccessed", "FileModified",
				"MailItemsAccessed", "MoveToDeletedItems",
			},
			FileBases: []string{"Report", "Budget", "Strategy", "Plan", "Presentation"},
			FileExts:  []string{".docx", ".xlsx", ".pptx", ".pdf"},
			SignInApps: []string{
				"Office 365 Exchange Online", "Microsoft Teams", "Azure Portal",
				"OneDrive", "SharePoint Online", "Outlook Mobile", "Power BI",
			},
			Failures: []FailureCode{
				{Code: 50057, Description: "User account is disabled. The account has been disabled by an administrator."},
				{Code: 50055, Description: "Invalid password, entered expired password."},
				{Code: 53003, Description: "Access has been blocked due to conditional access policies."},
				{Code: 50074, Description: "Strong Authentication is required."},
				{Code: 70044, Description: "The session has expired or is invalid due to sign-in frequency checks by conditional access."},
				{Code: 50140, Description: "Keep me signed in interrupt when the user was signing in."},
				{Code: 50076, Description: "Location change or admin config requires MFA to access the resource."},
				{Code: 50126, Description: "Invalid username or password."},
				{Code: 500121, Description: "Authentication failed during strong authentication request."},
			},
		},
		Output: OutputConfig{
			Dir:          "out",
			AuditFile:    "AuditLogs_Expanded.csv",
			ActivityFile: "OfficeActivity_Expanded.csv",
			SignInFile:   "SigninLogs_Expanded.csv",
		},
		Storage: StorageConfig{
			Enabled:         false,
			Hosts:           []string{"localhost:9000"},
			Database:        "fixtures",
			Username:        "default",
			TablePrefix:     "tenantsim_",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			DialTimeout:     10 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			Brokers:      []string{"localhost:9092"},
			TopicPrefix:  "tenantsim.",
			BatchSize:    500,
			BatchTimeout: time.Second,
			MaxRetries:   3,
			RequiredAcks: -1,
			WriteTimeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Region:  "us-east-1",
			Prefix:  "tenantsim",
		},
		Reservations: ReservationsConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			Key:         "tenantsim:fabricated",
			DialTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a file or returns defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("TENANTSIM_CONFIG_PATH")
	}
	if path == "" {
		path = "configs/tenantsim.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if seed := os.Getenv("TENANTSIM_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.Scenario.Seed = v
		}
	}

	if level := os.Getenv("TENANTSIM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if roster := os.Getenv("TENANTSIM_ROSTER"); roster != "" {
		c.Identity.RosterPath = roster
	}

	if dir := os.Getenv("TENANTSIM_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}

	if enabled := os.Getenv("TENANTSIM_STORAGE_ENABLED"); enabled == "true" {
		c.Storage.Enabled = true
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		c.Storage.Hosts = []string{host}
	}

	if db := os.Getenv("CLICKHOUSE_DATABASE"); db != "" {
		c.Storage.Database = db
	}

	if user := os.Getenv("CLICKHOUSE_USER"); user != "" {
		c.Storage.Username = user
	}

	if pass := os.Getenv("CLICKHOUSE_PASSWORD"); pass != "" {
		c.Storage.Password = pass
	}

	if brokers := os.Getenv("TENANTSIM_KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitAndTrim(brokers, ",")
		c.Kafka.Enabled = true
	}

	if addr := os.Getenv("TENANTSIM_REDIS_ADDR"); addr != "" {
		c.Reservations.Addr = addr
		c.Reservations.Enabled = true
	}

	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" && c.Archive.AccessKeyID == "" {
		c.Archive.AccessKeyID = key
	}

	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" && c.Archive.SecretAccessKey == "" {
		c.Archive.SecretAccessKey = secret
	}
}

// DateRange parses the configured window into inclusive day bounds.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse(DayFormat, c.Scenario.DateStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date_start: %w", err)
	}
	end, err = time.Parse(DayFormat, c.Scenario.DateEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date_end: %w", err)
	}
	return start, end, nil
}

// Validate validates the configuration. All failures here are fatal to
// the run: a half-validated scenario must never emit fixtures.
func (c *Config) Validate() error {
	start, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("date_end %s precedes date_start %s", c.Scenario.DateEnd, c.Scenario.DateStart)
	}

	if c.Scenario.OfficeHours.Start < 0 || c.Scenario.OfficeHours.End > 24 ||
		c.Scenario.OfficeHours.Start > c.Scenario.OfficeHours.End {
		return fmt.Errorf("invalid office_hours: %d-%d", c.Scenario.OfficeHours.Start, c.Scenario.OfficeHours.End)
	}

	if c.Scenario.SuspiciousPF < 0 || c.Scenario.SuspiciousPF > 1 {
		return fmt.Errorf("suspicious_probability must be in [0,1]: %v", c.Scenario.SuspiciousPF)
	}
	if c.Scenario.DailyPF < 0 || c.Scenario.DailyPF > 1 {
		return fmt.Errorf("suspicious_daily_probability must be in [0,1]: %v", c.Scenario.DailyPF)
	}

	if c.Scenario.Anomaly.Principal == "" {
		return fmt.Errorf("anomaly principal must be set")
	}
	if _, err := time.Parse(DayFormat, c.Scenario.Anomaly.Day); err != nil {
		return fmt.Errorf("invalid anomaly day: %w", err)
	}
	if _, err := time.Parse("15:04", c.Scenario.Anomaly.EscalationBase); err != nil {
		return fmt.Errorf("invalid anomaly escalation_base: %w", err)
	}
	anomalyDay, _ := time.Parse(DayFormat, c.Scenario.Anomaly.Day)
	if anomalyDay.Before(start) || anomalyDay.After(end) {
		return fmt.Errorf("anomaly day %s outside scenario window", c.Scenario.Anomaly.Day)
	}

	if c.Network.DefaultIP == "" {
		return fmt.Errorf("network default_ip must be set")
	}

	if len(c.Pools.FirstNames) == 0 || len(c.Pools.LastNames) == 0 {
		return fmt.Errorf("name pools must not be empty")
	}
	if len(c.Pools.Roles) == 0 || len(c.Pools.GenericOps) == 0 {
		return fmt.Errorf("role and operation pools must not be empty")
	}
	if len(c.Pools.Failures) == 0 {
		return fmt.Errorf("failure pool must not be empty")
	}

	if c.Identity.MaxFabAttempts <= 0 {
		return fmt.Errorf("max_fabricate_attempts must be positive")
	}

	if c.Storage.Enabled && len(c.Storage.Hosts) == 0 {
		return fmt.Errorf("storage enabled but no hosts configured")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive enabled but no bucket configured")
	}

	return nil
}

// splitAndTrim splits a string by separator and trims whitespace from
// each part, dropping empties.
func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0)
	for _, part := range splitString(s, sep) {
		trimmed := trimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// splitString splits a string by separator (simple implementation to avoid strings package).
func splitString(s, sep string) []string {
	if s == "" {
		return nil
	}
	var result []string
	start := 0
	for i := 0; i <= len(s)-len(sep); i++ {
		if s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	result = append(result, s[start:])
	return result
}

// trimSpace trims leading and trailing whitespace.
func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
