package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	sharedConfig "github.com/Log-Tools/lift-tickets-pipeline/config"
)

// Warehouse kinds
const (
	WarehouseSnowflake = "snowflake"
	WarehouseAzure     = "azure"
	WarehouseDuckDB    = "duckdb"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)
	stagePattern      = regexp.MustCompile(`^@(%[A-Za-z_][A-Za-z0-9_$.]*|~|[A-Za-z_][A-Za-z0-9_$.]*)(/[A-Za-z0-9_\-./]*)?$`)
)

// Config represents the ingestion configuration
type Config struct {
	// Records per columnar artifact; the command line argument takes precedence
	BatchSize int `yaml:"batch_size" env:"INGEST_BATCH_SIZE"`

	// Maximum length of one input line
	LineBufferSize int `yaml:"line_buffer_size" env:"INGEST_LINE_BUFFER_SIZE" default:"1048576"`

	// Parent of the per-run temporary directory; empty means the OS default
	TempDir string `yaml:"temp_dir" env:"INGEST_TEMP_DIR"`

	// Destination store
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Pushgateway base URL; metrics are only logged when empty
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`

	// Logging configuration
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" default:"info"`
}

// WarehouseConfig selects and configures the stage and task backend
type WarehouseConfig struct {
	Kind string `yaml:"kind" env:"WAREHOUSE_KIND" default:"snowflake"`

	// Profile in the shared credentials file used for missing credentials
	CredentialsProfile string `yaml:"credentials_profile" env:"CREDENTIALS_PROFILE" default:"default"`

	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Azure     AzureConfig     `yaml:"azure"`
	DuckDB    DuckDBConfig    `yaml:"duckdb"`
}

// SnowflakeConfig contains the destination store session settings
type SnowflakeConfig struct {
	Account    string `yaml:"account" env:"SNOWFLAKE_ACCOUNT"`
	User       string `yaml:"user" env:"SNOWFLAKE_USER"`
	PrivateKey string `yaml:"private_key" env:"PRIVATE_KEY"`
	Role       string `yaml:"role" env:"SNOWFLAKE_ROLE" default:"INGEST_ROLE"`
	Database   string `yaml:"database" env:"SNOWFLAKE_DATABASE" default:"INGEST_DATABASE"`
	Schema     string `yaml:"schema" env:"SNOWFLAKE_SCHEMA" default:"INGEST_SCHEMA"`
	Warehouse  string `yaml:"warehouse" env:"SNOWFLAKE_WAREHOUSE" default:"INGEST_WAREHOUSE"`
	QueryTag   string `yaml:"query_tag" env:"SNOWFLAKE_QUERY_TAG" default:"py-serverless"`
	Stage      string `yaml:"stage" env:"SNOWFLAKE_STAGE" default:"@%LIFT_TICKETS_PY_SERVERLESS"`
	Task       string `yaml:"task" env:"SNOWFLAKE_TASK" default:"LIFT_TICKETS_PY_SERVERLESS"`
}

// AzureConfig points at the blob container behind an external stage
type AzureConfig struct {
	Container string `yaml:"container" env:"AZURE_STAGE_CONTAINER"`
	Prefix    string `yaml:"prefix" env:"AZURE_STAGE_PREFIX"`

	// Filled from the credentials profile
	StorageAccount sharedConfig.StorageAccount `yaml:"-"`
}

// DuckDBConfig configures the local analytical store
type DuckDBConfig struct {
	Path     string `yaml:"path" env:"DUCKDB_PATH" default:"lift_tickets.duckdb"`
	StageDir string `yaml:"stage_dir" env:"DUCKDB_STAGE_DIR" default:"stage"`
	Table    string `yaml:"table" env:"DUCKDB_TABLE" default:"LIFT_TICKETS"`
}

// Validate validates everything that does not depend on credentials
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size cannot be negative")
	}
	if c.LineBufferSize <= 0 {
		return fmt.Errorf("line_buffer_size must be positive")
	}

	w := c.Warehouse
	switch w.Kind {
	case WarehouseSnowflake:
		return w.Snowflake.validateNames()
	case WarehouseAzure:
		if w.Azure.Container == "" {
			return fmt.Errorf("azure warehouse requires container")
		}
		return w.Snowflake.validateNames()
	case WarehouseDuckDB:
		if w.DuckDB.Path == "" {
			return fmt.Errorf("duckdb warehouse requires path")
		}
		if w.DuckDB.StageDir == "" {
			return fmt.Errorf("duckdb warehouse requires stage_dir")
		}
		if !identifierPattern.MatchString(w.DuckDB.Table) {
			return fmt.Errorf("invalid duckdb table name %q", w.DuckDB.Table)
		}
		return nil
	default:
		return fmt.Errorf("invalid warehouse kind %q, must be 'snowflake', 'azure' or 'duckdb'", w.Kind)
	}
}

func (s SnowflakeConfig) validateNames() error {
	if !stagePattern.MatchString(s.Stage) {
		return fmt.Errorf("invalid stage name %q", s.Stage)
	}
	if !identifierPattern.MatchString(s.Task) {
		return fmt.Errorf("invalid task name %q", s.Task)
	}
	return nil
}

// ValidateCredentials checks that the selected backend can authenticate
func (c *Config) ValidateCredentials() error {
	w := c.Warehouse
	if w.Kind == WarehouseDuckDB {
		return nil
	}
	if w.Snowflake.Account == "" {
		return fmt.Errorf("snowflake account is required")
	}
	if w.Snowflake.User == "" {
		return fmt.Errorf("snowflake user is required")
	}
	if w.Snowflake.PrivateKey == "" {
		return fmt.Errorf("snowflake private key is required")
	}
	if w.Kind == WarehouseAzure {
		if w.Azure.StorageAccount.AccountName == "" || w.Azure.StorageAccount.AccessKey == "" {
			return fmt.Errorf("azure storage account credentials are required (profile %q)", w.CredentialsProfile)
		}
	}
	return nil
}

// ApplyCredentials fills credentials the environment did not provide from a profile of the shared credentials file
func (c *Config) ApplyCredentials(shared *sharedConfig.Config) error {
	if c.Warehouse.Kind == WarehouseDuckDB || shared == nil {
		return nil
	}
	profile := c.Warehouse.CredentialsProfile

	sf := &c.Warehouse.Snowflake
	if sf.Account == "" || sf.User == "" || sf.PrivateKey == "" {
		account, err := shared.GetSnowflakeAccount(profile)
		if err != nil {
			return fmt.Errorf("failed to get snowflake credentials: %w", err)
		}
		if sf.Account == "" {
			sf.Account = account.Account
		}
		if sf.User == "" {
			sf.User = account.User
		}
		if sf.PrivateKey == "" {
			sf.PrivateKey = account.PrivateKey
		}
	}

	if c.Warehouse.Kind == WarehouseAzure {
		storage, err := shared.GetStorageAccount(profile)
		if err != nil {
			return fmt.Errorf("failed to get storage account: %w", err)
		}
		c.Warehouse.Azure.StorageAccount = storage
	}
	return nil
}

// NeedsSharedCredentials reports whether the shared credentials file must be read
func (c *Config) NeedsSharedCredentials() bool {
	switch c.Warehouse.Kind {
	case WarehouseDuckDB:
		return false
	case WarehouseAzure:
		return true
	}
	sf := c.Warehouse.Snowflake
	return sf.Account == "" || sf.User == "" || sf.PrivateKey == ""
}

// Debug reports whether per-batch debug logging is enabled
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// LoadConfigFromFile loads configuration from a YAML file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables with defaults
func LoadConfigFromEnv() (*Config, error) {
	cfg := Config{
		BatchSize:      parseIntEnv("INGEST_BATCH_SIZE", 0),
		LineBufferSize: parseIntEnv("INGEST_LINE_BUFFER_SIZE", 1048576),
		TempDir:        os.Getenv("INGEST_TEMP_DIR"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Warehouse: WarehouseConfig{
			Kind:               getEnv("WAREHOUSE_KIND", WarehouseSnowflake),
			CredentialsProfile: getEnv("CREDENTIALS_PROFILE", sharedConfig.DefaultProfile),
			Snowflake: SnowflakeConfig{
				Account:    os.Getenv("SNOWFLAKE_ACCOUNT"),
				User:       os.Getenv("SNOWFLAKE_USER"),
				PrivateKey: os.Getenv("PRIVATE_KEY"),
				Role:       getEnv("SNOWFLAKE_ROLE", "INGEST_ROLE"),
				Database:   getEnv("SNOWFLAKE_DATABASE", "INGEST_DATABASE"),
				Schema:     getEnv("SNOWFLAKE_SCHEMA", "INGEST_SCHEMA"),
				Warehouse:  getEnv("SNOWFLAKE_WAREHOUSE", "INGEST_WAREHOUSE"),
				QueryTag:   getEnv("SNOWFLAKE_QUERY_TAG", "py-serverless"),
				Stage:      getEnv("SNOWFLAKE_STAGE", "@%LIFT_TICKETS_PY_SERVERLESS"),
				Task:       getEnv("SNOWFLAKE_TASK", "LIFT_TICKETS_PY_SERVERLESS"),
			},
			Azure: AzureConfig{
				Container: os.Getenv("AZURE_STAGE_CONTAINER"),
				Prefix:    os.Getenv("AZURE_STAGE_PREFIX"),
			},
			DuckDB: DuckDBConfig{
				Path:     getEnv("DUCKDB_PATH", "lift_tickets.duckdb"),
				StageDir: getEnv("DUCKDB_STAGE_DIR", "stage"),
				Table:    getEnv("DUCKDB_TABLE", "LIFT_TICKETS"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Helper functions for parsing environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return defaultValue
}

func applyDefaults(cfg *Config) {
	if cfg.LineBufferSize == 0 {
		cfg.LineBufferSize = 1048576 // 1MB
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	w := &cfg.Warehouse
	if w.Kind == "" {
		w.Kind = WarehouseSnowflake
	}
	if w.CredentialsProfile == "" {
		w.CredentialsProfile = sharedConfig.DefaultProfile
	}

	sf := &w.Snowflake
	if sf.Role == "" {
		sf.Role = "INGEST_ROLE"
	}
	if sf.Database == "" {
		sf.Database = "INGEST_DATABASE"
	}
	if sf.Schema == "" {
		sf.Schema = "INGEST_SCHEMA"
	}
	if sf.Warehouse == "" {
		sf.Warehouse = "INGEST_WAREHOUSE"
	}
	if sf.QueryTag == "" {
		sf.QueryTag = "py-serverless"
	}
	if sf.Stage == "" {
		sf.Stage = "@%LIFT_TICKETS_PY_SERVERLESS"
	}
	if sf.Task == "" {
		sf.Task = "LIFT_TICKETS_PY_SERVERLESS"
	}

	if w.DuckDB.Path == "" {
		w.DuckDB.Path = "lift_tickets.duckdb"
	}
	if w.DuckDB.StageDir == "" {
		w.DuckDB.StageDir = "stage"
	}
	if w.DuckDB.Table == "" {
		w.DuckDB.Table = "LIFT_TICKETS"
	}
}
