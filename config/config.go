package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when no profile is requested explicitly.
const DefaultProfile = "default"

// Config represents the root credentials file structure
type Config struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile groups the credentials of one deployment of the pipeline
type Profile struct {
	Name           string           `yaml:"name"`
	Snowflake      SnowflakeAccount `yaml:"snowflake"`
	StorageAccount StorageAccount   `yaml:"storage_account"`
}

// SnowflakeAccount holds key-pair credentials for the destination store
type SnowflakeAccount struct {
	Account        string `yaml:"account"`
	User           string `yaml:"user"`
	PrivateKey     string `yaml:"private_key"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// StorageAccount represents Azure Storage account configuration
type StorageAccount struct {
	AccountName string `yaml:"account_name"`
	AccessKey   string `yaml:"access_key"`
}

// SafeProfile is a profile with masked credentials for safe display
type SafeProfile struct {
	Name             string `yaml:"name"`
	SnowflakeAccount string `yaml:"snowflake_account"`
	SnowflakeUser    string `yaml:"snowflake_user"`
	PrivateKey       string `yaml:"private_key"` // masked
	StorageAccount   string `yaml:"storage_account"`
	AccessKey        string `yaml:"access_key"` // masked
}

// getConfigPaths returns possible config file locations, in order of preference
func getConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(homeDir, ".lift-tickets-pipeline", "config.yaml"),
		filepath.Join(homeDir, ".config", "lift-tickets-pipeline", "config.yaml"),
	}

	if configPath := os.Getenv("LIFT_TICKETS_CONFIG"); configPath != "" {
		paths = append([]string{configPath}, paths...)
	}

	// Local config (less secure, but convenient for dev)
	paths = append(paths, "config.yaml")

	return paths
}

// LoadConfig loads the credentials file from the given path or the first readable default location
func LoadConfig(configPath ...string) (*Config, error) {
	var paths []string
	if len(configPath) > 0 && configPath[0] != "" {
		paths = []string{configPath[0]}
	} else {
		paths = getConfigPaths()
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var config Config
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return &config, nil
	}

	return nil, fmt.Errorf("no valid configuration found in any of these locations: %s", strings.Join(paths, ", "))
}

// ListProfiles returns all profile names in sorted order
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns the named profile, falling back to DefaultProfile when name is empty
func (c *Config) GetProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	profile, exists := c.Profiles[name]
	if !exists {
		return Profile{}, fmt.Errorf("profile '%s' not found", name)
	}
	return profile, nil
}

// GetSnowflakeAccount returns the destination store credentials of a profile.
// A key stored as a file path is read into PrivateKey.
func (c *Config) GetSnowflakeAccount(profile string) (SnowflakeAccount, error) {
	p, err := c.GetProfile(profile)
	if err != nil {
		return SnowflakeAccount{}, err
	}

	account := p.Snowflake
	if account.PrivateKey == "" && account.PrivateKeyPath != "" {
		data, err := os.ReadFile(account.PrivateKeyPath)
		if err != nil {
			return SnowflakeAccount{}, fmt.Errorf("failed to read private key for profile '%s': %w", profile, err)
		}
		account.PrivateKey = string(data)
	}
	return account, nil
}

// GetStorageAccount returns the Azure storage account of a profile
func (c *Config) GetStorageAccount(profile string) (StorageAccount, error) {
	p, err := c.GetProfile(profile)
	if err != nil {
		return StorageAccount{}, err
	}
	return p.StorageAccount, nil
}

// GetProfileSafe returns the profile with masked credentials
func (c *Config) GetProfileSafe(profile string) (SafeProfile, error) {
	p, err := c.GetProfile(profile)
	if err != nil {
		return SafeProfile{}, err
	}

	safe := SafeProfile{
		Name:             p.Name,
		SnowflakeAccount: p.Snowflake.Account,
		SnowflakeUser:    p.Snowflake.User,
		StorageAccount:   p.StorageAccount.AccountName,
	}
	if p.Snowflake.PrivateKey != "" {
		safe.PrivateKey = maskCredential(p.Snowflake.PrivateKey, 4)
	} else if p.Snowflake.PrivateKeyPath != "" {
		safe.PrivateKey = p.Snowflake.PrivateKeyPath
	}
	if p.StorageAccount.AccessKey != "" {
		safe.AccessKey = maskCredential(p.StorageAccount.AccessKey, 4)
	}
	return safe, nil
}

// maskCredential masks a credential keeping only the first few characters visible
func maskCredential(value string, visibleChars int) string {
	if len(value) <= visibleChars {
		return strings.Repeat("*", 8)
	}
	return value[:visibleChars] + strings.Repeat("*", len(value)-visibleChars)
}

// ValidateConfig validates the configuration structure.
// A profile needs at least one complete credential set.
func (c *Config) ValidateConfig() (bool, []string) {
	var issues []string

	if len(c.Profiles) == 0 {
		issues = append(issues, "no profiles found")
		return false, issues
	}

	for _, name := range c.ListProfiles() {
		p := c.Profiles[name]
		sf := p.Snowflake
		sa := p.StorageAccount

		hasSnowflake := sf.Account != "" || sf.User != ""
		hasStorage := sa.AccountName != "" || sa.AccessKey != ""
		if !hasSnowflake && !hasStorage {
			issues = append(issues, fmt.Sprintf("profile '%s' has no credentials", name))
			continue
		}

		if hasSnowflake {
			if sf.Account == "" {
				issues = append(issues, fmt.Sprintf("%s missing 'snowflake.account'", name))
			}
			if sf.User == "" {
				issues = append(issues, fmt.Sprintf("%s missing 'snowflake.user'", name))
			}
			if sf.PrivateKey == "" && sf.PrivateKeyPath == "" {
				issues = append(issues, fmt.Sprintf("%s missing 'snowflake.private_key' or 'snowflake.private_key_path'", name))
			}
		}
		if hasStorage {
			if sa.AccountName == "" {
				issues = append(issues, fmt.Sprintf("%s missing 'storage_account.account_name'", name))
			}
			if sa.AccessKey == "" {
				issues = append(issues, fmt.Sprintf("%s missing 'storage_account.access_key'", name))
			}
		}
	}

	return len(issues) == 0, issues
}
