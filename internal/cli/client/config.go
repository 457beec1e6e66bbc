package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	envAPIKey = "DOCQA_OPENAI_API_KEY"
	envAPIURL = "DOCQA_API_URL"
)

// GlobalConfig is the user configuration stored in config.json
type GlobalConfig struct {
	// APIKey is the OpenAI key used locally and sent to a remote daemon.
	APIKey string `json:"api_key,omitempty"`
	// APIURL switches the CLI to a remote docqad when set.
	APIURL string `json:"api_url,omitempty"`
	// ArchiveKey is the object key push and pull use when none is given.
	ArchiveKey string `json:"archive_key,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "docqa"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields nil and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := getConfigDirFunc()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// CredentialSource represents where a setting came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// Settings is the resolved connection configuration of one invocation.
type Settings struct {
	APIKey       string
	APIKeySource CredentialSource
	APIURL       string
	ArchiveKey   string
}

// Remote reports whether commands go to a docqad instead of running locally.
func (s Settings) Remote() bool {
	return s.APIURL != ""
}

// ResolveSettings applies the cascade flag -> env -> global config to the
// API key and URL. cmd may be nil.
func ResolveSettings(cmd *cobra.Command) (Settings, error) {
	var s Settings

	if cmd != nil {
		if v, err := cmd.Flags().GetString("api-key"); err == nil && v != "" {
			s.APIKey, s.APIKeySource = v, SourceFlag
		}
		if v, err := cmd.Flags().GetString("api-url"); err == nil && v != "" {
			s.APIURL = v
		}
	}

	if s.APIKey == "" {
		if v := os.Getenv(envAPIKey); v != "" {
			s.APIKey, s.APIKeySource = v, SourceEnv
		}
	}
	if s.APIURL == "" {
		s.APIURL = os.Getenv(envAPIURL)
	}

	global, err := LoadGlobalConfig()
	if err != nil {
		return Settings{}, err
	}
	if global != nil {
		if s.APIKey == "" && global.APIKey != "" {
			s.APIKey, s.APIKeySource = global.APIKey, SourceGlobalConfig
		}
		if s.APIURL == "" {
			s.APIURL = global.APIURL
		}
		s.ArchiveKey = global.ArchiveKey
	}

	if s.APIKeySource == "" {
		s.APIKeySource = SourceNone
	}
	return s, nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
