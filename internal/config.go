package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appName = "ytpost"

// Config holds application settings
type Config struct {
	// User configurable settings
	Model             string
	BaseURL           string
	OpenAIAPIKey      string
	GenerationTimeout time.Duration
	Prompt            string
	ClientSecrets     string
	TokenFile         string
	Category          string
	Privacy           string
	ScanInterval      time.Duration
	StopTimeout       time.Duration
	ProgressInterval  time.Duration
	LogLevel          string
	Verbose           bool
	Quiet             bool

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Printf("Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt checks if a prompt.txt file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig initializes Viper and loads configuration. A non-empty
// configFile replaces the XDG lookup.
func InitConfig(configFile string) *Config {
	configDir := filepath.Join(xdg.ConfigHome, appName)
	dataDir := filepath.Join(xdg.DataHome, appName)
	cacheDir := filepath.Join(xdg.CacheHome, appName)

	v := viper.New()

	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "")
	v.SetDefault("generation_timeout", 30*time.Second)
	v.SetDefault("prompt", "") // if empty will use default prompt template
	v.SetDefault("client_secrets", filepath.Join(configDir, "client_secrets.json"))
	v.SetDefault("token_file", filepath.Join(dataDir, "token.json"))
	v.SetDefault("category", "22")
	v.SetDefault("privacy", "private")
	v.SetDefault("scan_interval", DefaultScanInterval)
	v.SetDefault("stop_timeout", DefaultStopTimeout)
	v.SetDefault("progress_interval", DefaultProgressInterval)
	v.SetDefault("log_level", "info")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	// A .env in the working directory fills in variables that are not already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error reading .env: %v\n", err)
	}

	v.SetEnvPrefix("YTPOST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// The API key may come from the provider's conventional variable
	_ = v.BindEnv("openai_api_key", "YTPOST_OPENAI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	config := &Config{
		Model:             v.GetString("model"),
		BaseURL:           v.GetString("base_url"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		GenerationTimeout: v.GetDuration("generation_timeout"),
		Prompt:            v.GetString("prompt"),
		ClientSecrets:     v.GetString("client_secrets"),
		TokenFile:         v.GetString("token_file"),
		Category:          v.GetString("category"),
		Privacy:           v.GetString("privacy"),
		ScanInterval:      v.GetDuration("scan_interval"),
		StopTimeout:       v.GetDuration("stop_timeout"),
		ProgressInterval:  v.GetDuration("progress_interval"),
		LogLevel:          v.GetString("log_level"),
		Verbose:           v.GetBool("verbose"),
		Quiet:             v.GetBool("quiet"),

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
	}

	if config.Verbose {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}

// LogFile returns the path of the structured log
func (c *Config) LogFile() string {
	return filepath.Join(c.CacheDir, appName+".log")
}
