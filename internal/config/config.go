package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Workspace subdirectory names. Everything the pipeline persists lives
// under one workspace root.
const (
	templatesDir = "templates"
	mappingsDir  = "mappings"
	filledDir    = "filled"
	metadataDir  = "filled_metadata"
	dataDir      = "data"

	schemaFile      = "canonical_schema.json"
	correctionsFile = "mapping_corrections.jsonl"
)

// Config holds all configuration for the form-filling server.
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Workspace root holding templates, mappings, output, and audit data
	Workspace string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio, // Default to stdio mode for MCP compatibility
		Host:        DefaultHost,
		Port:        DefaultPort,
		Workspace:   currentDir,
		Version:     "1.0.0",
		ServerName:  "formweld",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Workspace != "" {
		if expandedPath, err := filepath.Abs(cfg.Workspace); err == nil {
			cfg.Workspace = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FORMWELD")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("workspace", cfg.Workspace)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("workspace", cfg.Workspace, "Workspace directory for templates, mappings, and output")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("workspace", pflag.Lookup("workspace"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nformweld - PDF template analysis and intelligent form filling\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory workspace (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --workspace=/path/to/workspace           "+
			"# stdio mode with custom workspace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --workspace=/path/to/ws    # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_WORKSPACE   Workspace directory\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  FORMWELD_MAXFILESIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Workspace = viper.GetString("workspace")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Workspace == "" {
		return errors.New("workspace directory cannot be empty")
	}

	if err := c.EnsureLayout(); err != nil {
		return err
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// EnsureLayout creates the workspace root and its subdirectories.
func (c *Config) EnsureLayout() error {
	dirs := []string{
		c.Workspace,
		c.TemplatesDir(),
		c.MappingsDir(),
		c.FilledDir(),
		c.MetadataDir(),
		c.DataDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create workspace directory %s: %w", dir, err)
		}
	}
	return nil
}

// TemplatesDir is where source PDF templates live.
func (c *Config) TemplatesDir() string {
	return filepath.Join(c.Workspace, templatesDir)
}

// MappingsDir is where per-template mapping files are stored.
func (c *Config) MappingsDir() string {
	return filepath.Join(c.Workspace, mappingsDir)
}

// FilledDir is where filled output PDFs are written, in dated subfolders.
func (c *Config) FilledDir() string {
	return filepath.Join(c.Workspace, filledDir)
}

// MetadataDir is where run history and snapshots are written.
func (c *Config) MetadataDir() string {
	return filepath.Join(c.Workspace, metadataDir)
}

// DataDir is where payload files (CSV/JSON) are picked up from.
func (c *Config) DataDir() string {
	return filepath.Join(c.Workspace, dataDir)
}

// SchemaPath is the canonical field schema file.
func (c *Config) SchemaPath() string {
	return filepath.Join(c.Workspace, schemaFile)
}

// CorrectionsPath is the append-only mapping correction log.
func (c *Config) CorrectionsPath() string {
	return filepath.Join(c.Workspace, correctionsFile)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Workspace: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.Workspace, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
