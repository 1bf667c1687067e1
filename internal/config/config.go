package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string
	TestPath    string

	// Report settings
	ReportEnabled bool
	ReportPath    string
	Suite         string
	MarkersPath   string

	// Execution settings
	Processors int
	GoBinary   string
	GoTestArgs []string

	// Paths to ignore when scanning
	PathsToIgnore []string

	// History database
	Database Database

	// Command flags
	Flags Flags
}

// Flags holds command-line flags
type Flags struct {
	Processors int
	TestPath   string
	NameFilter string
	TestCases  bool
	FailFast   bool
	Format     string
	PackageDir string
	Publish    bool
	Verbose    bool
}

// Database holds the MySQL connection settings used to publish reports
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath: DefaultProjectPath,
		TestPath:    DefaultTestPath,
		ReportPath:  DefaultReportFile,
		Suite:       DefaultSuite,
		Processors:  DefaultProcessors,
		GoBinary:    DefaultGoBinary,
		Database: Database{
			Host: "127.0.0.1",
			Port: "3306",
			User: "root",
			Name: "ctrf",
		},
		Flags: Flags{Processors: DefaultProcessors, Format: DefaultEventFormat},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load creates a config and applies flags
func Load(flags Flags) *Config {
	cfg := New()
	cfg.Flags = flags

	// Apply flag overrides
	if flags.Processors > 0 {
		cfg.Processors = flags.Processors
	}

	return cfg
}

// LoadEnv applies the project .env file and environment variables.
// A missing .env file is not an error; one that does not parse is.
func (c *Config) LoadEnv() error {
	envPath := filepath.Join(c.ProjectPath, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}

	if v, ok := os.LookupEnv("CTRF_SUITE"); ok {
		c.Suite = v
	}
	if v := os.Getenv("CTRF_REPORT"); v != "" {
		c.ReportPath = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.Database.Port = v
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_DATABASE"); v != "" {
		c.Database.Name = v
	}
	return nil
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		// If TestPath is provided, make it relative to ProjectPath if it's not absolute
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	// Default: combine project path and test path
	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the absolute path of the report file.
// Relative paths are resolved against the working directory.
func (c *Config) GetOutputPath() string {
	p := c.ReportPath
	if p == "" {
		p = DefaultReportFile
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetMarkersPath returns the marker file to load and whether it was set explicitly.
// The default file is only used when it exists.
func (c *Config) GetMarkersPath() (string, bool) {
	if c.MarkersPath != "" {
		return c.MarkersPath, true
	}
	p := filepath.Join(c.ProjectPath, DefaultMarkersFile)
	if _, err := os.Stat(p); err == nil {
		return p, false
	}
	return "", false
}

// GetWorkerName returns the name exported to the test process of a worker
func (c *Config) GetWorkerName(workerID int) string {
	return fmt.Sprintf("gw%d", workerID)
}

// DSN returns the MySQL data source name for the history database
func (d Database) DSN() string {
	return d.dsn(d.Name)
}

// ServerDSN returns a data source name that selects no database
func (d Database) ServerDSN() string {
	return d.dsn("")
}

func (d Database) dsn(name string) string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Host + ":" + d.Port
	cfg.DBName = name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
