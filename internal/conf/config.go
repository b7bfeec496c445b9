// config.go: settings struct and functions to load and save the application settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AttendanceSettings contains the tunable policy parameters consumed by the
// attendance processor. They are re-read on every ingest call, so updates
// through the API take effect immediately.
type AttendanceSettings struct {
	ConfidenceThreshold float64 // minimum recognition confidence to accept an event, (0,1]
	DedupTimeoutMinutes int     // minimum spacing between records of the same type per student
	AutoConfirm         bool    // true to confirm new records without manual review
	DetectionEnabled    bool    // master switch for the whole detection pipeline
	SMSEnabled          bool    // true to notify parents of accepted records
}

// SMSSettings contains settings for the SMS gateway used for parent notifications.
type SMSSettings struct {
	Provider  string // "console", "twilio" or "vonage"
	APIKey    string // gateway API key or account SID
	APISecret string // gateway API secret or auth token
	SenderID  string // sender phone number or alphanumeric ID
}

// MQTTSettings contains settings for the live-update publisher.
type MQTTSettings struct {
	Enabled  bool   // true to publish accepted records for live dashboards
	Broker   string // MQTT broker (tcp://host:port)
	Topic    string // MQTT topic
	Username string // MQTT username
	Password string // MQTT password
}

// Settings contains all configuration options for the attendance service.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name      string // name of this node, used to identify the source of records
		TimeAs24h bool   // true 24-hour time format, false 12-hour time format
	}

	Attendance AttendanceSettings // attendance policy settings
	SMS        SMSSettings        // SMS gateway settings
	MQTT       MQTTSettings       // live update publisher settings

	WebServer struct {
		Debug   bool   // true to enable web server debug mode
		Enabled bool   // true to enable web server
		Port    string // port for web server
	}

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and installs it as the current one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file yet, run on defaults
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the config search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "attendance-go"))
	}
	paths = append(paths, "/etc/attendance-go")
	return paths, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}

// Attendance returns a copy of the current attendance policy settings with
// defaults applied to any value left unset or out of range. Callers get a
// snapshot, never a pointer into shared state.
func Attendance() AttendanceSettings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return DefaultAttendanceSettings()
	}
	return settingsInstance.Attendance.withDefaults()
}

// UpdateAttendance applies fn to the attendance settings under the settings
// lock. Out-of-range results are normalized to defaults on the next read.
func UpdateAttendance(fn func(*AttendanceSettings)) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if settingsInstance == nil {
		settingsInstance = &Settings{Attendance: DefaultAttendanceSettings()}
	}
	fn(&settingsInstance.Attendance)
}

// SetTestSettings installs the given settings instance. Intended for tests.
func SetTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}

// DefaultAttendanceSettings returns the documented attendance policy defaults.
func DefaultAttendanceSettings() AttendanceSettings {
	return AttendanceSettings{
		ConfidenceThreshold: 0.6,
		DedupTimeoutMinutes: 30,
		AutoConfirm:         true,
		DetectionEnabled:    true,
		SMSEnabled:          false,
	}
}

// withDefaults replaces unset or invalid values with the documented defaults
// so the processor never observes an undefined configuration value.
func (a AttendanceSettings) withDefaults() AttendanceSettings {
	defaults := DefaultAttendanceSettings()
	if a.ConfidenceThreshold <= 0 || a.ConfidenceThreshold > 1 {
		a.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if a.DedupTimeoutMinutes < 1 {
		a.DedupTimeoutMinutes = defaults.DedupTimeoutMinutes
	}
	return a
}

// SaveSettings saves the current settings to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	settingsCopy := *settingsInstance
	settingsMutex.RUnlock()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	return nil
}

// SaveYAMLConfig writes the settings to configPath. The write goes through a
// temporary file and rename so a crash never leaves a truncated config.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
