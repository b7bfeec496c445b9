package conf

import (
	"fmt"
	"strings"
)

// ValidateSettings checks the loaded settings for configuration mistakes
// that would otherwise surface as confusing runtime behavior.
func ValidateSettings(settings *Settings) error {
	var problems []string

	a := settings.Attendance
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		problems = append(problems, fmt.Sprintf("attendance.confidencethreshold must be within (0,1], got %g", a.ConfidenceThreshold))
	}
	if a.DedupTimeoutMinutes < 0 {
		problems = append(problems, fmt.Sprintf("attendance.deduptimeoutminutes must be at least 1, got %d", a.DedupTimeoutMinutes))
	}

	switch settings.SMS.Provider {
	case "", "console":
	case "twilio", "vonage":
		if a.SMSEnabled && settings.SMS.APIKey == "" {
			problems = append(problems, fmt.Sprintf("sms.apikey is required for provider %q", settings.SMS.Provider))
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported sms.provider %q", settings.SMS.Provider))
	}

	if settings.MQTT.Enabled && settings.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required when mqtt is enabled")
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		problems = append(problems, "at least one of output.sqlite or output.mysql must be enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
