// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Attendance-Go")
	viper.SetDefault("main.timeas24h", true)

	viper.SetDefault("attendance.confidencethreshold", 0.6)
	viper.SetDefault("attendance.deduptimeoutminutes", 30)
	viper.SetDefault("attendance.autoconfirm", true)
	viper.SetDefault("attendance.detectionenabled", true)
	viper.SetDefault("attendance.smsenabled", false)

	viper.SetDefault("sms.provider", "console")
	viper.SetDefault("sms.apikey", "")
	viper.SetDefault("sms.apisecret", "")
	viper.SetDefault("sms.senderid", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "attendance/updates")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "attendance.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "attendance")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "attendance")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
