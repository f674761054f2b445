// Package config loads the settings of the sync tools from an optional config
// file and the environment. Environment variables win over the file.
package config

import (
	"strings"

	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/sql"
	"github.com/spf13/viper"
)

const (
	KeyDBHost       = "DBHOST"
	KeyDBPort       = "DBPORT"
	KeyDBUser       = "DBUSER"
	KeyDBPass       = "DBPASS"
	KeyDBName       = "DBNAME"
	KeySSLMode      = "SSLMODE"
	KeyDBSearchPath = "DBSEARCHPATH"
	KeyLocalStore   = "SAFAR_LOCAL_STORE"
	KeyKafkaURL     = "KAFKA_URL"
	KeyKafkaRegion  = "KAFKA_REGION"
	KeyKafkaTopic   = "KAFKA_TOPIC"
	KeyDev          = "DEV"
	KeyLogLevel     = "LOG_LEVEL"

	DefaultLocalStore = "safar.db"
	DefaultKafkaTopic = "safar-telemetry"

	ECode0A0101 = e.Code0A01 + "01"
	ECode0A0102 = e.Code0A01 + "02"
)

var keys = []string{
	KeyDBHost, KeyDBPort, KeyDBUser, KeyDBPass, KeyDBName, KeySSLMode, KeyDBSearchPath,
	KeyLocalStore, KeyKafkaURL, KeyKafkaRegion, KeyKafkaTopic, KeyDev, KeyLogLevel,
}

// Config the settings of the sync tools
type Config struct {
	DB          sql.ConnParam
	LocalStore  string
	KafkaURL    []string
	KafkaRegion string
	KafkaTopic  string
	Dev         bool
	LogLevel    string
}

// Load reads the config file at path, if path is not empty, and the
// environment
func Load(path string) (c *Config, err error) {
	v := viper.New()
	v.SetDefault(KeyDBPort, "5432")
	v.SetDefault(KeyLocalStore, DefaultLocalStore)
	v.SetDefault(KeyKafkaTopic, DefaultKafkaTopic)
	v.SetDefault(KeyLogLevel, "info")
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, e.W(err, ECode0A0101, k)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, e.W(err, ECode0A0102, path)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) (c *Config) {
	c = &Config{
		DB: sql.ConnParam{
			Host:       v.GetString(KeyDBHost),
			Port:       v.GetString(KeyDBPort),
			User:       v.GetString(KeyDBUser),
			Password:   v.GetString(KeyDBPass),
			DBName:     v.GetString(KeyDBName),
			SSLMode:    v.GetString(KeySSLMode),
			SearchPath: v.GetString(KeyDBSearchPath),
		},
		LocalStore:  v.GetString(KeyLocalStore),
		KafkaRegion: v.GetString(KeyKafkaRegion),
		KafkaTopic:  v.GetString(KeyKafkaTopic),
		Dev:         v.GetBool(KeyDev),
		LogLevel:    v.GetString(KeyLogLevel),
	}

	for _, u := range strings.Split(v.GetString(KeyKafkaURL), ",") {
		if u = strings.TrimSpace(u); u != "" {
			c.KafkaURL = append(c.KafkaURL, u)
		}
	}

	return c
}

// HasRemote returns whether a remote database is configured
func (c *Config) HasRemote() bool {
	return c.DB.Host != "" && c.DB.DBName != ""
}

// HasKafka returns whether telemetry should be published to Kafka
func (c *Config) HasKafka() bool {
	return len(c.KafkaURL) > 0
}
