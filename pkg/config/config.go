package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
)

const (
	DBTypeFile     = "file"
	DBTypeMemory   = "memory"
	DBTypePostgres = "postgres"
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type Config struct {
	DBType string
	DBPath string
	DBDSN  string

	HTTPHostPort string
	GRPCHostPort string

	DefaultRate  float64
	DefaultBurst int

	// AESKey is the pre-shared device channel key. It is never logged.
	AESKey    []byte
	JWTSecret []byte
	JWTTTL    time.Duration

	StoreTimeout   time.Duration
	LivenessWindow time.Duration
	ChartMaxPoints int
	CorsOrigins    []string

	// AdminUsername/AdminPassword seed the first administrator when set.
	AdminUsername string
	AdminPassword string

	MQTT MQTTConfig
}

// Load reads .env (when present) into the process environment and builds the
// configuration from it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(common.EnvKeyIOTDBType, DBTypeFile)
	v.SetDefault(common.EnvKeyIOTDbPath, "greenhouse.db")
	v.SetDefault(common.EnvKeyIOTHttpHostPort, ":1080")
	v.SetDefault(common.EnvKeyIOTDefaultRate, 1.0)
	v.SetDefault(common.EnvKeyIOTDefaultBurst, 5)
	v.SetDefault(common.EnvKeyIOTJWTTTL, common.DefaultJWTTTL)
	v.SetDefault(common.EnvKeyIOTStoreTimeout, common.DefaultStoreTimeout)
	v.SetDefault(common.EnvKeyIOTLivenessWindow, common.DefaultLivenessWindow)
	v.SetDefault(common.EnvKeyIOTChartMaxPoints, common.DefaultChartMaxPoints)
	v.SetDefault(common.EnvKeyIOTMqttClientID, "greenhouse-ingest")
}

func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		DBType:         strings.TrimSpace(v.GetString(common.EnvKeyIOTDBType)),
		DBPath:         strings.TrimSpace(v.GetString(common.EnvKeyIOTDbPath)),
		DBDSN:          strings.TrimSpace(v.GetString(common.EnvKeyIOTDbDSN)),
		HTTPHostPort:   strings.TrimSpace(v.GetString(common.EnvKeyIOTHttpHostPort)),
		GRPCHostPort:   strings.TrimSpace(v.GetString(common.EnvKeyIOTGrpcHostPort)),
		DefaultRate:    v.GetFloat64(common.EnvKeyIOTDefaultRate),
		DefaultBurst:   v.GetInt(common.EnvKeyIOTDefaultBurst),
		JWTSecret:      []byte(v.GetString(common.EnvKeyIOTJWTSecret)),
		JWTTTL:         v.GetDuration(common.EnvKeyIOTJWTTTL),
		StoreTimeout:   v.GetDuration(common.EnvKeyIOTStoreTimeout),
		LivenessWindow: v.GetDuration(common.EnvKeyIOTLivenessWindow),
		ChartMaxPoints: v.GetInt(common.EnvKeyIOTChartMaxPoints),
		CorsOrigins:    splitList(v.GetString(common.EnvKeyIOTCorsOrigins)),
		AdminUsername:  strings.TrimSpace(v.GetString(common.EnvKeyIOTAdminUsername)),
		AdminPassword:  v.GetString(common.EnvKeyIOTAdminPassword),
		MQTT: MQTTConfig{
			Broker:   strings.TrimSpace(v.GetString(common.EnvKeyIOTMqttBroker)),
			ClientID: strings.TrimSpace(v.GetString(common.EnvKeyIOTMqttClientID)),
			Username: v.GetString(common.EnvKeyIOTMqttUsername),
			Password: v.GetString(common.EnvKeyIOTMqttPassword),
		},
	}

	rawKey := strings.TrimSpace(v.GetString(common.EnvKeyIOTAESKey))
	if rawKey == "" {
		return nil, fmt.Errorf("invalid %s: must be set", common.EnvKeyIOTAESKey)
	}
	key, err := channel.ParseKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", common.EnvKeyIOTAESKey, err)
	}
	cfg.AESKey = key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBType {
	case DBTypeFile, DBTypeMemory:
	case DBTypePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("invalid %s: required when %s=postgres", common.EnvKeyIOTDbDSN, common.EnvKeyIOTDBType)
		}
	default:
		return fmt.Errorf("unknown %s: %q", common.EnvKeyIOTDBType, c.DBType)
	}
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("invalid %s: must be set", common.EnvKeyIOTJWTSecret)
	}
	if c.DefaultRate < 0 || c.DefaultBurst < 0 {
		return fmt.Errorf("invalid %s/%s: must be >= 0", common.EnvKeyIOTDefaultRate, common.EnvKeyIOTDefaultBurst)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", common.EnvKeyIOTStoreTimeout)
	}
	if c.LivenessWindow <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", common.EnvKeyIOTLivenessWindow)
	}
	if c.ChartMaxPoints <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", common.EnvKeyIOTChartMaxPoints)
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		return fmt.Errorf("invalid %s: required when %s is set", common.EnvKeyIOTAdminPassword, common.EnvKeyIOTAdminUsername)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
