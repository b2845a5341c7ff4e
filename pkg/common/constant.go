package common

import "time"

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTDBType string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath string = "IOT_DB_PATH"
	EnvKeyIOTDbDSN  string = "IOT_DB_DSN"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"
	EnvKeyIOTGrpcHostPort string = "IOT_GRPC_HOST_PORT"

	EnvKeyIOTDefaultRate  string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst string = "IOT_DEFAULT_BURST"

	EnvKeyIOTAESKey         string = "IOT_AES_KEY"
	EnvKeyIOTJWTSecret      string = "IOT_JWT_SECRET"
	EnvKeyIOTJWTTTL         string = "IOT_JWT_TTL"
	EnvKeyIOTStoreTimeout   string = "IOT_STORE_TIMEOUT"
	EnvKeyIOTLivenessWindow string = "IOT_LIVENESS_WINDOW"
	EnvKeyIOTChartMaxPoints string = "IOT_CHART_MAX_POINTS"
	EnvKeyIOTCorsOrigins    string = "IOT_CORS_ORIGINS"

	EnvKeyIOTAdminUsername string = "IOT_ADMIN_USERNAME"
	EnvKeyIOTAdminPassword string = "IOT_ADMIN_PASSWORD"

	EnvKeyIOTMqttBroker   string = "IOT_MQTT_BROKER"
	EnvKeyIOTMqttClientID string = "IOT_MQTT_CLIENT_ID"
	EnvKeyIOTMqttUsername string = "IOT_MQTT_USERNAME"
	EnvKeyIOTMqttPassword string = "IOT_MQTT_PASSWORD"

	LoggerNameIOTCore       string = "iot_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameMqttIngest    string = "mqtt_ingest"
	LoggerFieldIOTCategory  string = "category"
	LoggerCategoryIngest    string = "ingest"
	LoggerCategoryReconcile string = "reconcile"
	LoggerCategoryReadings  string = "readings"
	LoggerCategoryIOTAlert  string = "alert"
	LoggerCategoryDevice    string = "device"
	LoggerCategoryAuth      string = "auth"
)

const (
	DefaultGroupName        string = "Non Assigné"
	DefaultGroupDescription string = "Default group for unassigned devices."

	DefaultHoursBack      int           = 24
	DefaultChartMaxPoints int           = 200
	DefaultStoreTimeout   time.Duration = 5 * time.Second
	DefaultLivenessWindow time.Duration = time.Hour
	DefaultJWTTTL         time.Duration = 12 * time.Hour

	// MaxEnvelopeBytes caps a device request body or websocket message.
	MaxEnvelopeBytes int64 = 256 << 10
)
