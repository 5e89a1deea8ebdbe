package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name" env:"QUOTES_NAME" env-default:"quote-streamer"`
	Host      string           `yaml:"host" env:"QUOTES_HOST" env-default:"0.0.0.0"`
	Port      int              `yaml:"port" env:"QUOTES_PORT" env-default:"8000"`
	LogLevel  string           `yaml:"log_level" env:"QUOTES_LOG_LEVEL" env-default:"INFO"`
	GrpcHost  string           `yaml:"grpc_host" env:"QUOTES_GRPC_HOST" env-default:"0.0.0.0"`
	GrpcPort  int              `yaml:"grpc_port" env:"QUOTES_GRPC_PORT" env-default:"50051"`
	Transport MTransportConfig `yaml:"transport"`
	Generator MGeneratorConfig `yaml:"generator"`
	Liveness  MLivenessConfig  `yaml:"liveness"`
	Storage   MStorageConfig   `yaml:"storage"`
	Sinks     MSinksConfig     `yaml:"sinks"`
}

type MTransportConfig struct {
	BindHost        string `yaml:"bind_host" env:"QUOTES_BIND_HOST" env-default:"0.0.0.0"`
	CommandPort     int    `yaml:"command_port" env:"QUOTES_COMMAND_PORT" env-default:"8080"`
	DataPort        int    `yaml:"data_port" env:"QUOTES_DATA_PORT" env-default:"8081"`
	Codec           string `yaml:"codec" env:"QUOTES_CODEC" env-default:"json"`
	ReadTimeoutMs   int    `yaml:"read_timeout_ms" env:"QUOTES_READ_TIMEOUT_MS" env-default:"5000"`
	MaxCommandBytes int    `yaml:"max_command_bytes" env:"QUOTES_MAX_COMMAND_BYTES" env-default:"65536"`
}

type MGeneratorConfig struct {
	IntervalMs           int      `yaml:"interval_ms" env:"QUOTES_TICK_INTERVAL_MS" env-default:"500"`
	InitialPrice         float64  `yaml:"initial_price" env:"QUOTES_INITIAL_PRICE" env-default:"100"`
	MaxStep              float64  `yaml:"max_step" env:"QUOTES_MAX_STEP" env-default:"0.01"`
	PriceFloor           float64  `yaml:"price_floor" env:"QUOTES_PRICE_FLOOR" env-default:"0.01"`
	ChannelBuffer        int      `yaml:"channel_buffer" env:"QUOTES_CHANNEL_BUFFER" env-default:"64"`
	Symbols              []string `yaml:"symbols" env:"QUOTES_SYMBOLS" env-default:"AAPL,MSFT,TSLA,GOOGL"`
	LiquidSymbols        []string `yaml:"liquid_symbols" env:"QUOTES_LIQUID_SYMBOLS" env-default:"AAPL,MSFT,TSLA"`
	MarketMIC            string   `yaml:"market_mic" env:"QUOTES_MARKET_MIC" env-default:"xnys"`
	OffHoursVolumeFactor float64  `yaml:"off_hours_volume_factor" env:"QUOTES_OFF_HOURS_VOLUME_FACTOR" env-default:"1"`
}

type MLivenessConfig struct {
	TimeoutSeconds  int `yaml:"timeout_seconds" env:"QUOTES_LIVENESS_TIMEOUT_SECONDS" env-default:"5"`
	CheckIntervalMs int `yaml:"check_interval_ms" env:"QUOTES_LIVENESS_CHECK_INTERVAL_MS" env-default:"1000"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled" env:"QUOTES_STORAGE_ENABLED"`
	DBType             string `yaml:"db_type" env:"QUOTES_DB_TYPE" env-default:"sqlite"`
	DBPath             string `yaml:"db_path" env:"QUOTES_DB_PATH" env-default:"quotes.db"`
	DBConnectionString string `yaml:"db_connection_string" env:"QUOTES_DB_CONNECTION_STRING"`
}

type MSinksConfig struct {
	Redis MRedisSinkConfig `yaml:"redis"`
	Kafka MKafkaSinkConfig `yaml:"kafka"`
}

type MRedisSinkConfig struct {
	Enabled    bool   `yaml:"enabled" env:"QUOTES_REDIS_ENABLED"`
	Addr       string `yaml:"addr" env:"QUOTES_REDIS_ADDR" env-default:"localhost:6379"`
	Password   string `yaml:"password" env:"QUOTES_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"QUOTES_REDIS_DB"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"QUOTES_REDIS_TTL_SECONDS" env-default:"3600"`
}

type MKafkaSinkConfig struct {
	Enabled bool     `yaml:"enabled" env:"QUOTES_KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" env:"QUOTES_KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"QUOTES_KAFKA_TOPIC" env-default:"quotes"`
}

// GetLogLevel exposes the configured level to the logger.
func (c *MConfig) GetLogLevel() string {
	return c.LogLevel
}
