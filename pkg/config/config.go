package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port string `mapstructure:"port"`
	// Backend 選擇訊息儲存: "mongo" 或 "firestore"
	Backend string `mapstructure:"backend"`

	MongoSQL  DatabaseConfig  `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Events    EventsConfig    `mapstructure:"events"`
	Feed      FeedConfig      `mapstructure:"feed"`
}

const (
	// BackendMongo messages in mongo, live feed over redis pub/sub
	BackendMongo = "mongo"
	// BackendFirestore messages and live feed on firestore snapshots
	BackendFirestore = "firestore"
)

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
	// Addr 沒有設定 sentinel 時使用單機連線
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	// PublicBaseURL 若為空則改用 presigned url
	PublicBaseURL string `mapstructure:"public_base_url"`

	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// FirestoreConfig definition firestore setting
type FirestoreConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// EventsConfig definition message event publisher
type EventsConfig struct {
	// Driver "kafka", "rabbitmq" or empty to disable
	Driver    string        `mapstructure:"driver"`
	Topic     string        `mapstructure:"topic"`
	Brokers   []string      `mapstructure:"brokers"`
	RabbitURL string        `mapstructure:"rabbit_url"`
	Retry     int           `mapstructure:"retry_count"`
	Interval  time.Duration `mapstructure:"retry_interval"`
}

// FeedConfig definition chat feed behaviour
type FeedConfig struct {
	PageSize      int           `mapstructure:"page_size"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	MaxMediaBytes int64         `mapstructure:"max_media_bytes"`
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	FFprobePath   string        `mapstructure:"ffprobe_path"`
}
