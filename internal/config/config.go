package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ObjectStorageLocal = "local"
	ObjectStorageS3    = "s3"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTUserSecret string `env:"JWT_SECRET"`
	// StoreDriver postgres или memory. memory для локального запуска без базы, данные теряются при рестарте.
	StoreDriver string `env:"STORE_DRIVER"`

	DBMaxConns  int32    `env:"DB_MAX_CONNS"   envDefault:"10"`
	BcryptCost  int      `env:"BCRYPT_COST"    envDefault:"10"`
	AdminEmails []string `env:"ADMIN_EMAILS"   envSeparator:","`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"       envDefault:"0"`
	CartTTL       time.Duration `env:"CART_TTL"       envDefault:"168h"`
	CartIdleTTL   time.Duration `env:"CART_IDLE_TTL"  envDefault:"30m"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC"   envDefault:"order-events"`

	ObjectStorage string `env:"OBJECT_STORAGE" envDefault:"local"`
	StorageDir    string `env:"STORAGE_DIR"    envDefault:"uploads"`
	StorageURL    string `env:"STORAGE_URL"    envDefault:"http://localhost:8080/files"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION"      envDefault:"us-east-1"`
	S3Key         string `env:"S3_KEY"`
	S3Secret      string `env:"S3_SECRET"`
	S3Endpoint    string `env:"S3_ENDPOINT"`
	S3PublicURL   string `env:"S3_PUBLIC_URL"`
	UploadWorkers int    `env:"UPLOAD_WORKERS" envDefault:"4"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"     envDefault:"PrintAhead <noreply@printahead.in>"`
	MailWorkers  uint   `env:"MAIL_WORKERS"  envDefault:"2"`

	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiModel   string        `env:"GEMINI_MODEL"    envDefault:"gemini-1.5-flash"`
	GeminiTimeout time.Duration `env:"GEMINI_TIMEOUT"  envDefault:"15s"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// LoadConfig собирает конфиг из .env (если есть), переменных окружения и флагов args.
// Переменные окружения важнее флагов.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}

	var flagsConfig Config
	envConfig, envParseErr := env.ParseAs[Config]()
	if envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := loadFlags(&flagsConfig, args); err != nil {
		return nil, err
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config, args []string) error {
	flags := flag.NewFlagSet("printahead", flag.ContinueOnError)
	flags.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flags.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flags.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flags.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT secret key")
	flags.StringVar(&flagConfig.StoreDriver, "s", StoreDriverPostgres, "Store driver: postgres or memory")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// mergeConfig строковые поля из флагов подставляются, если переменная окружения пустая.
// Остальные поля задаются только окружением.
func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := *envConfig
	conf.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.JWTUserSecret = defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret)
	conf.StoreDriver = defaultIfBlank(envConfig.StoreDriver, flagsConfig.StoreDriver)
	return &conf
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("database DSN is not set")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.JWTUserSecret == "" {
		return errors.New("jwt secret is not set")
	}
	switch c.ObjectStorage {
	case ObjectStorageLocal:
	case ObjectStorageS3:
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is not set")
		}
	default:
		return fmt.Errorf("unknown object storage %q", c.ObjectStorage)
	}
	return nil
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
