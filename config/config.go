package config

import (
	"PinguinGuard/models"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/glebarez/sqlite"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB
var FirebaseApp *firebase.App
var FirebaseAuth *auth.Client

type Config struct {
	Port string `envconfig:"PORT" default:"8000"`

	// postgres или sqlite
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBSSLMode  string `envconfig:"DB_SSLMODE"`
	DBTimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Almaty"`
	// пустой SQLITE_PATH означает базу в памяти
	SQLitePath string `envconfig:"SQLITE_PATH"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	FirebaseCredentialsPath string `envconfig:"FIREBASE_CREDENTIALS_PATH"`

	// 0 отключает фоновый обход: переходы все равно выполняются при обращении
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	MetricsEnabled bool          `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load читает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DBSSLMode == "" {
		// Render принимает только SSL-соединения
		if strings.Contains(cfg.DBHost, "render.com") {
			cfg.DBSSLMode = "require"
		} else {
			cfg.DBSSLMode = "disable"
		}
	}
	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.DBTimeZone)
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		log.Printf("Connecting to database: host=%s user=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "file::memory:?cache=shared"
		}
		log.Printf("Opening sqlite database %s", path)
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Successfully connected to database!")

	if err := db.AutoMigrate(
		&models.Parent{},
		&models.Child{},
		&models.Guardianship{},
		&models.ChangeProposal{},
		&models.ChildSettings{},
		&models.AuditEvent{},
		&models.BlockedAttemptRecord{},
		&models.Translation{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	DB = db
	return db, nil
}

// InitFirebase поднимает Firebase App и Auth. Без FIREBASE_CREDENTIALS_PATH
// сервер работает без push-уведомлений и без проверки ID-токенов Firebase.
func InitFirebase(cfg *Config) (*firebase.App, *auth.Client, error) {
	if cfg.FirebaseCredentialsPath == "" {
		log.Println("FIREBASE_CREDENTIALS_PATH is not set, Firebase is disabled")
		return nil, nil, nil
	}

	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("error getting Auth client: %w", err)
	}

	FirebaseApp = app
	FirebaseAuth = authClient
	return app, authClient, nil
}
