package config

import (
	"encoding/json"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres    Postgres
	Redis       Redis
	API         API
	Cache       Cache
	CSV         CSV
	GoogleDrive GoogleDrive
	Currency    Currency
	Portfolios  PortfolioMap `env:"PORTFOLIOS" envDefault:"{\"All\":[\"*\"],\"Dividend\":[\"AAA\",\"BBBB\",\"CCCCC\"],\"Main\":[\"DDDDD\",\"EEEEE\",\"AAA\"]}"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:"localhost"`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"investment"`
	Password        string `env:"PG_PASSWORD" envDefault:"postgres"`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"4"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	QuoteApi QuoteApi
}

type QuoteApi struct {
	Url string `env:"QUOTE_API_URL" envDefault:"https://query1.finance.yahoo.com"`
	// TickerSuffix is appended to every ticker before the lookup, so locally
	// entered tickers like EGIE3F resolve on the B3 exchange feed.
	TickerSuffix string `env:"QUOTE_API_TICKER_SUFFIX" envDefault:".SA"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"15m"`
}

type CSV struct {
	Dir string `env:"CSV_DIR" envDefault:"."`
}

type GoogleDrive struct {
	CredentialsFile string `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
}

// Currency holds the label pair used when rendering money fields.
// Only the suffix is used by the print sink.
type Currency struct {
	Prefix string `env:"CURRENCY_PREFIX" envDefault:"R$"`
	Suffix string `env:"CURRENCY_SUFFIX" envDefault:"reais"`
}

// PortfolioMap maps a portfolio name to its ticker set. The reserved entry
// ["*"] selects every stock present in the queried result set.
type PortfolioMap map[string][]string

func (p *PortfolioMap) UnmarshalText(text []byte) error {
	return json.Unmarshal(text, p)
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
