package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Catalog source kinds.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (SUPERNOVA_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"127.0.0.1:8080" usage:"Storefront listen address"`
	Catalog  CatalogConfig
	Cart     CartConfig
	Tax      TaxConfig
	Store    StoreConfig
	CORS     CORSConfig
	Graceful GracefulConfig
}

// CatalogConfig selects where products are loaded from.
type CatalogConfig struct {
	Source      string        `default:"embedded" usage:"Catalog source: embedded, file, http or postgres" flag:"catalog-source"`
	Path        string        `default:"db/seed/products.json" usage:"Catalog document path (.json or .json.gz)" flag:"catalog-path"`
	URL         string        `default:"" usage:"Catalog document URL" flag:"catalog-url"`
	DatabaseURL string        `default:"" usage:"PostgreSQL connection URL (or DATABASE_URL)" flag:"database-url"`
	LoadTimeout time.Duration `default:"10s" usage:"Catalog load timeout" flag:"catalog-timeout"`
	Fallback    bool          `default:"true" usage:"Use the built-in product list when loading fails" flag:"catalog-fallback"`
}

// CartConfig controls cart persistence.
type CartConfig struct {
	Path string `default:"" usage:"Cart slot file; empty keeps the cart in memory" flag:"cart-path"`
}

// TaxConfig lists the selectable tax rates.
type TaxConfig struct {
	Rates   []string `default:"0,0.13" usage:"Selectable tax rates as fractions"`
	Default string   `default:"0.13" usage:"Initially selected tax rate" flag:"tax-default"`
}

// StoreConfig is the store identity printed on receipts.
type StoreConfig struct {
	Name     string `default:"Supernova Store" usage:"Store name on receipts" flag:"store-name"`
	Footer   string `default:"Thank you for your purchase!" usage:"Receipt footer" flag:"store-footer"`
	PageSize int    `default:"15" usage:"Products per browse page" flag:"page-size"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"0s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SUPERNOVA",
		Files:     []string{"config.yaml", "/etc/supernova/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected catalog source is configured.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceEmbedded:
	case SourceFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog path is required for the file source")
		}
	case SourceHTTP:
		if c.Catalog.URL == "" {
			return errors.New("catalog URL is required for the http source")
		}
	case SourcePostgres:
		if c.Catalog.DatabaseURL == "" {
			return errors.New("database URL is required: set SUPERNOVA_CATALOG_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	return nil
}

// applyPlatformDefaults maps DATABASE_URL and PORT onto the
// SUPERNOVA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Catalog.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Catalog.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "127.0.0.1:8080" {
		c.Addr = "127.0.0.1:" + port
	}
}
