package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Steam     SteamConfig     `yaml:"steam" mapstructure:"steam"`
	RAWG      RAWGConfig      `yaml:"rawg" mapstructure:"rawg"`
	IGDB      IGDBConfig      `yaml:"igdb" mapstructure:"igdb"`
	HLTB      HLTBConfig      `yaml:"hltb" mapstructure:"hltb"`
	Wikidata  WikidataConfig  `yaml:"wikidata" mapstructure:"wikidata"`
	Consensus ConsensusConfig `yaml:"consensus" mapstructure:"consensus"`
	Diagnose  DiagnoseConfig  `yaml:"diagnose" mapstructure:"diagnose"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Review    ReviewConfig    `yaml:"review" mapstructure:"review"`
	Tiers     TiersConfig     `yaml:"tiers" mapstructure:"tiers"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig locates the catalog CSV.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the provider response cache.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// SteamConfig holds Steam storefront settings. No key is needed.
type SteamConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RAWGConfig holds RAWG API settings.
type RAWGConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// IGDBConfig holds IGDB (Twitch) API credentials.
type IGDBConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Token    string `yaml:"token" mapstructure:"token"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// HLTBConfig holds HowLongToBeat settings.
type HLTBConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// WikidataConfig holds Wikidata API and SPARQL endpoints.
type WikidataConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	SPARQLURL string `yaml:"sparql_url" mapstructure:"sparql_url"`
}

// ConsensusConfig tunes cross-source agreement.
type ConsensusConfig struct {
	TitleThreshold int `yaml:"title_threshold" mapstructure:"title_threshold"`
	YearTolerance  int `yaml:"year_tolerance" mapstructure:"year_tolerance"`
	MinSources     int `yaml:"min_sources" mapstructure:"min_sources"`
}

// DiagnoseConfig configures the tagging pass.
type DiagnoseConfig struct {
	Sources     []string `yaml:"sources" mapstructure:"sources"`
	Parallelism int      `yaml:"parallelism" mapstructure:"parallelism"`
}

// ResolveConfig configures the mismatch resolver.
type ResolveConfig struct {
	AcceptScore         int `yaml:"accept_score" mapstructure:"accept_score"`
	AcceptYearTolerance int `yaml:"accept_year_tolerance" mapstructure:"accept_year_tolerance"`
}

// ReviewConfig configures the review export.
type ReviewConfig struct {
	MaxRows int `yaml:"max_rows" mapstructure:"max_rows"`
}

// TiersConfig locates the production-tier YAML.
type TiersConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the review HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.path", "catalog.csv")
	v.SetDefault("cache.path", "cache.db")
	v.SetDefault("cache.ttl_hours", 7*24)
	v.SetDefault("steam.base_url", "https://store.steampowered.com")
	v.SetDefault("rawg.base_url", "https://api.rawg.io")
	v.SetDefault("igdb.base_url", "https://api.igdb.com/v4")
	v.SetDefault("hltb.base_url", "https://howlongtobeat.com")
	v.SetDefault("wikidata.base_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("wikidata.sparql_url", "https://query.wikidata.org/sparql")
	v.SetDefault("consensus.title_threshold", 90)
	v.SetDefault("consensus.year_tolerance", 1)
	v.SetDefault("consensus.min_sources", 2)
	v.SetDefault("diagnose.sources", []string{"steam", "rawg", "igdb", "hltb", "wikidata"})
	v.SetDefault("diagnose.parallelism", 4)
	v.SetDefault("resolve.accept_score", 90)
	v.SetDefault("resolve.accept_year_tolerance", 1)
	v.SetDefault("review.max_rows", 200)
	v.SetDefault("tiers.path", "production_tiers.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for a given run mode. Modes: "tag",
// "resolve", "review", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Catalog.Path == "" {
		problems = append(problems, "catalog.path is required")
	}
	if c.Consensus.TitleThreshold < 0 || c.Consensus.TitleThreshold > 100 {
		problems = append(problems, "consensus.title_threshold must be between 0 and 100")
	}
	if c.Consensus.MinSources < 1 {
		problems = append(problems, "consensus.min_sources must be >= 1")
	}
	if c.Diagnose.Parallelism < 1 || c.Diagnose.Parallelism > 32 {
		problems = append(problems, "diagnose.parallelism must be between 1 and 32")
	}

	switch mode {
	case "tag", "resolve":
		for _, src := range c.Diagnose.Sources {
			switch src {
			case "rawg":
				if c.RAWG.Key == "" {
					problems = append(problems, "rawg.key is required when rawg is enabled")
				}
			case "igdb":
				if c.IGDB.ClientID == "" || c.IGDB.Token == "" {
					problems = append(problems, "igdb.client_id and igdb.token are required when igdb is enabled")
				}
			}
		}
		if mode == "resolve" && (c.Resolve.AcceptScore < 0 || c.Resolve.AcceptScore > 100) {
			problems = append(problems, "resolve.accept_score must be between 0 and 100")
		}
	case "review":
		if c.Review.MaxRows < 1 {
			problems = append(problems, "review.max_rows must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
