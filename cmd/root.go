package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/recommend"
)

const (
	app = "resume-matcher"

	outputJSON = "json"
	outputText = "text"
)

type Config struct {
	Output      string             `mapstructure:"output" validate:"oneof=json text"`
	Embedding   *EmbeddingConfig   `mapstructure:"embedding" validate:"required"`
	Similarity  *SimilarityConfig  `mapstructure:"similarity" validate:"required"`
	VectorStore *VectorStoreConfig `mapstructure:"vector-store" validate:"required"`
	Analysis    *AnalysisConfig    `mapstructure:"analysis" validate:"required"`
	Rank        *RankConfig        `mapstructure:"rank"`
}

type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=cohere gemini openai"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api-key" json:"-"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	BaseURL           string        `mapstructure:"base-url" validate:"omitempty,url"`
	Dimensions        int           `mapstructure:"dimensions" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries        int           `mapstructure:"max-retries" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second" validate:"gte=0"`
	CacheSize         int           `mapstructure:"cache-size" validate:"gte=0"`
	MaxLogLength      int           `mapstructure:"max-log-length" validate:"gte=0"`
}

type SimilarityConfig struct {
	Mode            string `mapstructure:"mode" validate:"oneof=direct indexed"`
	Collection      string `mapstructure:"collection"`
	ResetCollection bool   `mapstructure:"reset-collection"`
	SearchLimit     int    `mapstructure:"search-limit" validate:"gte=1"`
}

type VectorStoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory pgvector"`
	DSN    string `mapstructure:"dsn" json:"-" validate:"required_if=Driver pgvector"`
}

type AnalysisConfig struct {
	EmbedSource        string   `mapstructure:"embed-source" validate:"oneof=keywords text"`
	RecommendThreshold *float64 `mapstructure:"recommend-threshold" validate:"omitempty,gte=-1,lte=1"`
	TechnicalTerms     []string `mapstructure:"technical-terms"`
}

type RankConfig struct {
	MinimumScore *float64 `mapstructure:"minimum-score" validate:"omitempty,gte=-1,lte=1"`
	ExcludeFile  string   `mapstructure:"exclude-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "resume-matcher scores resumes against a job description and explains the gaps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command. A failure is reported once as a structured payload.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		renderError(os.Stdout, os.Stderr, viper.GetString("output"), err)
	}
	return err
}

func init() {
	setDefaults()

	bindEnv("vector-store.dsn", "VECTOR_STORE_DSN")
	bindEnv("embedding.provider", "EMBEDDING_PROVIDER")
	bindEnv("embedding.api-key-file", "EMBEDDING_API_KEY_FILE")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("output", "o", outputJSON, "result format: json or text")
	rootCmd.PersistentFlags().String("provider", "", "embedding provider: cohere, gemini or openai")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("embedding.provider", rootCmd.PersistentFlags().Lookup("provider"))
}

func setDefaults() {
	viper.SetDefault("output", outputJSON)
	viper.SetDefault("embedding.provider", "cohere")
	viper.SetDefault("embedding.timeout", 30*time.Second)
	viper.SetDefault("embedding.max-retries", 2)
	viper.SetDefault("embedding.cache-size", 256)
	viper.SetDefault("embedding.max-log-length", 200)
	viper.SetDefault("similarity.mode", "direct")
	viper.SetDefault("similarity.collection", "resume_collection_name")
	viper.SetDefault("similarity.reset-collection", true)
	viper.SetDefault("similarity.search-limit", 30)
	viper.SetDefault("vector-store.driver", "memory")
	viper.SetDefault("analysis.embed-source", "keywords")
	viper.SetDefault("analysis.recommend-threshold", recommend.DefaultThreshold)
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

func initConfig() {
	// Credentials may live in a .env file next to the config.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, matcherr.NewConfigurationError("config", fmt.Sprintf("parsing config: %v", err))
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config == nil {
		return matcherr.NewConfigurationError("config", "config is required")
	}

	if err := validator.New().Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return matcherr.NewConfigurationError(first.Namespace(),
				fmt.Sprintf("invalid config value %s: failed on %q", first.Namespace(), first.Tag()))
		}
		return matcherr.NewConfigurationError("config", err.Error())
	}

	return nil
}
