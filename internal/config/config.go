package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds every knob the pipeline needs, constructed once at process
// start and injected into the components that use it. There is no hidden
// process-wide state beyond the logger.
type Config struct {
	Models       ModelsConfig
	OpenAIAPIKey string `yaml:"openai_api_key"`
	DatabaseFile string `yaml:"database_file"`
	PromptDir    string `yaml:"prompt_dir"`
	Workflow     WorkflowConfig
	Logger       LoggerConfig
}

// ModelsConfig names the model used at each pipeline stage.
type ModelsConfig struct {
	Generation string
	Extraction string
	Evaluation string
	Shortening string
	Ranking    string
	Embedding  string
}

// WorkflowConfig bounds the generation state machine.
type WorkflowConfig struct {
	MaxAttempt   int
	CandidateNum int
	QualityFirst bool
	Concurrency  int
}

type LoggerConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	viper.AutomaticEnv()

	viper.SetDefault("models.generation", "gpt-4o")
	viper.SetDefault("models.extraction", "gpt-4o-mini")
	viper.SetDefault("models.evaluation", "gpt-4o")
	viper.SetDefault("models.shortening", "gpt-4o")
	viper.SetDefault("models.ranking", "gpt-4o")
	viper.SetDefault("models.embedding", "text-embedding-ada-002")
	viper.SetDefault("database_file", "mcq_metadata.db")
	viper.SetDefault("prompt_dir", "prompts")
	viper.SetDefault("workflow.max_attempt", 3)
	viper.SetDefault("workflow.candidate_num", 5)
	viper.SetDefault("workflow.quality_first", false)
	viper.SetDefault("workflow.concurrency", 4)
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("logger.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Defaults plus environment variables are enough to run
	}

	config := &Config{
		Models: ModelsConfig{
			Generation: viper.GetString("models.generation"),
			Extraction: viper.GetString("models.extraction"),
			Evaluation: viper.GetString("models.evaluation"),
			Shortening: viper.GetString("models.shortening"),
			Ranking:    viper.GetString("models.ranking"),
			Embedding:  viper.GetString("models.embedding"),
		},
		OpenAIAPIKey: viper.GetString("openai_api_key"),
		DatabaseFile: viper.GetString("database_file"),
		PromptDir:    viper.GetString("prompt_dir"),
		Workflow: WorkflowConfig{
			MaxAttempt:   viper.GetInt("workflow.max_attempt"),
			CandidateNum: viper.GetInt("workflow.candidate_num"),
			QualityFirst: viper.GetBool("workflow.quality_first"),
			Concurrency:  viper.GetInt("workflow.concurrency"),
		},
		Logger: LoggerConfig{
			Env:   viper.GetString("logger.env"),
			Level: viper.GetString("logger.level"),
		},
	}

	// Override with environment variables if set
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAIAPIKey = apiKey
	}
	if dbFile := os.Getenv("DATABASE_FILE"); dbFile != "" {
		config.DatabaseFile = dbFile
	}
	if promptDir := os.Getenv("PROMPT_DIR"); promptDir != "" {
		config.PromptDir = promptDir
	}

	return config, nil
}
