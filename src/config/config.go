// Package config loads settings from defaults, an optional YAML file and
// command line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir        string       `mapstructure:"data_dir"`
	BatchSize      int          `mapstructure:"batch_size"`
	CheckpointDir  string       `mapstructure:"checkpoint_dir"`
	ResultDir      string       `mapstructure:"result_dir"`
	Cutoff         float32      `mapstructure:"cutoff"`
	Labeler        string       `mapstructure:"labeler"`
	Connectivity   int          `mapstructure:"connectivity"`
	ResizeToSource bool         `mapstructure:"resize_to_source"`
	Report         bool         `mapstructure:"report"`
	LogLevel       string       `mapstructure:"log_level"`
	SentryDSN      string       `mapstructure:"sentry_dsn"`
	Model          ModelConfig  `mapstructure:"model"`
	Redis          RedisConfig  `mapstructure:"redis"`
	Worker         WorkerConfig `mapstructure:"worker"`
	Server         ServerConfig `mapstructure:"server"`
}

type ModelConfig struct {
	InputOp  string `mapstructure:"input_op"`
	ModeOp   string `mapstructure:"mode_op"`
	OutputOp string `mapstructure:"output_op"`
	Height   int    `mapstructure:"height"`
	Width    int    `mapstructure:"width"`
}

type RedisConfig struct {
	Address        string `mapstructure:"address"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type WorkerConfig struct {
	MaxWorkers int           `mapstructure:"max_workers"`
	QueueSize  int           `mapstructure:"queue_size"`
	ResultTTL  time.Duration `mapstructure:"result_ttl"`
}

type ServerConfig struct {
	Address   string `mapstructure:"address"`
	Release   bool   `mapstructure:"release"`
	UploadDir string `mapstructure:"upload_dir"`
}

func setDefaults(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	v.SetDefault("data_dir", "")
	v.SetDefault("batch_size", 32)
	v.SetDefault("checkpoint_dir", filepath.Join(cwd, "models"))
	v.SetDefault("result_dir", filepath.Join(cwd, "result"))
	v.SetDefault("cutoff", 0.5)
	v.SetDefault("labeler", "twopass")
	v.SetDefault("connectivity", 8)
	v.SetDefault("resize_to_source", false)
	v.SetDefault("report", false)
	v.SetDefault("log_level", "debug")
	v.SetDefault("sentry_dsn", "")

	v.SetDefault("model.input_op", "X")
	v.SetDefault("model.mode_op", "mode")
	v.SetDefault("model.output_op", "pred")
	v.SetDefault("model.height", 256)
	v.SetDefault("model.width", 256)

	v.SetDefault("redis.address", ":6379")
	v.SetDefault("redis.max_connections", 10)

	v.SetDefault("worker.max_workers", 2)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.result_ttl", time.Hour)

	v.SetDefault("server.address", ":8081")
	v.SetDefault("server.release", false)
	v.SetDefault("server.upload_dir", "../predictions/")
}

// flags maps command line flag names to config keys.
var flags = []struct {
	name  string
	key   string
	usage string
}{
	{"data_dir", "data_dir", "Data directory"},
	{"batch_size", "batch_size", "Batch size"},
	{"checkpoint_dir", "checkpoint_dir", "Directory holding the checkpoint state file and exported graphs"},
	{"result_dir", "result_dir", "Directory to write the submission file to"},
	{"cutoff", "cutoff", "Probability above which a pixel is foreground"},
	{"labeler", "labeler", "Connected component labeler (twopass, or opencv when built with -tags gocv)"},
	{"connectivity", "connectivity", "Pixel connectivity, 4 or 8"},
	{"resize_to_source", "resize_to_source", "Resize predicted masks back to the source image size"},
	{"report", "report", "Also write a components-per-image chart"},
	{"log-level", "log_level", "Log level"},
	{"sentry-dsn", "sentry_dsn", "Sentry DSN for error reports"},
	{"redis-address", "redis.address", "Address to the Redis server"},
	{"redis-max-connections", "redis.max_connections", "Max connections to Redis"},
	{"max-workers", "worker.max_workers", "The number of workers to start"},
	{"max-worker-queue-size", "worker.queue_size", "The size of job queue"},
	{"listen", "server.address", "Address the web api listens on"},
	{"release", "server.release", "Run in release mode"},
	{"predictions-dir", "server.upload_dir", "Location of the temporary saved images for predictions"},
}

// Load reads defaults and, if path is not empty, the YAML file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Parse builds the configuration for a command from its arguments. The
// -config flag names an optional YAML file; flags given explicitly win
// over the file.
func Parse(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")

	defaults := viper.New()
	setDefaults(defaults)
	for _, f := range flags {
		if b, isBool := defaults.Get(f.key).(bool); isBool {
			fs.Bool(f.name, b, f.usage)
			continue
		}
		fs.String(f.name, fmt.Sprint(defaults.Get(f.key)), f.usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	keys := make(map[string]string, len(flags))
	for _, f := range flags {
		keys[f.name] = f.key
	}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	return unmarshal(v)
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.Cutoff < 0 || c.Cutoff >= 1 {
		return fmt.Errorf("cutoff must be in [0,1), got %v", c.Cutoff)
	}
	if c.Connectivity != 4 && c.Connectivity != 8 {
		return fmt.Errorf("connectivity must be 4 or 8, got %d", c.Connectivity)
	}
	if c.CheckpointDir == "" {
		return errors.New("checkpoint_dir must not be empty")
	}
	if c.Model.Height < 1 || c.Model.Width < 1 {
		return fmt.Errorf("model input size must be positive, got %dx%d", c.Model.Height, c.Model.Width)
	}
	if c.Model.InputOp == "" || c.Model.OutputOp == "" {
		return errors.New("model.input_op and model.output_op must be set")
	}
	return nil
}

// ValidateEvaluation additionally requires the dataset and result paths.
func (c *Config) ValidateEvaluation() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.ResultDir == "" {
		return errors.New("result_dir must not be empty")
	}
	return nil
}
