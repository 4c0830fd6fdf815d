// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/meeple/model"
	"github.com/gorse-io/meeple/sweep"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const envPrefix = "MEEPLE"

// Config is the configuration for meeple.
type Config struct {
	Files     FilesConfig     `mapstructure:"files"`
	BGG       BGGConfig       `mapstructure:"bgg"`
	Train     TrainConfig     `mapstructure:"train"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Report    ReportConfig    `mapstructure:"report"`
}

// FilesConfig is the configuration for local files.
type FilesConfig struct {
	Dataset string `mapstructure:"dataset" validate:"required"`
	Names   string `mapstructure:"names" validate:"required"`
	Model   string `mapstructure:"model" validate:"required"`
}

// BGGConfig is the configuration for the BoardGameGeek client.
type BGGConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	MaxTries          uint          `mapstructure:"max_tries"`
	InitialInterval   time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval       time.Duration `mapstructure:"max_interval" validate:"gtfield=InitialInterval"`
	MaxElapsedTime    time.Duration `mapstructure:"max_elapsed_time" validate:"gt=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BatchSize         int           `mapstructure:"batch_size" validate:"gt=0"`
}

// TrainConfig is the configuration for model training and evaluation.
type TrainConfig struct {
	Folds      int     `mapstructure:"folds" validate:"gt=0"`
	Jobs       int     `mapstructure:"jobs" validate:"gt=0"`
	Seed       int64   `mapstructure:"seed"`
	NFactors   int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs    int     `mapstructure:"n_epochs" validate:"gt=0"`
	Lr         float64 `mapstructure:"lr" validate:"gt=0"`
	Reg        float64 `mapstructure:"reg" validate:"gte=0"`
	InitMean   float64 `mapstructure:"init_mean"`
	InitStdDev float64 `mapstructure:"init_std" validate:"gte=0"`
	ClipLow    float64 `mapstructure:"clip_low"`
	ClipHigh   float64 `mapstructure:"clip_high" validate:"gtefield=ClipLow"`
}

// Params converts the configuration to hyper-parameters.
func (config *TrainConfig) Params() model.Params {
	return model.Params{
		model.NFactors:    config.NFactors,
		model.NEpochs:     config.NEpochs,
		model.Lr:          config.Lr,
		model.Reg:         config.Reg,
		model.InitMean:    config.InitMean,
		model.InitStdDev:  config.InitStdDev,
		model.RandomState: config.Seed,
		model.ClipLow:     config.ClipLow,
		model.ClipHigh:    config.ClipHigh,
	}
}

// SweepConfig is the configuration for parameter sweeps.
type SweepConfig struct {
	sweep.Grid `mapstructure:",squash"`
	Trials     int `mapstructure:"trials" validate:"gt=0"`
}

// RecommendConfig is the configuration for recommendation.
type RecommendConfig struct {
	User          string  `mapstructure:"user"`
	MinRating     float64 `mapstructure:"min_rating" validate:"gte=0,lte=10"`
	MinPopularity int     `mapstructure:"min_popularity" validate:"gte=0"`
	NFactors      int     `mapstructure:"n_factors" validate:"gt=0"`
	TopN          int     `mapstructure:"top_n" validate:"gt=0"`
}

// ReportConfig is the configuration for the new-to-me report.
type ReportConfig struct {
	User     string `mapstructure:"user"`
	Template string `mapstructure:"template"` // path of a template file, empty for the builtin one
}

func GetDefaultConfig() *Config {
	return &Config{
		Files: FilesConfig{
			Dataset: "dataset.json",
			Names:   "item_id_to_name.json",
			Model:   "model.bin",
		},
		BGG: BGGConfig{
			BaseURL:           "https://boardgamegeek.com",
			RequestsPerMinute: 60,
			InitialInterval:   time.Second,
			MaxInterval:       time.Minute,
			MaxElapsedTime:    15 * time.Minute,
			Timeout:           time.Minute,
			BatchSize:         20,
		},
		Train: TrainConfig{
			Folds:      10,
			Jobs:       1,
			NFactors:   8,
			NEpochs:    20,
			Lr:         0.01,
			Reg:        0.02,
			InitStdDev: 0.1,
			ClipHigh:   10,
		},
		Sweep: SweepConfig{
			Grid: sweep.Grid{
				MinRatings:      []float64{5, 6, 7, 8},
				MinPopularities: []int{2, 5, 10, 15, 20, 25, 30},
				Factors:         []int{2, 20, 80, 200, 400},
			},
			Trials: 20,
		},
		Recommend: RecommendConfig{
			MinRating:     7,
			MinPopularity: 10,
			NFactors:      20,
			TopN:          50,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [files]
	v.SetDefault("files.dataset", defaultConfig.Files.Dataset)
	v.SetDefault("files.names", defaultConfig.Files.Names)
	v.SetDefault("files.model", defaultConfig.Files.Model)
	// [bgg]
	v.SetDefault("bgg.base_url", defaultConfig.BGG.BaseURL)
	v.SetDefault("bgg.requests_per_minute", defaultConfig.BGG.RequestsPerMinute)
	v.SetDefault("bgg.max_tries", defaultConfig.BGG.MaxTries)
	v.SetDefault("bgg.initial_interval", defaultConfig.BGG.InitialInterval)
	v.SetDefault("bgg.max_interval", defaultConfig.BGG.MaxInterval)
	v.SetDefault("bgg.max_elapsed_time", defaultConfig.BGG.MaxElapsedTime)
	v.SetDefault("bgg.timeout", defaultConfig.BGG.Timeout)
	v.SetDefault("bgg.batch_size", defaultConfig.BGG.BatchSize)
	// [train]
	v.SetDefault("train.folds", defaultConfig.Train.Folds)
	v.SetDefault("train.jobs", defaultConfig.Train.Jobs)
	v.SetDefault("train.seed", defaultConfig.Train.Seed)
	v.SetDefault("train.n_factors", defaultConfig.Train.NFactors)
	v.SetDefault("train.n_epochs", defaultConfig.Train.NEpochs)
	v.SetDefault("train.lr", defaultConfig.Train.Lr)
	v.SetDefault("train.reg", defaultConfig.Train.Reg)
	v.SetDefault("train.init_mean", defaultConfig.Train.InitMean)
	v.SetDefault("train.init_std", defaultConfig.Train.InitStdDev)
	v.SetDefault("train.clip_low", defaultConfig.Train.ClipLow)
	v.SetDefault("train.clip_high", defaultConfig.Train.ClipHigh)
	// [sweep]
	v.SetDefault("sweep.min_ratings", defaultConfig.Sweep.MinRatings)
	v.SetDefault("sweep.min_popularities", defaultConfig.Sweep.MinPopularities)
	v.SetDefault("sweep.factors", defaultConfig.Sweep.Factors)
	v.SetDefault("sweep.trials", defaultConfig.Sweep.Trials)
	// [recommend]
	v.SetDefault("recommend.user", defaultConfig.Recommend.User)
	v.SetDefault("recommend.min_rating", defaultConfig.Recommend.MinRating)
	v.SetDefault("recommend.min_popularity", defaultConfig.Recommend.MinPopularity)
	v.SetDefault("recommend.n_factors", defaultConfig.Recommend.NFactors)
	v.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	// [report]
	v.SetDefault("report.user", defaultConfig.Report.User)
	v.SetDefault("report.template", defaultConfig.Report.Template)
}

// LoadConfig loads configuration from a toml file and MEEPLE_* environment variables.
// An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration.
func (config *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
