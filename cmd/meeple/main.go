// Copyright 2025 gorse Project Authors
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

package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/bgg"
	"github.com/gorse-io/meeple/cmd/version"
	"github.com/gorse-io/meeple/config"
	"github.com/gorse-io/meeple/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	conf   *config.Config
)

var rootCommand = &cobra.Command{
	Use:   "meeple",
	Short: "Board game recommender trained on BoardGameGeek ratings",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		var err error
		logger, err = log.NewLogger(cmd.Flags(), debug)
		if err != nil {
			return errors.Trace(err)
		}
		// load config
		configPath, _ := cmd.Flags().GetString("config")
		conf, err = config.LoadConfig(configPath)
		if err != nil {
			return errors.Annotate(err, "failed to load config")
		}
		logger.Debug("load config", zap.String("config", configPath))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of meeple",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand)
}

func newClient() *bgg.Client {
	return bgg.NewClient(bgg.Options{
		BaseURL:         conf.BGG.BaseURL,
		HTTPClient:      &http.Client{Timeout: conf.BGG.Timeout},
		RequestsPerMin:  conf.BGG.RequestsPerMinute,
		MaxTries:        conf.BGG.MaxTries,
		InitialInterval: conf.BGG.InitialInterval,
		MaxInterval:     conf.BGG.MaxInterval,
		MaxElapsedTime:  conf.BGG.MaxElapsedTime,
		BatchSize:       conf.BGG.BatchSize,
		Logger:          logger,
	})
}

// loadShuffled loads the dataset and shuffles it with the configured seed.
func loadShuffled() (*dataset.Dataset, error) {
	data, err := dataset.Load(conf.Files.Dataset, logger)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return data.Shuffle(rand.New(rand.NewSource(conf.Train.Seed))), nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
