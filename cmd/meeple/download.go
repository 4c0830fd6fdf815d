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
	"bufio"
	"os"
	"strings"

	"github.com/gorse-io/meeple/bgg"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/translate"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var downloadCommand = &cobra.Command{
	Use:   "download",
	Short: "Append the ratings of users read from stdin to the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadOrEmpty(conf.Files.Dataset)
		if err != nil {
			return errors.Trace(err)
		}
		client := newClient()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			user := strings.TrimSpace(scanner.Text())
			if user == "" {
				continue
			}
			ratings, err := client.DownloadRatings(cmd.Context(), user)
			if err != nil {
				return errors.Annotatef(err, "download ratings of %s", user)
			}
			logger.Info("download ratings", zap.String("user", user), zap.Int("n_ratings", len(ratings)))
			data = data.Concat(dataset.NewDataset(ratings))
			// save after every user so that an interrupted download keeps its progress
			deduplicated, _ := data.Deduplicate()
			if err = deduplicated.Save(conf.Files.Dataset); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(scanner.Err())
	},
}

var namesCommand = &cobra.Command{
	Use:   "names",
	Short: "Download the names of items in the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := dataset.Load(conf.Files.Dataset, logger)
		if err != nil {
			return errors.Trace(err)
		}
		names, err := translate.LoadNames(conf.Files.Names)
		if errors.Is(err, os.ErrNotExist) {
			names = make(translate.Names)
		} else if err != nil {
			return errors.Trace(err)
		}
		missing := names.Missing(data.Items())
		logger.Info("download names", zap.Int("n_missing", len(missing)))
		client := newClient()
		bar := progressbar.Default(int64(len(missing)), "Downloading names")
		for _, batch := range lo.Chunk(missing, conf.BGG.BatchSize) {
			things, err := client.DownloadThings(cmd.Context(), batch)
			if err != nil {
				return errors.Trace(err)
			}
			names.Merge(bgg.Names(things))
			if err = names.Save(conf.Files.Names); err != nil {
				return errors.Trace(err)
			}
			_ = bar.Add(len(batch))
		}
		_ = bar.Finish()
		return nil
	},
}

func init() {
	rootCommand.AddCommand(downloadCommand)
	rootCommand.AddCommand(namesCommand)
}

// loadOrEmpty loads a dataset. A missing file is an empty dataset.
func loadOrEmpty(path string) (*dataset.Dataset, error) {
	data, err := dataset.Load(path, logger)
	if errors.Is(err, os.ErrNotExist) {
		return dataset.NewDataset(nil), nil
	}
	return data, err
}
