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
	"fmt"
	"os"

	"github.com/gorse-io/meeple/cv"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/gorse-io/meeple/model/mf"
	"github.com/gorse-io/meeple/translate"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend games for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = conf.Recommend.User
		}
		if user == "" {
			return errors.NotValidf("empty user")
		}
		var (
			m   *mf.MatrixFactorization
			err error
		)
		if load, _ := cmd.Flags().GetBool("load"); load {
			m, err = loadModel(conf.Files.Model)
		} else {
			m, err = trainModel()
		}
		if err != nil {
			return errors.Trace(err)
		}
		if save, _ := cmd.Flags().GetBool("save"); save {
			if err = saveModel(conf.Files.Model, m); err != nil {
				return errors.Trace(err)
			}
		}
		names, err := translate.LoadNames(conf.Files.Names)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("names not found", zap.String("path", conf.Files.Names))
			names = make(translate.Names)
		} else if err != nil {
			return errors.Trace(err)
		}
		recs := names.Translate(m.UserRecs(user, conf.Recommend.TopN))
		if len(recs) == 0 {
			logger.Warn("no recommendation", zap.String("user", user))
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Item", "Name", "Score"})
		for _, rec := range recs {
			_ = table.Append([]string{rec.ItemId, rec.Name, fmt.Sprintf("%.3f", rec.Score)})
		}
		return errors.Trace(table.Render())
	},
}

// trainModel trains on popular and well rated items.
func trainModel() (*mf.MatrixFactorization, error) {
	data, err := loadShuffled()
	if err != nil {
		return nil, errors.Trace(err)
	}
	stats := data.ItemStats()
	filtered := data.Filter(func(r dataset.Rating) bool {
		stat := stats[r.ItemId]
		return stat.MaxRating >= conf.Recommend.MinRating && stat.Count >= conf.Recommend.MinPopularity
	})
	logger.Info("train model",
		zap.Int("n_ratings", filtered.Len()),
		zap.Int("n_users", len(filtered.Users())),
		zap.Int("n_items", len(filtered.Items())),
		zap.Int("n_filtered", data.Len()-filtered.Len()))
	params := conf.Train.Params().Overwrite(model.Params{model.NFactors: conf.Recommend.NFactors})
	return cv.Train(filtered, params)
}

func saveModel(path string, m *mf.MatrixFactorization) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	w := bufio.NewWriter(f)
	if err = m.Marshal(w); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	logger.Info("save model", zap.String("path", path))
	return errors.Trace(f.Close())
}

func loadModel(path string) (*mf.MatrixFactorization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	m := mf.New(nil)
	if err = m.Unmarshal(bufio.NewReader(f)); err != nil {
		return nil, errors.Annotatef(err, "load model %s", path)
	}
	return m, nil
}

func init() {
	rootCommand.AddCommand(recommendCommand)
	recommendCommand.Flags().String("user", "", "user to recommend for")
	recommendCommand.Flags().Bool("save", false, "save the trained model")
	recommendCommand.Flags().Bool("load", false, "load a saved model instead of training")
}
