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
	"strconv"

	"github.com/gorse-io/meeple/cv"
	"github.com/gorse-io/meeple/sweep"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cvCommand = &cobra.Command{
	Use:   "cv",
	Short: "Cross-validate matrix factorization on the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadShuffled()
		if err != nil {
			return errors.Trace(err)
		}
		params := conf.Train.Params()
		scores, err := cv.TrainAndTest(cmd.Context(), data, params, cv.Options{
			Folds:  conf.Train.Folds,
			Jobs:   conf.Train.Jobs,
			Logger: logger,
		})
		if err != nil {
			return errors.Trace(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Fold", "RMSE"})
		for i, score := range scores {
			_ = table.Append([]string{strconv.Itoa(i + 1), fmt.Sprintf("%f", score)})
		}
		summary := cv.Summarize(scores)
		_ = table.Append([]string{"mean", fmt.Sprintf("%f ± %f", summary.Mean, summary.Margin)})
		return errors.Trace(table.Render())
	},
}

var sweepCommand = &cobra.Command{
	Use:   "sweep",
	Short: "Cross-validate every combination of minimum rating, minimum popularity and factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadShuffled()
		if err != nil {
			return errors.Trace(err)
		}
		s := sweep.New(conf.Sweep.Grid, sweep.Config{
			Folds:  conf.Train.Folds,
			Jobs:   conf.Train.Jobs,
			Params: conf.Train.Params(),
			Logger: logger,
			OnResult: func(result sweep.Result) {
				fmt.Fprintln(cmd.OutOrStdout(), result.String())
			},
		})
		logger.Info("start sweep",
			zap.String("run_id", s.RunId()),
			zap.Int("n_combinations", conf.Sweep.NumCombinations()))
		results := s.Run(cmd.Context(), data)
		failed := 0
		for _, result := range results {
			if result.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			logger.Warn("some combinations failed", zap.Int("n_failed", failed), zap.Int("n_total", len(results)))
		}
		return errors.Trace(cmd.Context().Err())
	},
}

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Search hyper-parameters by TPE",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadShuffled()
		if err != nil {
			return errors.Trace(err)
		}
		trials, _ := cmd.Flags().GetInt("trials")
		if trials <= 0 {
			trials = conf.Sweep.Trials
		}
		result, err := sweep.Tune(cmd.Context(), data, sweep.Config{
			Folds:  conf.Train.Folds,
			Jobs:   conf.Train.Jobs,
			Params: conf.Train.Params(),
			Logger: logger,
		}, trials, conf.Train.Seed)
		if err != nil {
			return errors.Trace(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"#", "RMSE", "Params"})
		for i := range result.Scores {
			_ = table.Append([]string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%f", result.Scores[i]),
				result.Params[i].ToString(),
			})
		}
		if err = table.Render(); err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "best: #%d RMSE=%f %s\n",
			result.BestIndex+1, result.BestScore, result.BestParams.ToString())
		return nil
	},
}

func init() {
	rootCommand.AddCommand(cvCommand)
	rootCommand.AddCommand(sweepCommand)
	rootCommand.AddCommand(tuneCommand)
	tuneCommand.Flags().Int("trials", 0, "number of trials (default from config)")
}
