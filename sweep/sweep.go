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

package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/cv"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Grid contains candidates of the sweep. Combinations are visited with MinRatings as the
// outermost loop and Factors as the innermost.
type Grid struct {
	MinRatings      []float64 `mapstructure:"min_ratings" validate:"required,dive,gte=0,lte=10"`
	MinPopularities []int     `mapstructure:"min_popularities" validate:"required,dive,gte=0"`
	Factors         []int     `mapstructure:"factors" validate:"required,dive,gt=0"`
}

// NumCombinations returns the number of combinations in the grid.
func (grid Grid) NumCombinations() int {
	return len(grid.MinRatings) * len(grid.MinPopularities) * len(grid.Factors)
}

// Config configures cross-validation inside every combination.
type Config struct {
	Folds    int
	Jobs     int
	Params   model.Params // base hyper-parameters, NFactors is overwritten by the grid
	Logger   *zap.Logger
	OnResult func(Result)
}

// Result is the outcome of one combination.
type Result struct {
	MinRating     float64
	MinPopularity int
	NFactors      int
	NRatings      int
	Scores        []float64
	Summary       cv.Summary
	Err           error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("min_rating=%v filter=%d factor=%d error=%v", r.MinRating, r.MinPopularity, r.NFactors, r.Err)
	}
	return fmt.Sprintf("min_rating=%v filter=%d factor=%d [min=%f, max=%f, mean=%f]",
		r.MinRating, r.MinPopularity, r.NFactors, r.Summary.Min, r.Summary.Max, r.Summary.Mean)
}

// Sweep evaluates every combination of a grid by cross-validation.
type Sweep struct {
	grid   Grid
	config Config
	runId  string
	logger *zap.Logger
}

func New(grid Grid, config Config) *Sweep {
	runId := uuid.NewString()
	return &Sweep{
		grid:   grid,
		config: config,
		runId:  runId,
		logger: log.OrNop(config.Logger).With(zap.String("run_id", runId)),
	}
}

// RunId identifies the sweep in logs.
func (s *Sweep) RunId() string {
	return s.runId
}

// Run evaluates the grid on data in grid order. A failing combination records its error
// and the sweep goes on. Cancellation stops the sweep before the next combination.
func (s *Sweep) Run(ctx context.Context, data *dataset.Dataset) []Result {
	stats := data.ItemStats()
	results := make([]Result, 0, s.grid.NumCombinations())
	total := s.grid.NumCombinations()
	for _, minRating := range s.grid.MinRatings {
		for _, minPopularity := range s.grid.MinPopularities {
			filtered := data.Filter(func(r dataset.Rating) bool {
				stat := stats[r.ItemId]
				return stat.MaxRating >= minRating && stat.Count >= minPopularity
			})
			for _, nFactors := range s.grid.Factors {
				if ctx.Err() != nil {
					s.logger.Warn("sweep cancelled", zap.Int("n_done", len(results)), zap.Int("n_total", total))
					return results
				}
				result := Result{
					MinRating:     minRating,
					MinPopularity: minPopularity,
					NFactors:      nFactors,
					NRatings:      filtered.Len(),
				}
				params := s.config.Params.Overwrite(model.Params{model.NFactors: nFactors})
				result.Scores, result.Err = cv.TrainAndTest(ctx, filtered, params, cv.Options{
					Folds:  s.config.Folds,
					Jobs:   s.config.Jobs,
					Logger: s.logger,
				})
				if result.Err != nil {
					result.Err = errors.Annotatef(result.Err, "min_rating=%v filter=%d factor=%d",
						minRating, minPopularity, nFactors)
					s.logger.Error("failed to evaluate combination",
						zap.Float64("min_rating", minRating),
						zap.Int("min_popularity", minPopularity),
						zap.Int("n_factors", nFactors),
						zap.Error(result.Err))
				} else {
					result.Summary = cv.Summarize(result.Scores)
					s.logger.Info(fmt.Sprintf("sweep (%v/%v)", len(results)+1, total),
						zap.Float64("min_rating", minRating),
						zap.Int("min_popularity", minPopularity),
						zap.Int("n_factors", nFactors),
						zap.Int("n_ratings", result.NRatings),
						zap.Float64("mean_rmse", result.Summary.Mean))
				}
				results = append(results, result)
				if s.config.OnResult != nil {
					s.config.OnResult(result)
				}
			}
		}
	}
	return results
}
