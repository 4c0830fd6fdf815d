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
package cv

import (
	"context"
	"math"

	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/common/parallel"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/gorse-io/meeple/model/mf"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultFolds is the number of folds used by TrainAndTest.
const DefaultFolds = 10

// Scorer trains on train and returns the error on test.
type Scorer func(ctx context.Context, train, test *dataset.Dataset) (float64, error)

// RMSE computes the root mean square error between actual and predicted ratings.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, errors.NotValidf("empty ratings")
	}
	if len(actual) != len(predicted) {
		return 0, errors.NotValidf("%d ratings but %d predictions", len(actual), len(predicted))
	}
	temp := make([]float64, len(actual))
	floats.SubTo(temp, actual, predicted)
	floats.MulTo(temp, temp, temp)
	return math.Sqrt(stat.Mean(temp, nil)), nil
}

// CrossValidate splits data into k folds and scores each of them. Scores are returned
// in fold order. Folds run on up to jobs workers.
func CrossValidate(ctx context.Context, data *dataset.Dataset, k, jobs int, scorer Scorer) ([]float64, error) {
	folds, err := Split(data, k)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := make([]float64, len(folds))
	err = parallel.Parallel(ctx, len(folds), jobs, func(_, jobId int) error {
		fold := folds[jobId]
		score, err := scorer(ctx, fold.Train, fold.Test)
		if err != nil {
			return errors.Annotatef(err, "fold %d", fold.Index)
		}
		scores[jobId] = score
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}

// Train fits a fresh model on data.
func Train(data *dataset.Dataset, params model.Params) (*mf.MatrixFactorization, error) {
	m := mf.New(params)
	if _, err := m.Fit(data); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// TrainAndScore fits a fresh model on train and returns its RMSE on test.
func TrainAndScore(train, test *dataset.Dataset, params model.Params) (float64, error) {
	if test == nil || test.Len() == 0 {
		return 0, errors.NotValidf("empty test set")
	}
	m, err := Train(train, params)
	if err != nil {
		return 0, errors.Trace(err)
	}
	actual := lo.Map(test.Ratings(), func(r dataset.Rating, _ int) float64 { return r.Rating })
	predicted := m.PredictPairs(lo.Map(test.Ratings(), func(r dataset.Rating, _ int) mf.Pair {
		return mf.Pair{UserId: r.UserId, ItemId: r.ItemId}
	}))
	return RMSE(actual, predicted)
}

// Options configures TrainAndTest.
type Options struct {
	Folds  int
	Jobs   int
	Logger *zap.Logger
}

// TrainAndTest cross-validates matrix factorization with params on data and returns
// the RMSE of every fold.
func TrainAndTest(ctx context.Context, data *dataset.Dataset, params model.Params, opts Options) ([]float64, error) {
	folds := opts.Folds
	if folds == 0 {
		folds = DefaultFolds
	}
	logger := log.OrNop(opts.Logger)
	return CrossValidate(ctx, data, folds, opts.Jobs, func(ctx context.Context, train, test *dataset.Dataset) (float64, error) {
		score, err := TrainAndScore(train, test, params)
		if err != nil {
			return 0, err
		}
		logger.Debug("evaluate fold",
			zap.Int("n_train", train.Len()),
			zap.Int("n_test", test.Len()),
			zap.Float64("rmse", score))
		return score, nil
	})
}

// Summary aggregates fold scores.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	Margin float64 // half width of the 95% confidence interval of the mean
}

// Summarize computes the statistics of scores.
func Summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(scores, nil)
	margin := 0.0
	if len(scores) > 1 {
		margin = 1.96 * std / math.Sqrt(float64(len(scores)))
	}
	return Summary{
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
		Mean:   mean,
		Margin: margin,
	}
}
