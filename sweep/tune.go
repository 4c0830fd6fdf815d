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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/cv"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/gorse-io/meeple/model/mf"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// TuneResult contains the return of hyper-parameter tuning.
type TuneResult struct {
	BestParams model.Params
	BestScore  float64
	BestIndex  int
	Scores     []float64
	Params     []model.Params
}

func (r *TuneResult) AddScore(params model.Params, score float64) {
	r.Scores = append(r.Scores, score)
	r.Params = append(r.Params, params.Copy())
	if len(r.Scores) == 1 || score < r.BestScore {
		r.BestScore = score
		r.BestParams = params.Copy()
		r.BestIndex = len(r.Params) - 1
	}
}

// Tune searches hyper-parameters with TPE, minimizing the mean cross-validated RMSE.
func Tune(ctx context.Context, data *dataset.Dataset, config Config, numTrials int, seed int64) (TuneResult, error) {
	if numTrials <= 0 {
		return TuneResult{}, errors.NotValidf("number of trials %d", numTrials)
	}
	logger := log.OrNop(config.Logger)
	study, err := goptuna.CreateStudy("meeple",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(seed))))
	if err != nil {
		return TuneResult{}, errors.Trace(err)
	}
	var result TuneResult
	estimator := mf.New(config.Params)
	err = study.Optimize(func(trial goptuna.Trial) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, errors.Trace(err)
		}
		params := config.Params.Overwrite(estimator.SuggestParams(trial))
		scores, err := cv.TrainAndTest(ctx, data, params, cv.Options{
			Folds:  config.Folds,
			Jobs:   config.Jobs,
			Logger: logger,
		})
		if err != nil {
			return 0, errors.Trace(err)
		}
		score := cv.Summarize(scores).Mean
		result.AddScore(params, score)
		logger.Info(fmt.Sprintf("tune (%v/%v)", len(result.Scores), numTrials),
			zap.String("params", params.ToString()),
			zap.Float64("mean_rmse", score))
		if config.OnResult != nil {
			config.OnResult(Result{
				NFactors: params.GetInt(model.NFactors, 0),
				NRatings: data.Len(),
				Scores:   scores,
				Summary:  cv.Summarize(scores),
			})
		}
		return score, nil
	}, numTrials)
	if err != nil {
		return result, errors.Trace(err)
	}
	if len(result.Scores) == 0 {
		return result, errors.NotFoundf("completed trial")
	}
	return result, nil
}
