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
	"testing"

	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSE(t *testing.T) {
	score, err := RMSE([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	score, err = RMSE([]float64{1, 2}, []float64{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2.5), score, 1e-9)
	assert.Greater(t, score, 0.0)

	_, err = RMSE(nil, nil)
	assert.True(t, dataset.IsInvalidInput(err))
	_, err = RMSE([]float64{1}, []float64{1, 2})
	assert.True(t, dataset.IsInvalidInput(err))
}

func TestCrossValidate(t *testing.T) {
	data := newSequenceDataset(50)
	scorer := func(_ context.Context, train, test *dataset.Dataset) (float64, error) {
		return test.Ratings()[0].Rating + float64(train.Len()), nil
	}
	serial, err := CrossValidate(context.Background(), data, 5, 1, scorer)
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 50, 49, 48, 47}, serial)
	concurrent, err := CrossValidate(context.Background(), data, 5, 4, scorer)
	require.NoError(t, err)
	assert.Equal(t, serial, concurrent)
}

func TestCrossValidateError(t *testing.T) {
	data := newSequenceDataset(20)
	_, err := CrossValidate(context.Background(), data, 4, 2, func(_ context.Context, _, test *dataset.Dataset) (float64, error) {
		if test.Ratings()[0].ItemId == "i10" {
			return 0, errors.NotValidf("fold")
		}
		return 0, nil
	})
	assert.True(t, dataset.IsInvalidInput(err))

	_, err = CrossValidate(context.Background(), dataset.NewDataset(nil), 2, 1, nil)
	assert.True(t, dataset.IsInvalidInput(err))
	_, err = CrossValidate(context.Background(), data, 0, 1, nil)
	assert.True(t, dataset.IsInvalidInput(err))
}

func TestTrainAndTest(t *testing.T) {
	data := dataset.NewDataset([]dataset.Rating{
		{UserId: "u1", ItemId: "a", Rating: 8},
		{UserId: "u1", ItemId: "b", Rating: 6},
		{UserId: "u2", ItemId: "a", Rating: 9},
		{UserId: "u2", ItemId: "b", Rating: 5},
	})
	scores, err := TrainAndTest(context.Background(), data, model.Params{model.NFactors: 2}, Options{Folds: 2})
	require.NoError(t, err)
	assert.Len(t, scores, 2)
	for _, score := range scores {
		assert.False(t, math.IsNaN(score))
		assert.False(t, math.IsInf(score, 0))
		assert.GreaterOrEqual(t, score, 0.0)
	}

	// default folds
	scores, err = TrainAndTest(context.Background(), newSequenceDataset(40), nil, Options{Jobs: 2})
	require.NoError(t, err)
	assert.Len(t, scores, DefaultFolds)

	_, err = TrainAndTest(context.Background(), dataset.NewDataset(nil), nil, Options{})
	assert.True(t, dataset.IsInvalidInput(err))
}

func TestTrainAndScore(t *testing.T) {
	train := dataset.NewDataset([]dataset.Rating{{UserId: "u", ItemId: "a", Rating: 6}})
	test := dataset.NewDataset([]dataset.Rating{{UserId: "v", ItemId: "b", Rating: 8}})
	// unseen ids are predicted with the training mean
	score, err := TrainAndScore(train, test, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, score, 1e-9)

	_, err = TrainAndScore(train, dataset.NewDataset(nil), nil)
	assert.True(t, dataset.IsInvalidInput(err))
	_, err = TrainAndScore(dataset.NewDataset(nil), test, nil)
	assert.True(t, dataset.IsInvalidInput(err))
}

func TestTrain(t *testing.T) {
	m, err := Train(dataset.NewDataset([]dataset.Rating{{UserId: "u", ItemId: "a", Rating: 6}}), nil)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, m.Predict("u", "x"), 1e-9)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]float64{1, 2, 3})
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 3.0, summary.Max)
	assert.Equal(t, 2.0, summary.Mean)
	assert.InDelta(t, 1.96/math.Sqrt(3), summary.Margin, 1e-9)
	assert.Equal(t, Summary{Min: 4, Max: 4, Mean: 4}, Summarize([]float64{4}))
	assert.Equal(t, Summary{}, Summarize(nil))
}
