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
	"testing"

	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDataset creates 4 popular items rated highly and 1 item rated by one user.
func newTestDataset() *dataset.Dataset {
	var ratings []dataset.Rating
	for u := 0; u < 12; u++ {
		for i := 0; i < 4; i++ {
			ratings = append(ratings, dataset.Rating{
				UserId: fmt.Sprintf("u%d", u),
				ItemId: fmt.Sprintf("i%d", i),
				Rating: float64(5 + (u+i)%5),
			})
		}
	}
	ratings = append(ratings, dataset.Rating{UserId: "u0", ItemId: "rare", Rating: 3})
	return dataset.NewDataset(ratings)
}

func TestGrid(t *testing.T) {
	grid := Grid{MinRatings: []float64{5, 6}, MinPopularities: []int{1, 2, 3}, Factors: []int{2}}
	assert.Equal(t, 6, grid.NumCombinations())
	assert.Zero(t, Grid{}.NumCombinations())
}

func TestSweep(t *testing.T) {
	data := newTestDataset()
	var reported []Result
	s := New(Grid{
		MinRatings:      []float64{0, 9},
		MinPopularities: []int{1, 2},
		Factors:         []int{1, 2},
	}, Config{
		Folds:    4,
		Jobs:     2,
		Params:   model.Params{model.NEpochs: 5},
		OnResult: func(r Result) { reported = append(reported, r) },
	})
	assert.NotEmpty(t, s.RunId())
	results := s.Run(context.Background(), data)
	require.Len(t, results, 8)
	assert.Equal(t, results, reported)
	// grid order
	assert.Equal(t, Result{MinRating: 0, MinPopularity: 1, NFactors: 1}, pick(results[0]))
	assert.Equal(t, Result{MinRating: 0, MinPopularity: 1, NFactors: 2}, pick(results[1]))
	assert.Equal(t, Result{MinRating: 0, MinPopularity: 2, NFactors: 1}, pick(results[2]))
	assert.Equal(t, Result{MinRating: 9, MinPopularity: 2, NFactors: 2}, pick(results[7]))
	// filtering by item statistics
	assert.Equal(t, 49, results[0].NRatings)
	assert.Equal(t, 48, results[2].NRatings)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Len(t, r.Scores, 4)
		assert.LessOrEqual(t, r.Summary.Min, r.Summary.Mean)
		assert.LessOrEqual(t, r.Summary.Mean, r.Summary.Max)
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	data := newTestDataset()
	results := New(Grid{
		MinRatings:      []float64{11, 0},
		MinPopularities: []int{1},
		Factors:         []int{2},
	}, Config{Folds: 2, Params: model.Params{model.NEpochs: 2}}).Run(context.Background(), data)
	require.Len(t, results, 2)
	// nothing survives the filter of the first combination
	assert.True(t, dataset.IsInvalidInput(results[0].Err))
	assert.Zero(t, results[0].NRatings)
	assert.Contains(t, results[0].String(), "error=")
	assert.NoError(t, results[1].Err)
	assert.Contains(t, results[1].String(), "mean=")
}

func TestSweepCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := New(Grid{MinRatings: []float64{0}, MinPopularities: []int{1}, Factors: []int{1}}, Config{}).
		Run(ctx, newTestDataset())
	assert.Empty(t, results)
}

func TestTune(t *testing.T) {
	data := newTestDataset()
	result, err := Tune(context.Background(), data, Config{Folds: 3, Params: model.Params{model.NEpochs: 3}}, 4, 0)
	require.NoError(t, err)
	assert.Len(t, result.Scores, 4)
	assert.Len(t, result.Params, 4)
	for _, score := range result.Scores {
		assert.GreaterOrEqual(t, score, result.BestScore)
	}
	assert.Equal(t, result.Scores[result.BestIndex], result.BestScore)
	assert.Equal(t, 3, result.BestParams.GetInt(model.NEpochs, 0))
	assert.Positive(t, result.BestParams.GetInt(model.NFactors, 0))

	_, err = Tune(context.Background(), data, Config{}, 0, 0)
	assert.True(t, dataset.IsInvalidInput(err))
	_, err = Tune(context.Background(), dataset.NewDataset(nil), Config{}, 1, 0)
	assert.Error(t, err)
}

func pick(r Result) Result {
	return Result{MinRating: r.MinRating, MinPopularity: r.MinPopularity, NFactors: r.NFactors}
}
