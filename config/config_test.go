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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/meeple/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	require.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "n_factors = 8", "n_factors = 16", 1)
	text = strings.Replace(text, "max_tries = 0", "max_tries = 5", 1)
	text = strings.Replace(text, "user = \"\"", "user = \"alice\"", 1)
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(text)))
	config, err := unmarshal(v)
	require.NoError(t, err)

	// [files]
	assert.Equal(t, "dataset.json", config.Files.Dataset)
	assert.Equal(t, "item_id_to_name.json", config.Files.Names)
	// [bgg]
	assert.Equal(t, "https://boardgamegeek.com", config.BGG.BaseURL)
	assert.Equal(t, uint(5), config.BGG.MaxTries)
	assert.Equal(t, time.Second, config.BGG.InitialInterval)
	assert.Equal(t, 15*time.Minute, config.BGG.MaxElapsedTime)
	// [train]
	assert.Equal(t, 16, config.Train.NFactors)
	assert.Equal(t, 0.02, config.Train.Reg)
	assert.Equal(t, 10.0, config.Train.ClipHigh)
	// [sweep]
	assert.Equal(t, []float64{5, 6, 7, 8}, config.Sweep.MinRatings)
	assert.Equal(t, []int{2, 20, 80, 200, 400}, config.Sweep.Factors)
	// [recommend]
	assert.Equal(t, "alice", config.Recommend.User)
	assert.Equal(t, 50, config.Recommend.TopN)
}

func TestTemplateMatchesDefault(t *testing.T) {
	v := viper.New()
	v.SetConfigType("toml")
	data, err := os.ReadFile("config.toml.template")
	require.NoError(t, err)
	require.NoError(t, v.ReadConfig(strings.NewReader(string(data))))
	config, err := unmarshal(v)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestSetDefault(t *testing.T) {
	v := viper.New()
	setDefault(v)
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader("")))
	config, err := unmarshal(v)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

type environmentVariable struct {
	key   string
	value string
}

func TestBindEnv(t *testing.T) {
	variables := []environmentVariable{
		{"MEEPLE_FILES_DATASET", "<dataset>"},
		{"MEEPLE_BGG_REQUESTS_PER_MINUTE", "30"},
		{"MEEPLE_BGG_INITIAL_INTERVAL", "2s"},
		{"MEEPLE_TRAIN_JOBS", "4"},
		{"MEEPLE_TRAIN_LR", "0.05"},
		{"MEEPLE_SWEEP_FACTORS", "4,8"},
		{"MEEPLE_SWEEP_MIN_RATINGS", "6.5,7"},
		{"MEEPLE_RECOMMEND_USER", "alice"},
	}
	for _, variable := range variables {
		t.Setenv(variable.key, variable.value)
	}

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "<dataset>", config.Files.Dataset)
	assert.Equal(t, 30, config.BGG.RequestsPerMinute)
	assert.Equal(t, 2*time.Second, config.BGG.InitialInterval)
	assert.Equal(t, 4, config.Train.Jobs)
	assert.Equal(t, 0.05, config.Train.Lr)
	assert.Equal(t, []int{4, 8}, config.Sweep.Factors)
	assert.Equal(t, []float64{6.5, 7}, config.Sweep.MinRatings)
	assert.Equal(t, "alice", config.Recommend.User)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[train]\nn_epochs = 50\n[recommend]\ntop_n = 10\n"), 0644))
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, config.Train.NEpochs)
	assert.Equal(t, 10, config.Recommend.TopN)
	// defaults are kept
	assert.Equal(t, 8, config.Train.NFactors)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())

	config := GetDefaultConfig()
	config.Train.Folds = 0
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Sweep.Factors = []int{8, 0}
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Train.ClipLow = 11
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.BGG.BaseURL = "not a url"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[recommend]\nmin_rating = 12\n"), 0644))
	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestTrainParams(t *testing.T) {
	params := GetDefaultConfig().Train.Params()
	assert.Equal(t, 8, params.GetInt(model.NFactors, 0))
	assert.Equal(t, 0.01, params.GetFloat64(model.Lr, 0))
	assert.Equal(t, int64(0), params.GetInt64(model.RandomState, -1))
	assert.NoError(t, params.Validate())
}
