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

package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/meeple/bgg"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPlays = []bgg.PlayedItem{
		{Id: "13", Name: "Catan", Plays: 3, New: true},
		{Id: "822", Name: "Carcassonne", Plays: 1, New: false},
		{Id: "2", Name: "Dune", Plays: 2, New: true},
		{Id: "30549", Name: "Pandemic", Plays: 1, New: true},
		{Id: "9", Name: "Azul", Plays: 1, New: true},
	}
	testCollection = []bgg.CollectionItem{
		{Id: "13", RatingText: "8", RatingColor: "#66ff66", Comment: "Nice", URL: "https://x/boardgame/13"},
		{Id: "822", RatingText: "6", RatingColor: "#ffff00", URL: "https://x/boardgame/822"},
		{Id: "30549", RatingText: "9", RatingColor: "#00cc00", URL: "https://x/boardgame/30549"},
		{Id: "2", RatingText: "", URL: "https://x/boardgame/2"},
	}
)

func TestBuild(t *testing.T) {
	report := Build(testPlays, testCollection)
	assert.Equal(t, []string{"30549", "13"}, ids(report.Rated))
	assert.Equal(t, []string{"9", "2"}, ids(report.Unrated))
	assert.Equal(t, []string{"30549"}, ids(report.Nocomment))
	assert.Equal(t, bgg.DefaultBaseURL+"/boardgame/9", report.Unrated[0].URL)
	assert.Equal(t, "https://x/boardgame/2", report.Unrated[1].URL)
	assert.Equal(t, Item{Id: "13", Name: "Catan", Plays: 3, RatingText: "8", RatingColor: "#66ff66",
		Comment: "Nice", URL: "https://x/boardgame/13"}, report.Rated[1])
}

type mockSource struct {
	thingsErr error
	since     time.Time
	requested []string
}

func (m *mockSource) DownloadPlays(_ context.Context, _ string, since time.Time) ([]bgg.PlayedItem, error) {
	m.since = since
	return testPlays, nil
}

func (m *mockSource) DownloadCollection(_ context.Context, _ string) ([]bgg.CollectionItem, error) {
	return testCollection, nil
}

func (m *mockSource) DownloadThings(_ context.Context, ids []string) ([]bgg.Thing, error) {
	m.requested = ids
	if m.thingsErr != nil {
		return nil, m.thingsErr
	}
	var things []bgg.Thing
	for _, id := range ids {
		things = append(things, bgg.Thing{Id: id, ImageId: "img" + id})
	}
	return things, nil
}

func TestGenerate(t *testing.T) {
	since := time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)
	source := &mockSource{}
	report, err := Generate(context.Background(), source, "alice", since, nil)
	require.NoError(t, err)
	assert.Equal(t, since, source.since)
	assert.Equal(t, []string{"30549", "13"}, source.requested)
	assert.Equal(t, "img30549", report.Rated[0].ImageId)
	assert.Equal(t, "img13", report.Rated[1].ImageId)
	assert.Equal(t, "img30549", report.Nocomment[0].ImageId)

	// thumbnails are optional
	report, err = Generate(context.Background(), &mockSource{thingsErr: errors.New("down")}, "alice", since, nil)
	require.NoError(t, err)
	assert.Equal(t, "", report.Rated[0].ImageId)
}

func TestRender(t *testing.T) {
	renderer, err := NewRenderer("")
	require.NoError(t, err)
	report := Build(testPlays, testCollection)
	report.Rated[1].ImageId = "123"
	var buf strings.Builder
	require.NoError(t, renderer.Render(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "[size=12][b][thing=13]Catan[/thing] - [COLOR=#00CC00]3 plays[/COLOR] - [BGCOLOR=#66ff66] 8 [/BGCOLOR][/b][/size]")
	assert.Contains(t, out, "[imageID=123 square inline]")
	assert.Contains(t, out, "Nice")
	assert.Less(t, strings.Index(out, "[thing=30549]"), strings.Index(out, "[thing=13]"))
	assert.Contains(t, out, "Unrated Items:\n* Azul ("+bgg.DefaultBaseURL+"/boardgame/9)\n* Dune (https://x/boardgame/2)")
	assert.Contains(t, out, "Nocomment Items:\n* Pandemic (https://x/boardgame/30549)")

	buf.Reset()
	require.NoError(t, renderer.Render(&buf, Report{}))
	assert.NotContains(t, buf.String(), "Unrated Items:")
	assert.NotContains(t, buf.String(), "Nocomment Items:")
}

func TestCustomTemplate(t *testing.T) {
	renderer, err := NewRenderer("{% for item in rated %}{{ item.Name }};{% endfor %}")
	require.NoError(t, err)
	var buf strings.Builder
	require.NoError(t, renderer.Render(&buf, Build(testPlays, testCollection)))
	assert.Equal(t, "Pandemic;Catan;", buf.String())

	_, err = NewRenderer("{% for item in rated %}")
	assert.Error(t, err)
}

func ids(items []Item) []string {
	var result []string
	for _, item := range items {
		result = append(result, item.Id)
	}
	return result
}
