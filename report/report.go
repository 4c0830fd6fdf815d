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
	"cmp"
	"context"
	"io"
	"slices"
	"time"

	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/bgg"
	"github.com/juju/errors"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultTemplate renders a report as BBCode for a forum post.
const DefaultTemplate = `{% for item in rated %}[size=12][b][thing={{ item.Id }}]{{ item.Name }}[/thing] - [COLOR=#00CC00]{{ item.Plays }} plays[/COLOR] - [BGCOLOR={{ item.RatingColor }}] {{ item.RatingText }} [/BGCOLOR][/b][/size]
[imageID={{ item.ImageId }} square inline]

{{ item.Comment }}

{% endfor %}{% if unrated %}Unrated Items:
{% for item in unrated %}* {{ item.Name }} ({{ item.URL }})
{% endfor %}{% endif %}{% if nocomment %}Nocomment Items:
{% for item in nocomment %}* {{ item.Name }} ({{ item.URL }})
{% endfor %}{% endif %}`

// Item is an item played for the first time.
type Item struct {
	Id          string
	Name        string
	Plays       int
	RatingText  string
	RatingColor string
	Comment     string
	URL         string
	ImageId     string
}

func (item Item) rating() float64 {
	return bgg.CollectionItem{RatingText: item.RatingText}.Rating()
}

// Report lists the items new to a user.
type Report struct {
	Rated     []Item // sorted by descending rating
	Unrated   []Item // sorted by name
	Nocomment []Item // rated items without comment, sorted by name
}

// Build merges plays with collection data. Only items marked as new are reported.
func Build(plays []bgg.PlayedItem, collection []bgg.CollectionItem) Report {
	byId := lo.KeyBy(collection, func(item bgg.CollectionItem) string { return item.Id })
	var report Report
	for _, play := range plays {
		if !play.New {
			continue
		}
		item := Item{Id: play.Id, Name: play.Name, Plays: play.Plays, URL: bgg.DefaultBaseURL + "/boardgame/" + play.Id}
		if owned, ok := byId[play.Id]; ok {
			item.RatingText = owned.RatingText
			item.RatingColor = owned.RatingColor
			item.Comment = owned.Comment
			item.URL = owned.URL
		}
		if item.RatingText == "" {
			report.Unrated = append(report.Unrated, item)
		} else {
			report.Rated = append(report.Rated, item)
		}
	}
	slices.SortStableFunc(report.Rated, func(a, b Item) int {
		return cmp.Or(cmp.Compare(b.rating(), a.rating()), cmp.Compare(a.Name, b.Name))
	})
	byName := func(a, b Item) int { return cmp.Compare(a.Name, b.Name) }
	slices.SortStableFunc(report.Unrated, byName)
	report.Nocomment = lo.Filter(report.Rated, func(item Item, _ int) bool { return item.Comment == "" })
	slices.SortStableFunc(report.Nocomment, byName)
	return report
}

// Source provides the data of a report.
type Source interface {
	DownloadPlays(ctx context.Context, user string, since time.Time) ([]bgg.PlayedItem, error)
	DownloadCollection(ctx context.Context, user string) ([]bgg.CollectionItem, error)
	DownloadThings(ctx context.Context, ids []string) ([]bgg.Thing, error)
}

// Generate downloads the plays of user since a date and builds the report. Thumbnails
// are only fetched for rated items. A failure to fetch thumbnails leaves them empty.
func Generate(ctx context.Context, source Source, user string, since time.Time, logger *zap.Logger) (Report, error) {
	logger = log.OrNop(logger)
	plays, err := source.DownloadPlays(ctx, user, since)
	if err != nil {
		return Report{}, errors.Trace(err)
	}
	collection, err := source.DownloadCollection(ctx, user)
	if err != nil {
		return Report{}, errors.Trace(err)
	}
	report := Build(plays, collection)
	if len(report.Rated) > 0 {
		things, err := source.DownloadThings(ctx, lo.Map(report.Rated, func(item Item, _ int) string { return item.Id }))
		if err != nil {
			logger.Warn("failed to download thumbnails", zap.Error(err))
		} else {
			images := lo.SliceToMap(things, func(thing bgg.Thing) (string, string) { return thing.Id, thing.ImageId })
			for i := range report.Rated {
				report.Rated[i].ImageId = images[report.Rated[i].Id]
			}
			for i := range report.Nocomment {
				report.Nocomment[i].ImageId = images[report.Nocomment[i].Id]
			}
		}
	}
	logger.Info("generate new-to-me report",
		zap.String("user", user),
		zap.Time("since", since),
		zap.Int("n_rated", len(report.Rated)),
		zap.Int("n_unrated", len(report.Unrated)))
	return report, nil
}

// Renderer renders reports with a template.
type Renderer struct {
	template *exec.Template
}

// NewRenderer parses a template. An empty source selects DefaultTemplate.
func NewRenderer(source string) (*Renderer, error) {
	if source == "" {
		source = DefaultTemplate
	}
	template, err := gonja.FromString(source)
	if err != nil {
		return nil, errors.Annotate(err, "parse report template")
	}
	return &Renderer{template: template}, nil
}

// Render writes the report to w.
func (r *Renderer) Render(w io.Writer, report Report) error {
	ctx := exec.NewContext(map[string]any{
		"rated":     report.Rated,
		"unrated":   report.Unrated,
		"nocomment": report.Nocomment,
	})
	return errors.Trace(r.template.Execute(w, ctx))
}
