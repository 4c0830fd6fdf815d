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

package bgg

import (
	"context"
	"encoding/xml"
	"net/url"
	"time"

	"github.com/araddon/dateparse"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// playsPageSize is the number of plays on a full page of the plays api.
const playsPageSize = 100

type playsXML struct {
	XMLName xml.Name  `xml:"plays"`
	Total   int       `xml:"total,attr"`
	Plays   []playXML `xml:"play"`
}

type playXML struct {
	Date     string `xml:"date,attr"`
	Quantity int    `xml:"quantity,attr"`
	Item     struct {
		Name     string `xml:"name,attr"`
		ObjectId string `xml:"objectid,attr"`
	} `xml:"item"`
	Players []struct {
		Username string `xml:"username,attr"`
		New      string `xml:"new,attr"`
	} `xml:"players>player"`
}

// PlayedItem aggregates the logged plays of an item.
type PlayedItem struct {
	Id         string
	Name       string
	Plays      int
	New        bool // the user marked a play of the item as new to them
	LastPlayed time.Time
}

// DownloadPlays downloads the plays logged by user since a date and aggregates them by
// item in order of first appearance.
func (c *Client) DownloadPlays(ctx context.Context, user string, since time.Time) ([]PlayedItem, error) {
	query := url.Values{}
	query.Set("username", user)
	if !since.IsZero() {
		query.Set("mindate", since.Format(time.DateOnly))
	}
	var items []PlayedItem
	index := make(map[string]int)
	for page := 1; ; page++ {
		body, err := c.get(ctx, "/xmlapi2/plays", pageQuery(query, page))
		if err != nil {
			return nil, errors.Trace(err)
		}
		var plays playsXML
		if err = xml.Unmarshal(body, &plays); err != nil {
			return nil, errors.Annotatef(err, "parse plays of %s", user)
		}
		for _, play := range plays.Plays {
			id := play.Item.ObjectId
			i, exist := index[id]
			if !exist {
				i = len(items)
				index[id] = i
				items = append(items, PlayedItem{Id: id, Name: play.Item.Name})
			}
			items[i].Plays++
			for _, player := range play.Players {
				if player.Username == user && player.New == "1" {
					items[i].New = true
				}
			}
			if date, err := dateparse.ParseAny(play.Date); err == nil && date.After(items[i].LastPlayed) {
				items[i].LastPlayed = date
			}
		}
		c.logger.Debug("download plays page",
			zap.String("user", user),
			zap.Int("page", page),
			zap.Int("n_plays", len(plays.Plays)))
		if len(plays.Plays) != playsPageSize {
			break
		}
	}
	return items, nil
}
