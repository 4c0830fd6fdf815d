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
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorse-io/meeple/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// collectionPageSize is the number of rows on a full collection page.
const collectionPageSize = 300

// CollectionItem is a row of a user's rated collection.
type CollectionItem struct {
	Id          string
	Name        string
	RatingText  string // empty if unrated
	RatingColor string // background color of the rating badge
	Comment     string
	URL         string
}

// Rating parses the rating text. Unrated items have rating 0.
func (item CollectionItem) Rating() float64 {
	rating, err := strconv.ParseFloat(strings.TrimSpace(item.RatingText), 64)
	if err != nil {
		return 0
	}
	return rating
}

// DownloadCollection downloads every page of the rated board games of user.
func (c *Client) DownloadCollection(ctx context.Context, user string) ([]CollectionItem, error) {
	query := url.Values{}
	query.Set("rated", "1")
	query.Set("subtype", "boardgame")
	var items []CollectionItem
	for page := 1; ; page++ {
		body, err := c.get(ctx, "/collection/user/"+url.PathEscape(user), pageQuery(query, page))
		if err != nil {
			return nil, errors.Trace(err)
		}
		root, err := ParseHTML(bytes.NewReader(body))
		if err != nil {
			return nil, errors.Trace(err)
		}
		pageItems := c.parseCollection(root)
		items = append(items, pageItems...)
		c.logger.Debug("download collection page",
			zap.String("user", user),
			zap.Int("page", page),
			zap.Int("n_items", len(pageItems)))
		if len(root.Descendants(ByClass("collection_objectname"))) != collectionPageSize {
			break
		}
	}
	return items, nil
}

// DownloadRatings downloads the ratings of user. Unrated rows get rating 0.
func (c *Client) DownloadRatings(ctx context.Context, user string) ([]dataset.Rating, error) {
	items, err := c.DownloadCollection(ctx, user)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ratings := make([]dataset.Rating, 0, len(items))
	for _, item := range items {
		ratings = append(ratings, dataset.Rating{UserId: user, ItemId: item.Id, Rating: item.Rating()})
	}
	return ratings, nil
}

func (c *Client) parseCollection(root Node) []CollectionItem {
	var items []CollectionItem
	rows := root.Descendants(func(node Node) bool {
		return node.Name() == "tr" && strings.HasPrefix(node.Attr("id"), "row_")
	})
	for _, row := range rows {
		var item CollectionItem
		for _, td := range row.Select("td") {
			switch {
			case td.HasClass("collection_objectname"):
				link := td.First(ByClass("primary"))
				href := link.Attr("href")
				// /boardgame/{id}/{slug}
				if parts := strings.Split(href, "/"); len(parts) > 2 {
					item.Id = parts[2]
				}
				item.Name = strings.TrimSpace(link.Text())
				item.URL = c.URL(href)
			case td.HasClass("collection_rating"):
				item.RatingText = strings.TrimSpace(td.First(ByClass("ratingtext")).Text())
				if item.RatingText != "" {
					item.RatingColor = styleValue(td.First(ByClass("rating")).Attr("style"))
				}
			case td.HasClass("collection_comment"):
				comment := td.First(func(node Node) bool {
					return node.Name() == "div" && strings.HasPrefix(node.Attr("id"), "results_comment")
				})
				item.Comment = strings.TrimSpace(commentText(comment))
			}
		}
		if item.Id == "" {
			c.logger.Warn("skip collection row without item link", zap.String("row", row.Attr("id")))
			continue
		}
		items = append(items, item)
	}
	return items
}

// styleValue extracts the value of an inline style declaration like "background-color:#66ff66;".
func styleValue(style string) string {
	_, value, found := strings.Cut(style, ":")
	if !found {
		return ""
	}
	value, _, _ = strings.Cut(value, ";")
	return strings.TrimSpace(value)
}

// commentText returns the text of a comment with line breaks as newlines.
func commentText(node Node) string {
	var builder strings.Builder
	var walk func(Node)
	walk = func(node Node) {
		if node.n == nil {
			return
		}
		for child := range node.n.ChildNodes() {
			switch {
			case child.Type == html.ElementNode && child.Data == "br":
				builder.WriteString("\n")
			case child.Type == html.TextNode:
				builder.WriteString(child.Data)
			default:
				walk(Node{child})
			}
		}
	}
	walk(node)
	return builder.String()
}
