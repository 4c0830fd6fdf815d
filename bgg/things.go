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
	"path"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type thingsXML struct {
	XMLName xml.Name `xml:"items"`
	Items   []struct {
		Id        string `xml:"id,attr"`
		Type      string `xml:"type,attr"`
		Thumbnail string `xml:"thumbnail"`
		Names     []struct {
			Type  string `xml:"type,attr"`
			Value string `xml:"value,attr"`
		} `xml:"name"`
	} `xml:"item"`
}

// Thing is the metadata of an item.
type Thing struct {
	Id      string
	Type    string
	Name    string // primary name
	ImageId string // id of the thumbnail image
}

// DownloadThings downloads the metadata of items in batches.
func (c *Client) DownloadThings(ctx context.Context, ids []string) ([]Thing, error) {
	var things []Thing
	for _, batch := range lo.Chunk(ids, c.options.BatchSize) {
		query := url.Values{}
		query.Set("id", strings.Join(batch, ","))
		body, err := c.get(ctx, "/xmlapi2/thing", query)
		if err != nil {
			return nil, errors.Trace(err)
		}
		var parsed thingsXML
		if err = xml.Unmarshal(body, &parsed); err != nil {
			return nil, errors.Annotate(err, "parse things")
		}
		for _, item := range parsed.Items {
			thing := Thing{Id: item.Id, Type: item.Type, ImageId: imageId(item.Thumbnail)}
			for _, name := range item.Names {
				if name.Type == "primary" {
					thing.Name = name.Value
					break
				}
			}
			things = append(things, thing)
		}
		c.logger.Debug("download things", zap.Int("n_requested", len(batch)), zap.Int("n_things", len(parsed.Items)))
	}
	return things, nil
}

// Names indexes the primary names of things by id.
func Names(things []Thing) map[string]string {
	return lo.SliceToMap(things, func(thing Thing) (string, string) {
		return thing.Id, thing.Name
	})
}

// imageId converts a thumbnail url like ".../pic2419375.jpg" to "2419375".
func imageId(thumbnail string) string {
	thumbnail = strings.TrimSpace(thumbnail)
	if thumbnail == "" {
		return ""
	}
	base := path.Base(thumbnail)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.Replace(base, "pic", "", 1)
}
