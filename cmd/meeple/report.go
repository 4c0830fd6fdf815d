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

package main

import (
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/meeple/report"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var newToMeCommand = &cobra.Command{
	Use:   "new-to-me",
	Short: "Print a report of the games played for the first time",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = conf.Report.User
		}
		if user == "" {
			return errors.NotValidf("empty user")
		}
		var since time.Time
		if s, _ := cmd.Flags().GetString("since"); s != "" {
			var err error
			if since, err = dateparse.ParseAny(s); err != nil {
				return errors.NewNotValid(err, "invalid date "+s)
			}
		}
		var source string
		if conf.Report.Template != "" {
			data, err := os.ReadFile(conf.Report.Template)
			if err != nil {
				return errors.Trace(err)
			}
			source = string(data)
		}
		renderer, err := report.NewRenderer(source)
		if err != nil {
			return errors.Trace(err)
		}
		r, err := report.Generate(cmd.Context(), newClient(), user, since, logger)
		if err != nil {
			return errors.Trace(err)
		}
		return renderer.Render(cmd.OutOrStdout(), r)
	},
}

func init() {
	rootCommand.AddCommand(newToMeCommand)
	newToMeCommand.Flags().String("user", "", "user of the report")
	newToMeCommand.Flags().String("since", "", "first day of plays, e.g. 2022-11-01")
}
