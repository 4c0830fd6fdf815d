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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCommand.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"version", "download", "names", "cv", "sweep", "tune", "recommend", "new-to-me"} {
		assert.True(t, names[name], name)
	}
}

func TestFlags(t *testing.T) {
	assert.NotNil(t, rootCommand.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCommand.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, recommendCommand.Flags().Lookup("user"))
	assert.NotNil(t, recommendCommand.Flags().Lookup("save"))
	assert.NotNil(t, recommendCommand.Flags().Lookup("load"))
	assert.NotNil(t, tuneCommand.Flags().Lookup("trials"))
}

func TestVersionCommand(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	versionCommand.SetOut(buf)
	versionCommand.Run(versionCommand, nil)
	assert.Contains(t, buf.String(), "Version:")
}
