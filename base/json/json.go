// Copyright 2022 gorse Project Authors
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

package json

import (
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/juju/errors"
)

// Marshal returns the JSON encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal parses the JSON-encoded data and stores the result
// in the value pointed to by v. If data is empty, Unmarshal clears
// contents in v.
func Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.Unmarshal(data, v)
}

// Decode reads the next JSON-encoded value from r.
func Decode(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

// ReadFile decodes a JSON file into v.
func ReadFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(Unmarshal(data, v), "decode %s", path)
}

// WriteFile encodes v into a JSON file. The file is replaced atomically by writing
// to a temporary file in the same directory first.
func WriteFile(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Trace(err)
	}
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(temp.Name(), path))
}
