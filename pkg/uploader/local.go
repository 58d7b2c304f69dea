// Copyright 2024 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uploader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/types"
)

type localUploader struct {
	dir    string
	prefix string
}

func newLocalUploader(dir, prefix string) (*localUploader, error) {
	return &localUploader{dir: dir, prefix: prefix}, nil
}

func (u *localUploader) upload(localFilepath, storageFilepath string, _ types.OutputType) (string, int64, error) {
	storageFilepath = filepath.Join(u.dir, u.prefix, storageFilepath)

	stat, err := os.Stat(localFilepath)
	if err != nil {
		return "", 0, errors.ErrUploadFailed("local", err)
	}

	// already in place
	if same, _ := sameFile(localFilepath, storageFilepath); same {
		return storageFilepath, stat.Size(), nil
	}

	if err = os.MkdirAll(filepath.Dir(storageFilepath), 0755); err != nil {
		return "", 0, errors.ErrUploadFailed("local", err)
	}

	tmp, err := os.Open(localFilepath)
	if err != nil {
		return "", 0, errors.ErrUploadFailed("local", err)
	}

	f, err := os.Create(storageFilepath)
	if err != nil {
		_ = tmp.Close()
		return "", 0, errors.ErrUploadFailed("local", err)
	}

	_, err = io.Copy(f, tmp)
	_ = f.Close()
	_ = tmp.Close()
	if err != nil {
		return "", 0, errors.ErrUploadFailed("local", err)
	}

	return storageFilepath, stat.Size(), nil
}

func sameFile(a, b string) (bool, error) {
	sa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(sa, sb), nil
}
