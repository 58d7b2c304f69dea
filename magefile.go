// Copyright 2023 LiveKit, Inc.
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

//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/livekit/mageutil"
	"github.com/livekit/webcam-recorder/version"
)

const dotDir = "test/output"

func Build() error {
	fmt.Println("building webcam-recorder", version.Version)
	return mageutil.Run(context.Background(), "go build -o bin/webcam-recorder ./cmd/recorder")
}

func Test() error {
	return mageutil.Run(context.Background(), "go test -race ./pkg/...")
}

// Integration runs the tests that need a local GStreamer installation.
func Integration() error {
	defer Dotfiles()
	return mageutil.Run(context.Background(), "go test -race -tags integration ./pkg/...")
}

func Dotfiles() error {
	files, err := os.ReadDir(dotDir)
	if err != nil {
		return err
	}

	dots := make(map[string]bool)
	pngs := make(map[string]bool)
	for _, file := range files {
		name := file.Name()
		if strings.HasSuffix(name, ".dot") {
			dots[name[:len(name)-4]] = true
		} else if strings.HasSuffix(file.Name(), ".png") {
			pngs[name[:len(name)-4]] = true
		}
	}

	for name := range dots {
		if !pngs[name] {
			if err := mageutil.Run(context.Background(), fmt.Sprintf(
				"dot -Tpng %s/%s.dot -o %s/%s.png",
				dotDir, name, dotDir, name,
			)); err != nil {
				return err
			}
		}
	}

	return nil
}
