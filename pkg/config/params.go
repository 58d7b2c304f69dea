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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/types"
)

type Fraction struct {
	Num int32 `yaml:"num"`
	Den int32 `yaml:"den"`
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// CaptureParams describes the requested camera stream. A session clones the
// params it is started with, so callers may reuse or modify theirs afterwards.
type CaptureParams struct {
	Width       int32    `yaml:"width"`
	Height      int32    `yaml:"height"`
	Framerate   Fraction `yaml:"framerate"`
	PixelFormat string   `yaml:"pixel_format"` // checked by the engine during negotiation
}

func (p *CaptureParams) Validate() error {
	switch {
	case p == nil:
		return errors.ErrInvalidInput("capture params")
	case p.Width <= 0:
		return errors.ErrInvalidInput("width")
	case p.Height <= 0:
		return errors.ErrInvalidInput("height")
	case p.Framerate.Num <= 0:
		return errors.ErrInvalidInput("framerate numerator")
	case p.Framerate.Den <= 0:
		return errors.ErrInvalidInput("framerate denominator")
	}
	return nil
}

func (p *CaptureParams) Clone() *CaptureParams {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *CaptureParams) Caps() engine.Caps {
	var sb strings.Builder
	sb.WriteString(string(types.MimeTypeRawVideo))
	fmt.Fprintf(&sb, ",width=%d,height=%d,framerate=%s", p.Width, p.Height, p.Framerate)
	if p.PixelFormat != "" {
		fmt.Fprintf(&sb, ",format=%s", p.PixelFormat)
	}
	return engine.Caps(sb.String())
}

func (p *CaptureParams) String() string {
	return fmt.Sprintf("%dx%d@%s %s", p.Width, p.Height, p.Framerate, p.PixelFormat)
}

// ValidateDestination checks that the destination's directory exists.
// The file itself is created by the file sink when the record branch activates.
func ValidateDestination(destination string) error {
	if destination == "" {
		return errors.ErrNoDestination
	}
	if strings.HasSuffix(destination, string(os.PathSeparator)) {
		return errors.ErrInvalidDestination(destination, errors.New("path is a directory"))
	}

	dir := filepath.Dir(destination)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.ErrInvalidDestination(destination, err)
	}
	if !info.IsDir() {
		return errors.ErrInvalidDestination(destination, fmt.Errorf("%s is not a directory", dir))
	}
	if info, err = os.Stat(destination); err == nil && info.IsDir() {
		return errors.ErrInvalidDestination(destination, errors.New("path is a directory"))
	}
	return nil
}
