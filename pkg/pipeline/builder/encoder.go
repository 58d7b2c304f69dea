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

package builder

import (
	"github.com/livekit/webcam-recorder/pkg/engine"
)

type encoderProfile struct {
	bitrateProperty string
	bitrateDivisor  int // bits per second per property unit
	args            map[string]string
	props           map[string]interface{}
}

var defaultEncoderProfile = encoderProfile{
	bitrateProperty: "bitrate",
	bitrateDivisor:  1000,
}

var encoderProfiles = map[string]encoderProfile{
	"x264enc": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1000,
		args: map[string]string{
			"speed-preset": "veryfast",
			"tune":         "zerolatency",
		},
	},
	"vtenc_h264": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1000,
		props: map[string]interface{}{
			"realtime": true,
		},
	},
	"nvh264enc": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1000,
	},
	"vaapih264enc": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1000,
	},
	"mfh264enc": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1000,
	},
	"openh264enc": {
		bitrateProperty: "bitrate",
		bitrateDivisor:  1,
	},
}

func getEncoderProfile(factory string) encoderProfile {
	if profile, ok := encoderProfiles[factory]; ok {
		return profile
	}
	return defaultEncoderProfile
}

// EncoderBitrate converts a bitrate in bits per second to the unit the factory expects.
func EncoderBitrate(factory string, bitsPerSecond int) uint {
	profile := getEncoderProfile(factory)
	return uint(bitsPerSecond / profile.bitrateDivisor)
}

func buildEncoder(g engine.Graph, factory string, bitsPerSecond int) (engine.Element, error) {
	encoder, err := newElement(g, factory, RecordEncoderName)
	if err != nil {
		return nil, err
	}

	profile := getEncoderProfile(factory)
	if err = setProperty(encoder, profile.bitrateProperty, EncoderBitrate(factory, bitsPerSecond)); err != nil {
		return nil, err
	}
	for name, value := range profile.props {
		if err = setProperty(encoder, name, value); err != nil {
			return nil, err
		}
	}
	for name, value := range profile.args {
		encoder.SetArg(name, value)
	}
	return encoder, nil
}
