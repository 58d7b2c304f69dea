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

import "runtime"

const (
	ElementAutoVideoSrc  = "autovideosrc"
	ElementAutoVideoSink = "autovideosink"
	ElementVideoConvert  = "videoconvert"
	ElementX264Enc       = "x264enc"
	ElementVTEncH264     = "vtenc_h264"
	ElementMFH264Enc     = "mfh264enc"
)

// defaultEncoder picks the platform's usual h264 encoder.
func defaultEncoder() string {
	switch runtime.GOOS {
	case "darwin":
		return ElementVTEncH264
	case "windows":
		return ElementMFH264Enc
	default:
		return ElementX264Enc
	}
}

func (e *ElementConfig) applyDefaults() {
	if e.Source == "" {
		e.Source = ElementAutoVideoSrc
	}
	if e.PreviewSink == "" {
		e.PreviewSink = ElementAutoVideoSink
	}
	if e.Converter == "" {
		e.Converter = ElementVideoConvert
	}
	if e.Encoder == "" {
		e.Encoder = defaultEncoder()
	}
}
