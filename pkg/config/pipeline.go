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

package config

import (
	"github.com/livekit/protocol/utils"
	"github.com/livekit/webcam-recorder/pkg/types"
)

const sessionIDPrefix = "CR_"

// PipelineConfig is the immutable per-session view of the recorder config.
type PipelineConfig struct {
	*RecorderConfig

	SessionID   string
	Params      *CaptureParams
	Destination string
	OutputType  types.OutputType
}

func NewPipelineConfig(conf *RecorderConfig, params *CaptureParams, destination string) (*PipelineConfig, error) {
	if conf == nil {
		conf = DefaultRecorderConfig()
	} else {
		c := *conf
		c.applyDefaults()
		conf = &c
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateDestination(destination); err != nil {
		return nil, err
	}

	return &PipelineConfig{
		RecorderConfig: conf,
		SessionID:      utils.NewGuid(sessionIDPrefix),
		Params:         params.Clone(),
		Destination:    destination,
		OutputType:     types.GetOutputType(destination),
	}, nil
}
