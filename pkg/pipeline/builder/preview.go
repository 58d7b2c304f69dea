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
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
)

const (
	PreviewQueueName   = "preview_queue"
	PreviewConvertName = "preview_convert"
	PreviewSinkName    = "preview_sink"
)

// the preview queue leaks so a slow display never stalls the record branch
func buildPreviewBranch(g engine.Graph, p *config.PipelineConfig) (*Branch, error) {
	queue, err := buildQueue(g, PreviewQueueName, true)
	if err != nil {
		return nil, err
	}
	convert, err := newElement(g, p.Elements.Converter, PreviewConvertName)
	if err != nil {
		return nil, err
	}
	sink, err := newElement(g, p.Elements.PreviewSink, PreviewSinkName)
	if err != nil {
		return nil, err
	}

	return &Branch{
		Name:     "preview",
		Elements: []engine.Element{queue, convert, sink},
	}, nil
}
