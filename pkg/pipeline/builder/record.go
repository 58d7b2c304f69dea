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

package builder

import (
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/types"
)

const (
	RecordQueueName   = "record_queue"
	RecordConvertName = "record_convert"
	RecordEncoderName = "record_encoder"
	RecordParserName  = "record_parser"
	RecordMuxerName   = "record_muxer"
	RecordSinkName    = "record_sink"
)

func buildRecordBranch(g engine.Graph, p *config.PipelineConfig) (*Branch, error) {
	queue, err := buildQueue(g, RecordQueueName, false)
	if err != nil {
		return nil, err
	}
	convert, err := newElement(g, p.Elements.Converter, RecordConvertName)
	if err != nil {
		return nil, err
	}
	encoder, err := buildEncoder(g, p.Elements.Encoder, p.VideoBitrate)
	if err != nil {
		return nil, err
	}
	parser, err := newElement(g, "h264parse", RecordParserName)
	if err != nil {
		return nil, err
	}
	mux, err := buildMuxer(g, p.OutputType)
	if err != nil {
		return nil, err
	}

	sink, err := newElement(g, "filesink", RecordSinkName)
	if err != nil {
		return nil, err
	}
	if err = setProperty(sink, "location", p.Destination); err != nil {
		return nil, err
	}
	if err = setProperty(sink, "sync", false); err != nil {
		return nil, err
	}

	return &Branch{
		Name:     "record",
		Elements: []engine.Element{queue, convert, encoder, parser, mux, sink},
	}, nil
}

func buildMuxer(g engine.Graph, outputType types.OutputType) (engine.Element, error) {
	factory, ok := types.MuxerForOutputType[outputType]
	if !ok {
		return nil, errors.ErrInvalidInput("output type")
	}
	return newMuxer(g, factory)
}
