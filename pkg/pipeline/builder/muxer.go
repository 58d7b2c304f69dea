// Copyright 2025 LiveKit, Inc.
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
	"fmt"
	"strings"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

// newMuxer creates the named element and rejects factories that do not advertise
// themselves as muxers, so a misconfigured output type fails during construction.
func newMuxer(g engine.Graph, factory string) (engine.Element, error) {
	mux, err := newElement(g, factory, RecordMuxerName)
	if err != nil {
		return nil, err
	}
	if klass := mux.Klass(); klass != "" && !strings.Contains(klass, "Muxer") {
		return nil, errors.ErrElementCreateFailed(factory, fmt.Errorf("%w: %s", errors.ErrNotAMuxer, klass))
	}
	return mux, nil
}
