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

package stats

import (
	"io"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const summaryPrefix = namespace + "_" + subsystem + "_"

// WriteSummary writes the recorder's own metric families in text exposition format,
// skipping runtime and process collectors.
func (m *Monitor) WriteSummary(w io.Writer) error {
	if m == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range filterFamilies(families, summaryPrefix) {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func filterFamilies(families []*dto.MetricFamily, prefix string) []*dto.MetricFamily {
	filtered := make([]*dto.MetricFamily, 0, len(families))
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), prefix) {
			filtered = append(filtered, mf)
		}
	}
	return filtered
}
