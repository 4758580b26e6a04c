// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd005-classification R2.3 (dependency propagation);
//
//	docs/ARCHITECTURE § Classification Engine.
package classify

import (
	"fmt"

	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

// dependencyTier biases an unresolved file using the classifications of its
// graph neighbors from earlier tiers. Two signals, confidence capped at 0.6:
//
//   - a file imported predominantly by tests is a unit under test → source
//   - a file that only consumes data artifacts and supplies nothing → documentation
//
// The tier reads a frozen view of earlier results; files it classifies do
// not feed back into other files within the same run, which keeps the
// outcome independent of processing order.
func (e *Engine) dependencyTier(path string, graph *depgraph.Graph, classified map[string]types.Classification) (types.Classification, bool) {
	incoming := graph.Incoming(path)
	outgoing := graph.Outgoing(path)

	if len(incoming) > 0 {
		testImporters := 0
		importEdges := 0
		for _, edge := range incoming {
			if edge.Kind != types.EdgeImport {
				continue
			}
			importEdges++
			if c, ok := classified[edge.From]; ok && c.Category == types.CategoryTests {
				testImporters++
			}
		}
		if importEdges > 0 && testImporters*2 > importEdges {
			return types.Classification{
				Path:       path,
				Category:   types.CategorySource,
				Confidence: dependencyCap,
				Tier:       types.TierDependency,
				Reasoning:  fmt.Sprintf("imported by %d/%d test files", testImporters, importEdges),
			}, true
		}
	}

	if len(incoming) == 0 && len(outgoing) > 0 {
		dataTargets := 0
		for _, edge := range outgoing {
			if c, ok := classified[edge.To]; ok && c.Category == types.CategoryData {
				dataTargets++
			}
		}
		if dataTargets == len(outgoing) {
			return types.Classification{
				Path:       path,
				Category:   types.CategoryDocumentation,
				Confidence: 0.55,
				Tier:       types.TierDependency,
				Reasoning:  fmt.Sprintf("consumes %d data artifacts, supplies nothing", dataTargets),
			}, true
		}
	}

	return types.Classification{}, false
}
