// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd006-transformation-planner R4 (risk assessment);
//
//	docs/ARCHITECTURE § Transformation Planner.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

// entryPointNames are basenames conventionally used as build or runtime
// entry points. Moving one changes how the project is invoked.
var entryPointNames = map[string]bool{
	"main.py": true, "app.py": true, "manage.py": true, "setup.py": true,
	"pyproject.toml": true, "index.js": true, "server.js": true,
	"Makefile": true, "makefile": true, "Dockerfile": true,
	"Jenkinsfile": true, ".gitlab-ci.yml": true,
}

// assessRisks flags hazards in the plan. Risks never block planning; they
// are surfaced for review and force an explicit checkpoint at execution.
//
// Implements: prd006-transformation-planner R4.1-R4.3.
func assessRisks(graph *depgraph.Graph, moves map[string]string, cfg Config, plan *types.TransformationPlan) {
	srcs := make([]string, 0, len(moves))
	for src := range moves {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)

	rewritten := 0
	for _, e := range graph.Edges {
		_, fromMoved := moves[e.From]
		_, toMoved := moves[e.To]
		if fromMoved || toMoved {
			rewritten++
		}
	}

	for _, src := range srcs {
		if entryPointNames[pathBase(src)] || strings.HasPrefix(src, ".github/workflows/") {
			plan.Risks = append(plan.Risks, types.Risk{
				Kind:   types.RiskEntryPointMove,
				Path:   src,
				Detail: fmt.Sprintf("%s is a build/CI entry point; invocations must follow it to %s", src, moves[src]),
			})
		}

		// Incoming config-path references stand in for out-of-repo
		// consumers: path literals in config files are the surface external
		// tooling reads. More of those than intra-repo imports means the
		// move leaks beyond the repo.
		configIn, importIn := 0, 0
		for _, e := range graph.Incoming(src) {
			switch e.Kind {
			case types.EdgeConfigPath:
				configIn++
			case types.EdgeImport:
				importIn++
			}
		}
		if configIn > 0 && configIn > importIn {
			plan.Risks = append(plan.Risks, types.Risk{
				Kind:   types.RiskExternalExposed,
				Path:   src,
				Detail: fmt.Sprintf("%d config-path consumers vs %d imports", configIn, importIn),
			})
		}
	}

	if total := len(graph.Edges); total > 0 {
		if frac := float64(rewritten) / float64(total); frac > cfg.BulkRewriteFraction {
			plan.Risks = append(plan.Risks, types.Risk{
				Kind:   types.RiskBulkRewrite,
				Detail: fmt.Sprintf("%d of %d references rewritten (%.0f%%)", rewritten, total, frac*100),
			})
		}
	}
}
