// Package modelmap implements the hybrid exact/reasoning/family/default
// model-mapping resolver (spec §4.7): a per-route ordered list of
// mappings rewrites a request's model identifier before the outbound
// adapter builds the upstream request.
package modelmap

import "github.com/haasonsaas/nexus-bridge/internal/adapter"

// MappingType is the precedence tier a Mapping entry applies at.
type MappingType string

const (
	MappingExact     MappingType = "exact"
	MappingReasoning MappingType = "reasoning"
	MappingFamily    MappingType = "family"
	MappingDefault   MappingType = "default"
)

// Mapping is one entry in a route's ordered model-mapping list. Neither
// config loading nor the resolver rejects duplicate (SourceModel, Type)
// entries; where several entries could apply, the first in list order
// wins.
type Mapping struct {
	SourceModel string // ignored for MappingReasoning/MappingDefault
	TargetModel string
	Type        MappingType
}

// Resolve rewrites sourceModel per the route's mapping list, applying the
// exact -> reasoning -> family -> default precedence. thinkingEnabled is
// ir.Request.Generation.Thinking.Enabled for the request being resolved.
// familyCatalog is the target dialect's family catalog (adapter.Adapter.
// FamilyCatalog()); callers resolving against a route whose outbound
// hasn't been chosen yet may pass nil, in which case family mapping never
// matches.
func Resolve(mappings []Mapping, sourceModel string, thinkingEnabled bool, familyCatalog []adapter.Family) string {
	var reasoningTarget, defaultTarget string
	haveReasoning, haveDefault := false, false
	familyTargets := map[string]string{}

	for _, m := range mappings {
		switch m.Type {
		case MappingExact:
			if m.SourceModel == sourceModel {
				return m.TargetModel
			}
		case MappingReasoning:
			if !haveReasoning {
				reasoningTarget = m.TargetModel
				haveReasoning = true
			}
		case MappingFamily:
			if _, ok := familyTargets[m.SourceModel]; !ok {
				familyTargets[m.SourceModel] = m.TargetModel
			}
		case MappingDefault:
			if !haveDefault {
				defaultTarget = m.TargetModel
				haveDefault = true
			}
		}
	}

	if thinkingEnabled && haveReasoning {
		return reasoningTarget
	}

	for _, fam := range familyCatalog {
		if !fam.Matches(sourceModel) {
			continue
		}
		if target, ok := familyTargets[fam.Name]; ok {
			return target
		}
		break // first-match-wins by catalog order, even with no mapping entry for it
	}

	if haveDefault {
		return defaultTarget
	}

	return sourceModel
}
