// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/robolink/lib/path"
)

// loadPathFile reads a path written as a YAML list of single-key
// steps, keyed by action kind:
//
//   - start_at: {pos: [0, 0], heading: 0}
//   - move_to: {pos: [2, 1]}
//   - turn_to: {heading: 1.57}
//   - move_rel: {rel: -0.5}
func loadPathFile(filename string) ([]path.Action, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	actions, err := parsePath(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return actions, nil
}

func parsePath(data []byte) ([]path.Action, error) {
	var steps []map[string]yaml.Node
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("path has no steps")
	}
	actions := make([]path.Action, 0, len(steps))
	for index, step := range steps {
		if len(step) != 1 {
			return nil, fmt.Errorf("step %d: want exactly one action, got %d", index, len(step))
		}
		for kind, node := range step {
			action, err := decodeStep(kind, &node)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", index, kind, err)
			}
			actions = append(actions, action)
		}
	}
	return actions, nil
}

func decodeStep(kind string, node *yaml.Node) (path.Action, error) {
	switch kind {
	case path.KindStartAt.String():
		return decodeYAML[path.StartAt](node)
	case path.KindMoveRel.String():
		return decodeYAML[path.MoveRel](node)
	case path.KindMoveRelAbs.String():
		return decodeYAML[path.MoveRelAbs](node)
	case path.KindMoveTo.String():
		return decodeYAML[path.MoveTo](node)
	case path.KindTurnRel.String():
		return decodeYAML[path.TurnRel](node)
	case path.KindTurnRelAbs.String():
		return decodeYAML[path.TurnRelAbs](node)
	case path.KindTurnTo.String():
		return decodeYAML[path.TurnTo](node)
	default:
		return nil, fmt.Errorf("%w: %q", path.ErrUnknownKind, kind)
	}
}

func decodeYAML[A path.Action](node *yaml.Node) (path.Action, error) {
	var action A
	if err := node.Decode(&action); err != nil {
		return nil, err
	}
	return action, nil
}
