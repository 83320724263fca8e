// Copyright 2025 The A2A Authors
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

package orchestrator

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// ArtifactFileIDKey is the key of the reference replacing a file part in [Result.Parts].
const ArtifactFileIDKey = "artifact-file-id"

func (r *Registry) appendParts(ctx context.Context, result *Result, parts a2a.ContentParts) error {
	for _, part := range parts {
		value, escalate, err := r.convertPart(ctx, part)
		if err != nil {
			return err
		}
		result.Parts = append(result.Parts, value)
		result.Escalate = result.Escalate || escalate
	}
	return nil
}

func (r *Registry) convertPart(ctx context.Context, part a2a.Part) (any, bool, error) {
	switch p := part.(type) {
	case a2a.TextPart:
		return p.Text, false, nil
	case a2a.DataPart:
		return p.Data, false, nil
	case a2a.FilePart:
		name := p.File.Name
		if name == "" {
			name = "artifact-" + a2a.NewMessageID()
		}
		if err := r.artifacts.Save(ctx, name, p.File); err != nil {
			return nil, false, fmt.Errorf("failed to save artifact %q: %w", name, err)
		}
		return map[string]any{ArtifactFileIDKey: name}, true, nil
	default:
		return fmt.Sprintf("Unknown type: %s", part.Type()), false, nil
	}
}
