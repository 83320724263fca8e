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
	"strings"

	"github.com/a2aproject/a2a-delegate/a2a"
)

const emptySummary = "No remote agents currently registered."

func buildSummary(cards []*a2a.AgentCard) string {
	if len(cards) == 0 {
		return emptySummary
	}

	descriptions := make([]string, 0, len(cards))
	for _, card := range cards {
		var sb strings.Builder
		sb.WriteString("Agent Name: " + card.Name + "\n")
		sb.WriteString("  Description: " + card.Description + "\n")
		if len(card.Skills) == 0 {
			sb.WriteString("  Skills: Not specified.\n")
		} else {
			sb.WriteString("  Skills:\n")
			for _, skill := range card.Skills {
				sb.WriteString("    - Skill: " + orDefault(skill.Name, "Unnamed Skill") + "\n")
				sb.WriteString("      Description: " + orDefault(skill.Description, "No description") + "\n")
			}
		}
		descriptions = append(descriptions, sb.String())
	}
	return strings.Join(descriptions, "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
