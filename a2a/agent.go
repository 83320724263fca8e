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

package a2a

// AgentCapabilities define optional capabilities supported by an agent.
type AgentCapabilities struct {
	// Streaming indicates if the agent supports streaming responses.
	Streaming bool `json:"streaming,omitempty" yaml:"streaming,omitempty"`

	// PushNotifications indicates if the agent supports sending push notifications for asynchronous task updates.
	PushNotifications bool `json:"pushNotifications,omitempty" yaml:"pushNotifications,omitempty"`

	// StateTransitionHistory indicates if the agent exposes the status change history for tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty" yaml:"stateTransitionHistory,omitempty"`
}

// AgentCard is the discovery document of an agent. It is served at a well-known path
// and tells callers how to reach the agent and what it can do.
type AgentCard struct {
	// Name is a human-readable name for the agent. Names are unique within a registry.
	Name string `json:"name" yaml:"name"`

	// Description is a human-readable description of the agent.
	Description string `json:"description" yaml:"description"`

	// URL is the address the agent is hosted at.
	URL string `json:"url" yaml:"url"`

	// Provider contains information about the agent's service provider.
	Provider *AgentProvider `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Version is the agent's own version number, semver is recommended.
	Version string `json:"version" yaml:"version"`

	// DocumentationURL is an optional URL to the agent's documentation.
	DocumentationURL string `json:"documentationUrl,omitempty" yaml:"documentationUrl,omitempty"`

	// Capabilities is a declaration of optional capabilities supported by the agent.
	Capabilities AgentCapabilities `json:"capabilities" yaml:"capabilities"`

	// DefaultInputModes is the default set of supported input content types for all skills.
	DefaultInputModes []string `json:"defaultInputModes" yaml:"defaultInputModes"`

	// DefaultOutputModes is the default set of supported output content types for all skills.
	DefaultOutputModes []string `json:"defaultOutputModes" yaml:"defaultOutputModes"`

	// Skills is the set of skills the agent can perform.
	Skills []AgentSkill `json:"skills" yaml:"skills"`
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	// Org is the name of the agent provider's organization.
	Org string `json:"organization" yaml:"organization"`

	// URL is a URL for the agent provider's website or relevant documentation.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// AgentSkill represents a distinct capability or function that an agent can perform.
type AgentSkill struct {
	// ID is a unique identifier for the agent's skill.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable name for the skill.
	Name string `json:"name" yaml:"name"`

	// Description is a detailed description of the skill.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Tags is a set of keywords describing the skill.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Examples are prompts or scenarios that this skill can handle.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// InputModes overrides the agent's default input modes for this skill.
	InputModes []string `json:"inputModes,omitempty" yaml:"inputModes,omitempty"`

	// OutputModes overrides the agent's default output modes for this skill.
	OutputModes []string `json:"outputModes,omitempty" yaml:"outputModes,omitempty"`
}
