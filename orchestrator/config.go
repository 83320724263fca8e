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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/a2aproject/a2a-delegate/a2aclient"
)

// Config describes the remote agents an orchestrator works with.
//
//	agents:
//	  - url: http://localhost:10001
//	  - url: http://localhost:10002
//	    transport: grpc
//	accepted_output_modes: [text, text/plain]
//	artifact_dir: ./artifacts
type Config struct {
	Agents              []AgentConfig `yaml:"agents"`
	AcceptedOutputModes []string      `yaml:"accepted_output_modes,omitempty"`
	ArtifactDir         string        `yaml:"artifact_dir,omitempty"`
}

// AgentConfig is the address of one remote agent. The card is resolved from URL; an
// empty Transport picks the first transport which connects.
type AgentConfig struct {
	URL       string                      `yaml:"url"`
	Transport a2aclient.TransportProtocol `yaml:"transport,omitempty"`
	CardPath  string                      `yaml:"card_path,omitempty"`
}

// LoadConfig reads and validates the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML config. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every agent has a URL and a known transport.
func (c *Config) Validate() error {
	for i, agent := range c.Agents {
		if agent.URL == "" {
			return fmt.Errorf("%w: agents[%d]: url is required", ErrMalformedRequest, i)
		}
		switch agent.Transport {
		case "", a2aclient.TransportProtocolJSONRPC, a2aclient.TransportProtocolGRPC:
		default:
			return fmt.Errorf("%w: agents[%d]: unknown transport %q", ErrMalformedRequest, i, agent.Transport)
		}
	}
	return nil
}

// RegistryOptions returns the [Registry] options the config implies.
func (c *Config) RegistryOptions() []Option {
	var opts []Option
	if len(c.AcceptedOutputModes) > 0 {
		opts = append(opts, WithAcceptedOutputModes(c.AcceptedOutputModes...))
	}
	if c.ArtifactDir != "" {
		opts = append(opts, WithArtifactStore(NewDirArtifactStore(c.ArtifactDir)))
	}
	return opts
}
