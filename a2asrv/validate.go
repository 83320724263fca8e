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

package a2asrv

import (
	"errors"
	"slices"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/jsonrpc"
)

const (
	reasonMissingParts  = "missing_parts"
	reasonIncompatible  = "incompatible_output_modes"
	reasonNoTextPart    = "no_text_part"
	reasonMissingTaskID = "missing_task_id"
	reasonTerminalTask  = jsonrpc.ReasonTaskTerminal

	detailsReasonKey      = "reason"
	detailsAcceptedKey    = "accepted_output_modes"
	detailsSupportedModes = "supported_content_types"
)

// ModesCompatible reports whether the requested output modes intersect the supported ones.
// An empty list on either side is compatible with anything.
func ModesCompatible(accepted, supported []string) bool {
	if len(accepted) == 0 || len(supported) == 0 {
		return true
	}
	for _, mode := range accepted {
		if slices.Contains(supported, mode) {
			return true
		}
	}
	return false
}

// ValidateSendParams checks an inbound tasks/send or tasks/sendSubscribe request against
// the agent content types. It returns an [*a2a.Error] which does not require any task
// to exist.
func ValidateSendParams(params *a2a.TaskSendParams, supported []string) error {
	if params == nil || params.Message == nil || len(params.Message.Parts) == 0 {
		return rejection(a2a.ErrInvalidParams, "Task message parts are missing.", reasonMissingParts)
	}
	if params.ID == "" {
		return rejection(a2a.ErrInvalidParams, "Task id is missing.", reasonMissingTaskID)
	}
	if !ModesCompatible(params.AcceptedOutputModes, supported) {
		return rejection(a2a.ErrUnsupportedContentType, "Incompatible content types", reasonIncompatible).
			WithDetails(map[string]any{
				detailsReasonKey:      reasonIncompatible,
				detailsAcceptedKey:    params.AcceptedOutputModes,
				detailsSupportedModes: supported,
			})
	}
	if _, ok := params.Message.Text(); !ok {
		return rejection(a2a.ErrInvalidParams, "Only text input is supported.", reasonNoTextPart)
	}
	return nil
}

func rejection(err error, msg, reason string) *a2a.Error {
	return a2a.NewError(err, msg).WithDetails(map[string]any{detailsReasonKey: reason})
}

// RejectionReason returns the machine-readable reason attached by [ValidateSendParams].
func RejectionReason(err error) string {
	var a2aErr *a2a.Error
	if !errors.As(err, &a2aErr) {
		return ""
	}
	reason, _ := a2aErr.Details[detailsReasonKey].(string)
	return reason
}
