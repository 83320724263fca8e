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

import "reflect"

// Well-known metadata keys used to chain messages of a conversation.
const (
	MetadataKeyMessageID      = "message_id"
	MetadataKeyLastMessageID  = "last_message_id"
	MetadataKeyConversationID = "conversation_id"
)

// MergeMetadata copies every metadata key of source into target, source values win on collisions.
// A nil carrier or a missing metadata container is treated as empty. Merging the same
// source more than once gives the same result as merging it once.
func MergeMetadata(target, source MetadataCarrier) {
	if isNil(target) || isNil(source) {
		return
	}
	for k, v := range source.Meta() {
		target.SetMeta(k, v)
	}
}

// ChainMessageID assigns newID as the message identity. A different identity the message
// already carries is preserved under MetadataKeyLastMessageID.
func ChainMessageID(m *Message, newID string) {
	if m == nil {
		return
	}
	if prev, ok := m.Metadata[MetadataKeyMessageID]; ok && prev != newID {
		m.SetMeta(MetadataKeyLastMessageID, prev)
	}
	m.SetMeta(MetadataKeyMessageID, newID)
}

// MergeStatusMessage applies the message-level merge used when a status message is received
// in response to request: request metadata is merged in and the message gets a fresh identity.
func MergeStatusMessage(m *Message, request *Message) {
	if m == nil {
		return
	}
	MergeMetadata(m, request)
	ChainMessageID(m, NewMessageID())
}

func isNil(c MetadataCarrier) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
