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

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Part type discriminator values.
const (
	PartTypeText = "text"
	PartTypeData = "data"
	PartTypeFile = "file"
)

// Part is the smallest unit of content inside a message or artifact.
// The set of implementations is closed: TextPart, DataPart, FilePart and UnknownPart.
type Part interface {
	// Type returns the part type discriminator.
	Type() string

	isPart()
}

func (TextPart) isPart()    {}
func (DataPart) isPart()    {}
func (FilePart) isPart()    {}
func (UnknownPart) isPart() {}

// ContentParts is a list of parts which can be decoded from JSON.
type ContentParts []Part

// MarshalJSON implements json.Marshaler.
func (j ContentParts) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Part(j))
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *ContentParts) UnmarshalJSON(b []byte) error {
	type typedPart struct {
		Type string `json:"type"`
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}

	result := make(ContentParts, len(arr))
	for i, rawMsg := range arr {
		var tp typedPart
		if err := json.Unmarshal(rawMsg, &tp); err != nil {
			return err
		}
		switch tp.Type {
		case PartTypeText:
			var part TextPart
			if err := json.Unmarshal(rawMsg, &part); err != nil {
				return err
			}
			result[i] = part
		case PartTypeData:
			var part DataPart
			if err := json.Unmarshal(rawMsg, &part); err != nil {
				return err
			}
			result[i] = part
		case PartTypeFile:
			var part FilePart
			if err := json.Unmarshal(rawMsg, &part); err != nil {
				return err
			}
			result[i] = part
		default:
			result[i] = UnknownPart{PartType: tp.Type, Raw: append(json.RawMessage{}, rawMsg...)}
		}
	}

	*j = result
	return nil
}

// TextPart is a part carrying plain text.
type TextPart struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTextPart creates a TextPart.
func NewTextPart(text string) TextPart {
	return TextPart{Text: text}
}

// Type implements Part.
func (TextPart) Type() string { return PartTypeText }

// MarshalJSON implements json.Marshaler.
func (p TextPart) MarshalJSON() ([]byte, error) {
	type wrapped TextPart
	type withType struct {
		Type string `json:"type"`
		wrapped
	}
	return json.Marshal(withType{Type: PartTypeText, wrapped: wrapped(p)})
}

// DataPart is a part carrying a structured key/value payload.
type DataPart struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewDataPart creates a DataPart.
func NewDataPart(data map[string]any) DataPart {
	return DataPart{Data: data}
}

// Type implements Part.
func (DataPart) Type() string { return PartTypeData }

// MarshalJSON implements json.Marshaler.
func (p DataPart) MarshalJSON() ([]byte, error) {
	type wrapped DataPart
	type withType struct {
		Type string `json:"type"`
		wrapped
	}
	return json.Marshal(withType{Type: PartTypeData, wrapped: wrapped(p)})
}

// FileContent describes a file either inline (base64 Bytes) or by reference (URI).
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// Decode returns the inline file content.
func (f FileContent) Decode() ([]byte, error) {
	if f.Bytes == "" {
		return nil, fmt.Errorf("file %q has no inline content", f.Name)
	}
	return base64.StdEncoding.DecodeString(f.Bytes)
}

// FilePart is a part carrying a file.
type FilePart struct {
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewFileBytesPart creates a FilePart with inline content.
func NewFileBytesPart(name, mimeType string, content []byte) FilePart {
	return FilePart{File: FileContent{
		Name:     name,
		MimeType: mimeType,
		Bytes:    base64.StdEncoding.EncodeToString(content),
	}}
}

// NewFileURIPart creates a FilePart referencing external content.
func NewFileURIPart(name, mimeType, uri string) FilePart {
	return FilePart{File: FileContent{Name: name, MimeType: mimeType, URI: uri}}
}

// Type implements Part.
func (FilePart) Type() string { return PartTypeFile }

// MarshalJSON implements json.Marshaler.
func (p FilePart) MarshalJSON() ([]byte, error) {
	type wrapped FilePart
	type withType struct {
		Type string `json:"type"`
		wrapped
	}
	return json.Marshal(withType{Type: PartTypeFile, wrapped: wrapped(p)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *FilePart) UnmarshalJSON(b []byte) error {
	type partJSON struct {
		File     FileContent    `json:"file"`
		Metadata map[string]any `json:"metadata"`
	}
	var decoded partJSON
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	if len(decoded.File.Bytes) == 0 && len(decoded.File.URI) == 0 {
		return fmt.Errorf("invalid file part: either bytes or uri must be set")
	}
	if len(decoded.File.Bytes) > 0 && len(decoded.File.URI) > 0 {
		return fmt.Errorf("invalid file part: bytes and uri cannot be set at the same time")
	}
	*p = FilePart{File: decoded.File, Metadata: decoded.Metadata}
	return nil
}

// UnknownPart keeps a part with an unrecognized type discriminator so that it survives decoding.
type UnknownPart struct {
	PartType string
	Raw      json.RawMessage
}

// Type implements Part.
func (p UnknownPart) Type() string { return p.PartType }

// MarshalJSON implements json.Marshaler.
func (p UnknownPart) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(map[string]string{"type": p.PartType})
}
