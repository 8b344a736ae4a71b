// Package protocol defines the stable data vocabulary shared by every other
// package in this module: content and messages, operator input/output,
// effects, hook context/actions, and the closed error taxonomy. Nothing here
// depends on a provider, a store, or a tool implementation — it is pure data,
// and it is meant to cross process and network boundaries unchanged.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Content is a polymorphic message payload: either a plain string or an
// ordered sequence of Blocks. Exactly one representation is populated.
// Preserving insertion order in Blocks is semantically significant.
type Content struct {
	Text   string  `json:"text,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

// TextContent constructs a plain-string Content value.
func TextContent(s string) Content { return Content{Text: s} }

// BlocksContent constructs a Content value from an ordered block sequence.
func BlocksContent(blocks ...Block) Content { return Content{Blocks: blocks} }

// IsEmpty reports whether the content carries neither text nor blocks. This
// is the value prescribed for a PreInference halt at turn one (see the Open
// Question decisions in DESIGN.md).
func (c Content) IsEmpty() bool { return c.Text == "" && len(c.Blocks) == 0 }

// String renders a best-effort human-readable form of the content, joining
// block text where available. It is intended for logs, not for re-parsing.
func (c Content) String() string {
	if c.Text != "" || len(c.Blocks) == 0 {
		return c.Text
	}
	out := ""
	for i, b := range c.Blocks {
		if i > 0 {
			out += "\n"
		}
		out += b.renderText()
	}
	return out
}

// BlockKind discriminates the variant carried by a Block.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
	BlockCustom     BlockKind = "custom"
)

// Block is one entry in a Content's block sequence. Exactly one of the
// kind-specific fields is populated, selected by Kind. Custom is the
// forward-compatibility escape hatch: unrecognized producers should populate
// it rather than fail closed.
type Block struct {
	Kind BlockKind `json:"kind"`

	// Text is populated when Kind == BlockText.
	Text string `json:"text,omitempty"`

	// Image is populated when Kind == BlockImage.
	Image *ImageBlock `json:"image,omitempty"`

	// ToolUse is populated when Kind == BlockToolUse.
	ToolUse *ToolUseBlock `json:"tool_use,omitempty"`

	// ToolResult is populated when Kind == BlockToolResult.
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`

	// Custom is populated when Kind == BlockCustom.
	Custom *CustomBlock `json:"custom,omitempty"`
}

// ImageSourceKind discriminates how image bytes are addressed.
type ImageSourceKind string

const (
	ImageSourceBase64 ImageSourceKind = "base64"
	ImageSourceURL    ImageSourceKind = "url"
)

// ImageBlock carries an inline or remote image.
type ImageBlock struct {
	SourceKind ImageSourceKind `json:"source_kind"`
	// Base64 holds the image payload when SourceKind == ImageSourceBase64.
	Base64 string `json:"base64,omitempty"`
	// URL holds the image location when SourceKind == ImageSourceURL.
	URL string `json:"url,omitempty"`
	// MediaType is the IANA media type (e.g. "image/png").
	MediaType string `json:"media_type"`
}

// ToolUseBlock represents a model-issued request to invoke a tool.
type ToolUseBlock struct {
	ID        ToolUseID       `json:"id"`
	Name      string          `json:"name"`
	InputJSON json.RawMessage `json:"input_json,omitempty"`
}

// ToolResultBlock carries the outcome of a tool invocation back to the model.
// ToolUseID must refer to a ToolUseBlock.ID that appeared earlier in the same
// conversation.
type ToolResultBlock struct {
	ToolUseID ToolUseID `json:"tool_use_id"`
	Content   string    `json:"content"`
	IsError   bool      `json:"is_error,omitempty"`
}

// CustomBlock is the forward-compatibility escape hatch for block kinds this
// version of the protocol does not know about.
type CustomBlock struct {
	ContentType string          `json:"content_type"`
	DataJSON    json.RawMessage `json:"data_json,omitempty"`
}

func (b Block) renderText() string {
	switch b.Kind {
	case BlockText:
		return b.Text
	case BlockToolUse:
		if b.ToolUse == nil {
			return ""
		}
		return fmt.Sprintf("[tool_use %s %s]", b.ToolUse.Name, string(b.ToolUse.InputJSON))
	case BlockToolResult:
		if b.ToolResult == nil {
			return ""
		}
		return b.ToolResult.Content
	case BlockCustom:
		if b.Custom == nil {
			return ""
		}
		return fmt.Sprintf("[custom:%s %s]", b.Custom.ContentType, string(b.Custom.DataJSON))
	case BlockImage:
		return "[image]"
	default:
		return ""
	}
}

// TextBlock constructs a BlockText block.
func TextBlock(text string) Block { return Block{Kind: BlockText, Text: text} }

// ToolUseBlockOf constructs a BlockToolUse block.
func ToolUseBlockOf(id ToolUseID, name string, inputJSON json.RawMessage) Block {
	return Block{Kind: BlockToolUse, ToolUse: &ToolUseBlock{ID: id, Name: name, InputJSON: inputJSON}}
}

// ToolResultBlockOf constructs a BlockToolResult block.
func ToolResultBlockOf(id ToolUseID, content string, isError bool) Block {
	return Block{Kind: BlockToolResult, ToolResult: &ToolResultBlock{ToolUseID: id, Content: content, IsError: isError}}
}

// CustomBlockOf constructs a BlockCustom block carrying an arbitrary payload.
// Content.String renders it as discriminator-prefixed text
// ("[custom:<content_type> <data>]").
func CustomBlockOf(contentType string, data json.RawMessage) Block {
	return Block{Kind: BlockCustom, Custom: &CustomBlock{ContentType: contentType, DataJSON: data}}
}
