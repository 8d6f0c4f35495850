// Package llm defines the provider-neutral conversation types exchanged with
// the language model and a Gemini implementation of them.
package llm

// Role of a turn in the model-side conversation.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse carries a tool result back to the model.
type ToolResponse struct {
	ID       string
	Name     string
	Response map[string]any
}

// Part is one element of a turn. Exactly one field is set.
type Part struct {
	Text         string
	ToolCall     *ToolCall
	ToolResponse *ToolResponse
	// Signature is an opaque provider token that must be echoed back with
	// the part it arrived on.
	Signature []byte
}

// Turn is one message of the model-side conversation.
type Turn struct {
	Role  Role
	Parts []Part
}

// UserText builds a user turn holding a single text part.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ToolResult builds the user turn that answers a tool call.
func ToolResult(call ToolCall, response map[string]any) Turn {
	return Turn{
		Role: RoleUser,
		Parts: []Part{{ToolResponse: &ToolResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: response,
		}}},
	}
}

// SchemaType is the JSON type of a tool parameter.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeBoolean SchemaType = "boolean"
	TypeInteger SchemaType = "integer"
)

// Property describes one tool parameter.
type Property struct {
	Type        SchemaType
	Description string
	Enum        []string
}

// ToolDeclaration advertises a tool and its typed parameters to the model.
type ToolDeclaration struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
}

// ReplyKind tags the variant held by a Reply.
type ReplyKind int

const (
	// ReplyMalformed means the response had no usable text or tool call.
	ReplyMalformed ReplyKind = iota
	// ReplyText is a plain text answer.
	ReplyText
	// ReplyToolRequest asks for a tool to be executed. Text may accompany it.
	ReplyToolRequest
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyToolRequest:
		return "tool_request"
	default:
		return "malformed"
	}
}

// Reply is the typed result of one model call.
type Reply struct {
	Kind ReplyKind
	// Text is the concatenation of all text parts.
	Text string
	// ToolRequest is the first tool call of the reply. Later calls are dropped.
	ToolRequest *ToolCall
	// ExtraToolCalls counts the tool calls that were dropped.
	ExtraToolCalls int
	// Content is the model turn to append to history before answering a
	// tool request.
	Content Turn
	// Raw is a diagnostic rendering of a malformed response.
	Raw string
}

// NewReply classifies a model turn. Text parts are concatenated in order; only
// the first tool call is kept.
func NewReply(content Turn) Reply {
	reply := Reply{Content: content}
	for _, p := range content.Parts {
		switch {
		case p.ToolCall != nil:
			if reply.ToolRequest == nil {
				reply.ToolRequest = p.ToolCall
			} else {
				reply.ExtraToolCalls++
			}
		case p.Text != "":
			reply.Text += p.Text
		}
	}

	switch {
	case reply.ToolRequest != nil:
		reply.Kind = ReplyToolRequest
	case reply.Text != "":
		reply.Kind = ReplyText
	default:
		reply.Kind = ReplyMalformed
	}
	return reply
}

// Malformed builds a malformed reply with a diagnostic description.
func Malformed(raw string) Reply {
	return Reply{Kind: ReplyMalformed, Raw: raw}
}
