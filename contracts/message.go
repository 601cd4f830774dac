package contracts

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single normalized chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// IsSystem returns true for system messages.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// ChatRequest is the normalized request shape passed to a unit of work.
type ChatRequest struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	MaxTokens   int            `json:"maxTokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy of the request. Interceptors that rewrite the
// request must operate on a copy so the original inputs stay untouched.
func (r *ChatRequest) Clone() *ChatRequest {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Messages = make([]Message, len(r.Messages))
	copy(cp.Messages, r.Messages)
	if r.Stop != nil {
		cp.Stop = make([]string, len(r.Stop))
		copy(cp.Stop, r.Stop)
	}
	if r.Extra != nil {
		cp.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// Usage reports token consumption for a completed call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ChatResponse is the normalized response shape returned by a unit of work.
type ChatResponse struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Message      Message   `json:"message"`
	Usage        Usage     `json:"usage"`
	FinishReason string    `json:"finishReason,omitempty"`
	Created      time.Time `json:"created"`
}

// CallOptions carries per-call knobs. The engine treats it as opaque; only
// interceptors interpret individual fields (cache keys include the whole
// struct, trimming reads nothing from it, timeout stamps Deadline).
type CallOptions struct {
	Timeout     time.Duration     `json:"timeout,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Extra       map[string]any    `json:"extra,omitempty"`
}

// Clone returns a deep copy of the options.
func (o *CallOptions) Clone() *CallOptions {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Headers != nil {
		cp.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			cp.Headers[k] = v
		}
	}
	if o.Extra != nil {
		cp.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}
