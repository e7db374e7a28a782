package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool represents an executable tool with a name, description, JSON Schema, and handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Entry is the public description of a registered tool.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SchemaFor reflects a JSON Schema object from the input struct T. Field
// descriptions come from `jsonschema_description` tags; fields without
// `omitempty` are required.
func SchemaFor[T any]() json.RawMessage {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}

	var v T
	s := r.Reflect(&v)
	s.Version = ""

	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("toolbox: reflect schema for %T: %v", v, err))
	}

	return data
}
