package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

// convertTools wraps each dialect-M tool definition in the chatcompletions
// function-calling envelope. input_schema maps straight across since both
// dialects describe parameters as JSON Schema.
func convertTools(tools []Tool) []chatcompletions.Tool {
	converted := make([]chatcompletions.Tool, 0, len(tools))
	for _, tool := range tools {
		converted = append(converted, chatcompletions.Tool{
			Type: chatToolTypeFunction,
			Function: chatcompletions.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	return converted
}

// convertToolChoice maps dialect-M tool_choice (a raw string or object) to
// its chatcompletions form:
//
//	"auto"                     -> "auto"
//	"any"                      -> "required"
//	{"type":"tool","name":"X"} -> {"type":"function","function":{"name":"X"}}
func convertToolChoice(raw json.RawMessage) (interface{}, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case toolChoiceAuto:
			return chatToolChoiceAuto, nil
		case toolChoiceAny:
			return chatToolChoiceRequired, nil
		default:
			return chatToolChoiceAuto, nil
		}
	}

	var asObject ToolChoiceObject
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, fmt.Errorf("invalid tool_choice: %w", err)
	}

	switch asObject.Type {
	case toolChoiceAuto:
		return chatToolChoiceAuto, nil
	case toolChoiceAny:
		return chatToolChoiceRequired, nil
	case toolChoiceTool:
		if asObject.Name == "" {
			return nil, fmt.Errorf("tool_choice type %q requires a name", toolChoiceTool)
		}
		return chatcompletions.ToolChoiceFunction{
			Type:     chatToolTypeFunction,
			Function: chatcompletions.ToolChoiceFunctionByName{Name: asObject.Name},
		}, nil
	default:
		return chatToolChoiceAuto, nil
	}
}
