package tools

import (
	"context"
	"fmt"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// Dispatcher routes tool invocations through the resilient outbound client.
// Invoke never returns a Go error; every failure is folded into the envelope
// so callers see one uniform contract.
type Dispatcher struct {
	Client *uwapi.Client
}

// Invoke validates the arguments for the named action, builds the endpoint
// request and performs it.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) uwapi.Response {
	if d == nil || d.Client == nil {
		return uwapi.ErrorResponse("tool dispatcher is not configured")
	}

	action, ok := Lookup(name)
	if !ok {
		return uwapi.ErrorResponse("unknown tool %q", name)
	}

	if err := validateArgs(action, args); err != nil {
		return uwapi.ErrorResponse("invalid parameters for %s: %v", action.Name, err)
	}

	path, query, err := buildRequest(action.Name, args)
	if err != nil {
		return uwapi.ErrorResponse("invalid parameters for %s: %v", action.Name, err)
	}

	return d.Client.Fetch(ctx, path, query)
}

// validateArgs enforces required parameters and loose type checks. Values
// arrive as decoded JSON, so numbers show up as float64 and lists as []any.
func validateArgs(action Action, args map[string]any) error {
	for _, spec := range action.Params {
		raw, present := args[spec.Name]
		if !present || raw == nil {
			if spec.Required {
				return fmt.Errorf("missing required parameter %q", spec.Name)
			}
			continue
		}
		if err := checkType(spec, raw); err != nil {
			return err
		}
	}
	return nil
}

func checkType(spec ParamSpec, raw any) error {
	switch spec.Type {
	case ParamString:
		if _, ok := raw.(string); !ok {
			return fmt.Errorf("parameter %q must be a string", spec.Name)
		}
	case ParamInt:
		switch v := raw.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("parameter %q must be an integer", spec.Name)
			}
		default:
			return fmt.Errorf("parameter %q must be an integer", spec.Name)
		}
	case ParamFloat:
		switch raw.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("parameter %q must be a number", spec.Name)
		}
	case ParamBool:
		if _, ok := raw.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", spec.Name)
		}
	case ParamStringList:
		switch v := raw.(type) {
		case []string:
		case []any:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("parameter %q must be a list of strings", spec.Name)
				}
			}
		default:
			return fmt.Errorf("parameter %q must be a list of strings", spec.Name)
		}
	}
	return nil
}
