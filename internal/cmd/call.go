package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/observability"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/output"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/tools"
)

var (
	callOutput string
	callArgs   string
	callParams []string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a market data tool",
	Long: `Invoke a market data tool and print its response envelope.

Arguments are supplied either as a JSON object via --args or as repeated
--param key=value flags. Values given with --param are coerced to the
parameter type declared in the tool catalog.

Examples:
  uwmcp call ticker_info --param ticker=AAPL
  uwmcp call option_contracts --args '{"ticker":"NVDA","limit":50}'
  uwmcp call flow_alerts --param ticker=TSLA --param min_premium=100000`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVar(&callOutput, "output", "table", "Output format: table, json, yaml")
	callCmd.Flags().StringVar(&callArgs, "args", "", "Tool arguments as a JSON object")
	callCmd.Flags().StringArrayVar(&callParams, "param", nil, "Tool argument as key=value (repeatable)")
}

func runCall(cmd *cobra.Command, cliArgs []string) error {
	name := strings.TrimSpace(cliArgs[0])

	format, err := output.ParseFormat(callOutput)
	if err != nil {
		return err
	}

	action, ok := tools.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'tools' to list available tools)", name)
	}

	args, err := collectCallArgs(action, callArgs, callParams)
	if err != nil {
		return err
	}

	dispatcher, _, _, err := buildDispatcher(cmd.Context())
	if err != nil {
		return err
	}

	observability.CLILogger.Debug("Invoking tool",
		zap.String("tool", name),
		zap.Any("args", args))

	envelope := dispatcher.Invoke(cmd.Context(), name, args)

	rendered, err := output.FormatResponse(format, envelope)
	if err != nil {
		return err
	}
	fmt.Println(rendered)

	return nil
}

// collectCallArgs merges --args JSON with --param pairs. Param pairs win on
// key collision and are coerced per the declared parameter type.
func collectCallArgs(action tools.Action, rawJSON string, pairs []string) (map[string]any, error) {
	args := map[string]any{}

	if trimmed := strings.TrimSpace(rawJSON); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		args[key] = coerceParamValue(action, key, value)
	}

	return args, nil
}

// coerceParamValue converts a CLI string to the declared parameter type.
// Undeclared keys stay strings; the dispatcher drops them anyway.
func coerceParamValue(action tools.Action, key string, value string) any {
	var spec *tools.ParamSpec
	for i := range action.Params {
		if action.Params[i].Name == key {
			spec = &action.Params[i]
			break
		}
	}
	if spec == nil {
		return value
	}

	switch spec.Type {
	case tools.ParamInt:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	case tools.ParamFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case tools.ParamBool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case tools.ParamStringList:
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		return list
	}
	return value
}
