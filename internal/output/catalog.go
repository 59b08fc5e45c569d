package output

import (
	"encoding/json"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/tools"
)

// FormatCatalog renders the tool catalog in the requested format.
func FormatCatalog(format Format, actions []tools.Action) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(map[string]any{"tools": actions}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatYAML:
		return marshalYAML(map[string]any{"tools": actions})
	default:
		return catalogTable(actions), nil
	}
}

func catalogTable(actions []tools.Action) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Tool", "Description", "Parameters"})

	for _, action := range actions {
		t.AppendRow(table.Row{
			string(action.Name),
			action.Description,
			paramSummary(action.Params),
		})
	}

	return t.Render()
}

// paramSummary lists parameter names with types, marking required ones
// with a trailing asterisk.
func paramSummary(params []tools.ParamSpec) string {
	if len(params) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		name := p.Name
		if p.Required {
			name += "*"
		}
		parts = append(parts, name+":"+string(p.Type))
	}
	return strings.Join(parts, ", ")
}
