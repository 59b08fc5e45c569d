// Package tools maps named tool actions onto Unusual Whales API endpoints.
// Every action is a declared variant with its own parameter spec; dispatch is
// an exhaustive switch so a new action cannot silently fall through without a
// request builder.
package tools

import (
	"fmt"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// ActionName identifies a tool action.
type ActionName string

const (
	ActionTickerInfo          ActionName = "ticker_info"
	ActionStockState          ActionName = "stock_state"
	ActionOptionContracts     ActionName = "option_contracts"
	ActionGreekExposure       ActionName = "greek_exposure"
	ActionFlowAlerts          ActionName = "flow_alerts"
	ActionDarkpoolRecent      ActionName = "darkpool_recent"
	ActionDarkpoolTicker      ActionName = "darkpool_ticker"
	ActionCongressTrades      ActionName = "congress_trades"
	ActionInsiderTransactions ActionName = "insider_transactions"
	ActionMarketTide          ActionName = "market_tide"
	ActionSectorTide          ActionName = "sector_tide"
	ActionEarningsAfterhours  ActionName = "earnings_afterhours"
	ActionEarningsPremarket   ActionName = "earnings_premarket"
	ActionNetFlowExpiry       ActionName = "net_flow_expiry"
)

// ParamType constrains what a parameter value may look like.
type ParamType string

const (
	ParamString     ParamType = "string"
	ParamInt        ParamType = "int"
	ParamFloat      ParamType = "float"
	ParamBool       ParamType = "bool"
	ParamStringList ParamType = "string_list"
)

// ParamSpec describes one parameter of an action. Path parameters are
// interpolated into the URL path (after SafePathSegment validation) instead
// of the query string.
type ParamSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	InPath      bool      `json:"in_path,omitempty" yaml:"in_path,omitempty"`
	Description string    `json:"description" yaml:"description"`
}

// Action is the declared shape of one tool.
type Action struct {
	Name        ActionName  `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Params      []ParamSpec `json:"params" yaml:"params"`
}

var tickerParam = ParamSpec{Name: "ticker", Type: ParamString, Required: true, InPath: true, Description: "Stock ticker symbol"}

var catalog = []Action{
	{
		Name:        ActionTickerInfo,
		Description: "Company metadata and descriptive stats for a ticker",
		Params:      []ParamSpec{tickerParam},
	},
	{
		Name:        ActionStockState,
		Description: "Latest quote state (price, volume, open/close) for a ticker",
		Params:      []ParamSpec{tickerParam},
	},
	{
		Name:        ActionOptionContracts,
		Description: "Option contracts listed for a ticker",
		Params: []ParamSpec{
			tickerParam,
			{Name: "expiry", Type: ParamString, Description: "Filter by expiry date (YYYY-MM-DD)"},
			{Name: "option_type", Type: ParamString, Description: "Filter by side: call or put"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionGreekExposure,
		Description: "Aggregate greek exposure for a ticker",
		Params: []ParamSpec{
			tickerParam,
			{Name: "date", Type: ParamString, Description: "Trading date (YYYY-MM-DD)"},
			{Name: "timeframe", Type: ParamString, Description: "Aggregation timeframe"},
		},
	},
	{
		Name:        ActionFlowAlerts,
		Description: "Option flow alerts across the market",
		Params: []ParamSpec{
			{Name: "ticker_symbol", Type: ParamString, Description: "Restrict alerts to one ticker"},
			{Name: "min_premium", Type: ParamInt, Description: "Minimum premium in dollars"},
			{Name: "all_opening", Type: ParamBool, Description: "Only alerts where every fill is opening"},
			{Name: "is_call", Type: ParamBool, Description: "Include call alerts"},
			{Name: "is_put", Type: ParamBool, Description: "Include put alerts"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionDarkpoolRecent,
		Description: "Most recent dark pool prints market-wide",
		Params: []ParamSpec{
			{Name: "date", Type: ParamString, Description: "Trading date (YYYY-MM-DD)"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionDarkpoolTicker,
		Description: "Dark pool prints for one ticker",
		Params: []ParamSpec{
			tickerParam,
			{Name: "date", Type: ParamString, Description: "Trading date (YYYY-MM-DD)"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionCongressTrades,
		Description: "Recent reported trades by members of congress",
		Params: []ParamSpec{
			{Name: "ticker", Type: ParamString, Description: "Restrict to one ticker"},
			{Name: "date", Type: ParamString, Description: "Report date (YYYY-MM-DD)"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionInsiderTransactions,
		Description: "Insider transactions filed with the SEC",
		Params: []ParamSpec{
			{Name: "ticker_symbol", Type: ParamString, Description: "Restrict to one ticker"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionMarketTide,
		Description: "Market-wide net premium tide",
		Params: []ParamSpec{
			{Name: "date", Type: ParamString, Description: "Trading date (YYYY-MM-DD)"},
			{Name: "otm_only", Type: ParamBool, Description: "Only out-of-the-money transactions"},
			{Name: "interval_5m", Type: ParamBool, Description: "Aggregate in 5 minute intervals"},
		},
	},
	{
		Name:        ActionSectorTide,
		Description: "Net premium tide for one sector",
		Params: []ParamSpec{
			{Name: "sector", Type: ParamString, Required: true, InPath: true, Description: "Sector name, e.g. Technology"},
			{Name: "date", Type: ParamString, Description: "Trading date (YYYY-MM-DD)"},
		},
	},
	{
		Name:        ActionEarningsAfterhours,
		Description: "Afterhours earnings reports",
		Params: []ParamSpec{
			{Name: "date", Type: ParamString, Description: "Report date (YYYY-MM-DD)"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionEarningsPremarket,
		Description: "Premarket earnings reports",
		Params: []ParamSpec{
			{Name: "date", Type: ParamString, Description: "Report date (YYYY-MM-DD)"},
			{Name: "limit", Type: ParamInt, Description: "Maximum rows to return"},
		},
	},
	{
		Name:        ActionNetFlowExpiry,
		Description: "Net option flow grouped by expiry",
		Params: []ParamSpec{
			{Name: "tide_type", Type: ParamString, Description: "Tide type filter"},
			{Name: "expiration", Type: ParamString, Description: "Expiration bucket"},
			{Name: "moneyness", Type: ParamString, Description: "Moneyness filter"},
		},
	},
}

// Catalog returns the declared actions in presentation order.
func Catalog() []Action {
	out := make([]Action, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an action by name.
func Lookup(name string) (Action, bool) {
	for _, action := range catalog {
		if action.Name == ActionName(name) {
			return action, true
		}
	}
	return Action{}, false
}

// buildRequest maps a validated action invocation to an endpoint path and
// query parameters. The switch is exhaustive over the catalog; an action
// without a branch is a programming error surfaced at dispatch time.
func buildRequest(name ActionName, args map[string]any) (string, uwapi.Params, error) {
	switch name {
	case ActionTickerInfo:
		ticker, err := pathArg(args, "ticker")
		if err != nil {
			return "", nil, err
		}
		return "/api/stock/" + ticker + "/info", queryParams(name, args), nil

	case ActionStockState:
		ticker, err := pathArg(args, "ticker")
		if err != nil {
			return "", nil, err
		}
		return "/api/stock/" + ticker + "/stock-state", queryParams(name, args), nil

	case ActionOptionContracts:
		ticker, err := pathArg(args, "ticker")
		if err != nil {
			return "", nil, err
		}
		return "/api/stock/" + ticker + "/option-contracts", queryParams(name, args), nil

	case ActionGreekExposure:
		ticker, err := pathArg(args, "ticker")
		if err != nil {
			return "", nil, err
		}
		return "/api/stock/" + ticker + "/greek-exposure", queryParams(name, args), nil

	case ActionFlowAlerts:
		return "/api/option-trades/flow-alerts", queryParams(name, args), nil

	case ActionDarkpoolRecent:
		return "/api/darkpool/recent", queryParams(name, args), nil

	case ActionDarkpoolTicker:
		ticker, err := pathArg(args, "ticker")
		if err != nil {
			return "", nil, err
		}
		return "/api/darkpool/" + ticker, queryParams(name, args), nil

	case ActionCongressTrades:
		return "/api/congress/congress-trader", queryParams(name, args), nil

	case ActionInsiderTransactions:
		return "/api/insider/transactions", queryParams(name, args), nil

	case ActionMarketTide:
		return "/api/market/market-tide", queryParams(name, args), nil

	case ActionSectorTide:
		sector, err := pathArg(args, "sector")
		if err != nil {
			return "", nil, err
		}
		return "/api/market/" + sector + "/sector-tide", queryParams(name, args), nil

	case ActionEarningsAfterhours:
		return "/api/earnings/afterhours", queryParams(name, args), nil

	case ActionEarningsPremarket:
		return "/api/earnings/premarket", queryParams(name, args), nil

	case ActionNetFlowExpiry:
		return "/api/net-flow/expiry", queryParams(name, args), nil

	default:
		return "", nil, fmt.Errorf("no request builder for action %q", name)
	}
}

// pathArg extracts a string argument destined for the URL path and runs it
// through the path-traversal defense.
func pathArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return uwapi.SafePathSegment(value)
}

// queryParams collects the declared non-path parameters present in args.
// Undeclared keys are dropped rather than forwarded upstream.
func queryParams(name ActionName, args map[string]any) uwapi.Params {
	action, ok := Lookup(string(name))
	if !ok {
		return nil
	}

	params := uwapi.Params{}
	for _, spec := range action.Params {
		if spec.InPath {
			continue
		}
		if value, ok := args[spec.Name]; ok {
			params[spec.Name] = value
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
