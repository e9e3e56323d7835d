package isetools

import (
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
	"github.com/ggoodman/ise-mcp-server-go/schema"
)

// Enumerations accepted by the upstream API.
var (
	MeasureCodes = []any{"EPS", "CPS", "CPX", "DPS", "EBI", "EBT", "GPS", "GRM", "NAV", "NDT", "NET", "PRE", "ROA", "ROE", "SAL"}
	PeriodTypes  = []any{"Annual", "Interim"}
	DataTypes    = []any{"Actuals", "Estimates"}
	DataAges     = []any{"OneWeekAgo", "ThirtyDaysAgo", "SixtyDaysAgo", "NinetyDaysAgo", "Current"}
	Periods      = []any{"1m", "6m", "1yr", "3yr", "5yr", "10yr", "max"}
	Filters      = []any{"default", "price", "pe", "sm", "evebitda", "ptb", "mcs"}
	Stats        = []any{"quarter_results", "yoy_results", "balancesheet", "cashflow", "ratios", "shareholding_pattern_quarterly", "shareholding_pattern_yearly"}
)

// spec binds a tool definition to the upstream endpoint it reads. Every
// argument named in query is forwarded under the same query key when the
// caller supplied it.
type spec struct {
	def      mcpservice.ToolDefinition
	endpoint string
	query    []string
	unwrap   string
}

func catalog() []spec {
	return []spec{
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_stock_data",
				Description: "Get detailed financial data for a specific stock by company name",
				InputSchema: schema.Object(
					schema.Prop("name", schema.String("Company name, shortened name, or search term")),
				).Require("name"),
			},
			endpoint: "/stock",
			query:    []string{"name"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "search_industry",
				Description: "Search for companies within a specific industry",
				InputSchema: schema.Object(
					schema.Prop("query", schema.String("Industry search term")),
				).Require("query"),
			},
			endpoint: "/industry_search",
			query:    []string{"query"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "search_mutual_funds",
				Description: "Search for mutual funds",
				InputSchema: schema.Object(
					schema.Prop("query", schema.String("Mutual fund search term")),
				).Require("query"),
			},
			endpoint: "/mutual_fund_search",
			query:    []string{"query"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_trending_stocks",
				Description: "Get trending stocks with top gainers and losers",
			},
			endpoint: "/trending",
			unwrap:   "trending_stocks",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_52_week_high_low",
				Description: "Get stocks with highest and lowest prices in the last 52 weeks",
			},
			endpoint: "/fetch_52_week_high_low_data",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_nse_most_active",
				Description: "Get most active stocks on NSE by trading volume",
			},
			endpoint: "/NSE_most_active",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_bse_most_active",
				Description: "Get most active stocks on BSE by trading volume",
			},
			endpoint: "/BSE_most_active",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_mutual_funds",
				Description: "Get latest mutual fund data with NAV and returns",
			},
			endpoint: "/mutual_funds",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_price_shockers",
				Description: "Get stocks with significant price changes",
			},
			endpoint: "/price_shockers",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_commodities",
				Description: "Get real-time commodity futures data",
			},
			endpoint: "/commodities",
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_analyst_recommendations",
				Description: "Get analyst target prices and recommendations for a stock",
				InputSchema: schema.Object(
					schema.Prop("stock_id", schema.String("Stock identifier")),
				).Require("stock_id"),
			},
			endpoint: "/stock_target_price",
			query:    []string{"stock_id"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_stock_forecasts",
				Description: "Get detailed forecast information for a stock",
				InputSchema: schema.Object(
					schema.Prop("stock_id", schema.String("Stock identifier")),
					schema.Prop("measure_code", schema.Enum("Measure code for forecast", MeasureCodes...)),
					schema.Prop("period_type", schema.Enum("Period type", PeriodTypes...)),
					schema.Prop("data_type", schema.Enum("Data type", DataTypes...)),
					schema.Prop("age", schema.Enum("Data age", DataAges...)),
				).Require("stock_id", "measure_code", "period_type", "data_type", "age"),
			},
			endpoint: "/stock_forecasts",
			query:    []string{"stock_id", "measure_code", "period_type", "data_type", "age"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_historical_data",
				Description: "Get historical stock data with various filters",
				InputSchema: schema.Object(
					schema.Prop("stock_name", schema.String("Stock symbol or name")),
					schema.Prop("period", schema.Enum("Time period", Periods...).WithDefault("5yr")),
					schema.Prop("filter", schema.Enum("Data filter", Filters...).WithDefault("default")),
				).Require("stock_name"),
			},
			endpoint: "/historical_data",
			query:    []string{"stock_name", "period", "filter"},
		},
		{
			def: mcpservice.ToolDefinition{
				Name:        "get_historical_stats",
				Description: "Get historical statistics for a stock",
				InputSchema: schema.Object(
					schema.Prop("stock_name", schema.String("Stock symbol or name")),
					schema.Prop("stats", schema.Enum("Type of historical statistics", Stats...)),
				).Require("stock_name", "stats"),
			},
			endpoint: "/historical_stats",
			query:    []string{"stock_name", "stats"},
		},
	}
}
