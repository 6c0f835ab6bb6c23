package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Mock lookup tables. Keys are normalized to lower case on both sides; the
// upstream data kept the two tables in different cases, which made lookups
// silently miss.
var ticketPrices = map[string]string{
	"dubai":     "$456.9",
	"islamabad": "$100.0",
	"tokyo":     "$561.2",
	"mumbai":    "$200.2",
}

var stockPrices = map[string]string{
	"microsoft": "250.2",
	"apple":     "350.5",
	"google":    "500.0",
	"amazon":    "400.7",
}

// Sentinels returned for unknown lookup keys.
const (
	TicketPriceUnavailable = "ticket price not available"
	StockPriceUnavailable  = "stock price not available"
)

type ticketArgs struct {
	DestinationCity string `json:"destination_city"`
}

type stockArgs struct {
	CompanyName string `json:"company_name"`
}

// NewTicketPriceTool returns the mock ticket price lookup.
func NewTicketPriceTool() *Tool {
	return MustTool("get_ticket_price", "Return a mock ticket price for a DESTINATION CITY.",
		func(_ context.Context, arg ticketArgs) (string, error) {
			if price, ok := ticketPrices[strings.ToLower(strings.TrimSpace(arg.DestinationCity))]; ok {
				return price, nil
			}
			return TicketPriceUnavailable, nil
		})
}

// NewStockPriceTool returns the mock stock price lookup.
func NewStockPriceTool() *Tool {
	return MustTool("get_stock_price", "Return a mock stock price for the given COMPANY NAME.",
		func(_ context.Context, arg stockArgs) (string, error) {
			if price, ok := stockPrices[strings.ToLower(strings.TrimSpace(arg.CompanyName))]; ok {
				return price, nil
			}
			return StockPriceUnavailable, nil
		})
}

// DefaultRegistry returns a registry loaded with the mock lookup tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTicketPriceTool())
	r.Register(NewStockPriceTool())
	return r
}

// decodeArgs unmarshals model-supplied JSON arguments, repairing malformed
// JSON on syntax errors before retrying.
func decodeArgs(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return repairErr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
