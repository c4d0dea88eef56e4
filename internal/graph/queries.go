package graph

import (
	"fmt"
	"strconv"
	"strings"

	"gmx-edge-lab/internal/domain"
)

// DefaultPageSize is the subgraph's maximum "first" argument.
const DefaultPageSize = 1000

// Collection describes a pageable subgraph entity.
type Collection struct {
	Name      string   // GraphQL field, e.g. "orders"
	TimeField string   // epoch-seconds field used to date records
	Fields    []string // selected fields; must include "id"
}

// Orders selects the orders collection.
var Orders = Collection{
	Name:      domain.CollectionOrders,
	TimeField: "createdTimestamp",
	Fields: []string{
		"id", "type", "account", "status", "index", "size",
		"createdTimestamp", "cancelledTimestamp", "executedTimestamp",
	},
}

// Swaps selects the swaps collection.
var Swaps = Collection{
	Name:      domain.CollectionSwaps,
	TimeField: "timestamp",
	Fields: []string{
		"id", "account", "tokenIn", "tokenOut", "amountIn", "amountOut",
		"amountOutAfterFees", "feeBasisPoints", "tokenInPrice", "timestamp",
	},
}

// CollectionByName returns the known collection with the given name.
func CollectionByName(name string) (Collection, error) {
	switch name {
	case Orders.Name:
		return Orders, nil
	case Swaps.Name:
		return Swaps, nil
	default:
		return Collection{}, fmt.Errorf("unknown collection %q", name)
	}
}

// Query builds the page query for records with id greater than cursor.
func (c Collection) Query(cursor string, first int) string {
	if first <= 0 {
		first = DefaultPageSize
	}

	var b strings.Builder
	fmt.Fprintf(&b, "{\n  %s(first: %d, where: {id_gt: %s}) {\n", c.Name, first, strconv.Quote(cursor))
	for _, f := range c.Fields {
		b.WriteString("    ")
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("  }\n}\n")
	return b.String()
}

// OrdersQuery builds an orders page query.
func OrdersQuery(cursor string, first int) string {
	return Orders.Query(cursor, first)
}

// SwapsQuery builds a swaps page query.
func SwapsQuery(cursor string, first int) string {
	return Swaps.Query(cursor, first)
}
