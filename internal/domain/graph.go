package domain

import (
	"encoding/json"
	"time"
)

// Subgraph collections that can be fetched.
const (
	CollectionOrders = "orders"
	CollectionSwaps  = "swaps"
)

// GraphRecord is one flat record returned by the subgraph.
type GraphRecord struct {
	Collection string
	ID         string
	Time       time.Time       // decoded from the collection's time column
	Payload    json.RawMessage // the record as returned
}

// Order is a typed view of an orders record.
// Timestamps arrive either as numbers or as numeric strings.
type Order struct {
	ID                 string      `json:"id"`
	Type               string      `json:"type"`
	Account            string      `json:"account"`
	Status             string      `json:"status"`
	Index              json.Number `json:"index"`
	Size               json.Number `json:"size"`
	CreatedTimestamp   json.Number `json:"createdTimestamp"`
	CancelledTimestamp json.Number `json:"cancelledTimestamp"`
	ExecutedTimestamp  json.Number `json:"executedTimestamp"`
	Date               time.Time   `json:"-"`
}

// Swap is a typed view of a swaps record.
type Swap struct {
	ID                 string      `json:"id"`
	Account            string      `json:"account"`
	TokenIn            string      `json:"tokenIn"`
	TokenOut           string      `json:"tokenOut"`
	AmountIn           json.Number `json:"amountIn"`
	AmountOut          json.Number `json:"amountOut"`
	AmountOutAfterFees json.Number `json:"amountOutAfterFees"`
	FeeBasisPoints     json.Number `json:"feeBasisPoints"`
	TokenInPrice       json.Number `json:"tokenInPrice"`
	Timestamp          json.Number `json:"timestamp"`
	Date               time.Time   `json:"-"`
}
