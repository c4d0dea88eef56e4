package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
)

// ErrMalformedTick is returned when a shard row cannot be parsed.
var ErrMalformedTick = errors.New("malformed tick row")

// Column positions of an aggTrades shard.
const (
	colTradeID = iota
	colPrice
	colQuantity
	colFirstTradeID
	colLastTradeID
	colTime
	colBuyerIsMaker
	tickColumns
)

// microsecondThreshold separates epoch-ms from epoch-µs timestamps.
// Spot shards switched to microseconds in 2025; ms values stay below 1e14 until year 5138.
const microsecondThreshold = int64(1e14)

// ReadTicks parses an aggTrades shard:
// trade_id, price, quantity, first_trade_id, last_trade_id, time, buyer_is_maker[, best_match].
// A leading header row is skipped.
func ReadTicks(r io.Reader) ([]*domain.Tick, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var ticks []*domain.Tick
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tick row: %w", err)
		}
		line++

		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		t, err := parseTick(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ticks = append(ticks, t)
	}

	return ticks, nil
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	return err != nil
}

func parseTick(rec []string) (*domain.Tick, error) {
	if len(rec) < tickColumns {
		return nil, fmt.Errorf("%w: want at least %d columns, got %d", ErrMalformedTick, tickColumns, len(rec))
	}

	field := func(i int) string { return strings.TrimSpace(rec[i]) }

	tradeID, err := strconv.ParseInt(field(colTradeID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: trade_id: %v", ErrMalformedTick, err)
	}
	price, err := decimal.NewFromString(field(colPrice))
	if err != nil {
		return nil, fmt.Errorf("%w: price: %v", ErrMalformedTick, err)
	}
	qty, err := decimal.NewFromString(field(colQuantity))
	if err != nil {
		return nil, fmt.Errorf("%w: quantity: %v", ErrMalformedTick, err)
	}
	first, err := strconv.ParseInt(field(colFirstTradeID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: first_trade_id: %v", ErrMalformedTick, err)
	}
	last, err := strconv.ParseInt(field(colLastTradeID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: last_trade_id: %v", ErrMalformedTick, err)
	}
	ts, err := strconv.ParseInt(field(colTime), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: time: %v", ErrMalformedTick, err)
	}
	maker, err := strconv.ParseBool(field(colBuyerIsMaker))
	if err != nil {
		return nil, fmt.Errorf("%w: buyer_is_maker: %v", ErrMalformedTick, err)
	}

	return &domain.Tick{
		TradeID:      tradeID,
		Price:        price,
		Quantity:     qty,
		FirstTradeID: first,
		LastTradeID:  last,
		Time:         epochToTime(ts),
		BuyerIsMaker: maker,
	}, nil
}

func epochToTime(ts int64) time.Time {
	if ts >= microsecondThreshold {
		return time.UnixMicro(ts).UTC()
	}
	return time.UnixMilli(ts).UTC()
}
