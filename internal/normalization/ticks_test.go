package normalization

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestReadTicks_WithHeader(t *testing.T) {
	input := "agg_trade_id,price,quantity,first_trade_id,last_trade_id,transact_time,is_buyer_maker\n" +
		"1,2950.10,0.5,100,102,1650000000123,True\n" +
		"2,2950.20,1.25,103,103,1650000000456,false\n"

	ticks, err := ReadTicks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTicks failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(ticks))
	}

	if ticks[0].TradeID != 1 || !ticks[0].Price.Equal(decimal.RequireFromString("2950.10")) {
		t.Errorf("Tick 0: unexpected %+v", ticks[0])
	}
	if !ticks[0].BuyerIsMaker || ticks[1].BuyerIsMaker {
		t.Errorf("Expected buyer_is_maker true,false")
	}
	if !ticks[1].Time.Equal(time.UnixMilli(1650000000456).UTC()) {
		t.Errorf("Tick 1: unexpected time %v", ticks[1].Time)
	}
}

func TestReadTicks_HeaderlessWithBestMatch(t *testing.T) {
	input := "1,10,1,0,1,1650000000000,true,true\n"

	ticks, err := ReadTicks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTicks failed: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("Expected first row to be data, got %d ticks", len(ticks))
	}
}

func TestReadTicks_MicrosecondTimestamps(t *testing.T) {
	input := "1,10,1,0,1,1735689600000000,true\n"

	ticks, err := ReadTicks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTicks failed: %v", err)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !ticks[0].Time.Equal(want) {
		t.Errorf("Expected %v, got %v", want, ticks[0].Time)
	}
}

func TestReadTicks_Malformed(t *testing.T) {
	input := "1,abc,1,0,1,1650000000000,true\n"

	_, err := ReadTicks(strings.NewReader(input))
	if !errors.Is(err, ErrMalformedTick) {
		t.Errorf("Expected ErrMalformedTick, got %v", err)
	}
}

func TestReadTicks_TooFewColumns(t *testing.T) {
	input := "1,10,1\n"

	_, err := ReadTicks(strings.NewReader(input))
	if !errors.Is(err, ErrMalformedTick) {
		t.Errorf("Expected ErrMalformedTick, got %v", err)
	}
}
