package models

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// -----------------------------------------------------------------------------

// Symbol is a tradable ticker from a closed enumeration.
type Symbol string

// Unknown marks input that does not name a supported ticker.
const Unknown Symbol = "UNKNOWN"

// allSymbols is the supported ticker universe, in declaration order.
var allSymbols = []Symbol{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "JPM", "JNJ", "V",
	"PG", "UNH", "HD", "DIS", "PYPL", "NFLX", "ADBE", "CRM", "INTC", "CSCO",
	"PFE", "ABT", "TMO", "ABBV", "LLY", "PEP", "COST", "TXN", "AVGO", "ACN",
	"QCOM", "DHR", "MDT", "NKE", "UPS", "RTX", "HON", "ORCL", "LIN", "AMGN",
	"LOW", "SBUX", "SPGI", "INTU", "ISRG", "T", "BMY", "DE", "PLD", "CI",
	"CAT", "GS", "UNP", "AMT", "AXP", "MS", "BLK", "GE", "SYK", "GILD",
	"MMM", "MO", "LMT", "FISV", "ADI", "BKNG", "C", "SO", "NEE", "ZTS",
	"TGT", "DUK", "ICE", "BDX", "PNC", "CMCSA", "SCHW", "MDLZ", "TJX", "USB",
	"CL", "EMR", "APD", "COF", "FDX", "AON", "WM", "ECL", "ITW", "VRTX",
	"D", "NSC", "PGR", "ETN", "FIS", "PSA", "KLAC", "MCD", "ADP", "APTV",
	"AEP", "MCO", "SHW", "DD", "ROP", "SLB", "HUM", "BSX", "NOC", "EW",
}

var symbolIndex = func() map[string]Symbol {
	idx := make(map[string]Symbol, len(allSymbols))
	for _, s := range allSymbols {
		idx[string(s)] = s
	}
	return idx
}()

// -----------------------------------------------------------------------------

// AllSymbols returns a copy of the supported ticker universe.
func AllSymbols() []Symbol {
	out := make([]Symbol, len(allSymbols))
	copy(out, allSymbols)
	return out
}

// -----------------------------------------------------------------------------

// ParseSymbol resolves a ticker case-insensitively. Unsupported input yields Unknown.
func ParseSymbol(raw string) Symbol {
	if s, ok := symbolIndex[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return Unknown
}

// -----------------------------------------------------------------------------

// IsKnown reports whether s belongs to the supported universe.
func (s Symbol) IsKnown() bool {
	_, ok := symbolIndex[string(s)]
	return ok
}

func (s Symbol) String() string {
	return string(s)
}

// -----------------------------------------------------------------------------

// ParseSymbols converts raw tickers, dropping duplicates but keeping Unknown
// entries so callers can report them.
func ParseSymbols(raw []string) []Symbol {
	seen := make(map[Symbol]struct{}, len(raw))
	out := make([]Symbol, 0, len(raw))
	for _, r := range raw {
		s := ParseSymbol(r)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// -----------------------------------------------------------------------------

// ReadSymbolList parses tickers separated by commas, whitespace or new lines.
// Blank entries are skipped; any unsupported ticker is an error.
func ReadSymbolList(r io.Reader) ([]Symbol, error) {
	var symbols []Symbol
	seen := make(map[Symbol]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.FieldsFunc(scanner.Text(), func(c rune) bool {
			return c == ',' || c == ';' || c == ' ' || c == '\t'
		})
		for _, f := range fields {
			s := ParseSymbol(f)
			if s == Unknown {
				return nil, fmt.Errorf("unsupported ticker %q", f)
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbol list: %w", err)
	}
	return symbols, nil
}
