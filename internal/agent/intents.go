// Package agent is the conversational dispatcher sitting in front of the
// trading core. It turns free-form text into structured tool calls, runs the
// tools, and streams events back to the chat client. All text parsing lives
// here; the core packages only ever receive structured, validated arguments.
package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IntentKind classifies what the user asked for.
type IntentKind string

const (
	IntentSwap      IntentKind = "execute_swap"
	IntentStatus    IntentKind = "check_trade_status"
	IntentPrice     IntentKind = "get_token_price"
	IntentArbitrage IntentKind = "check_arbitrage"
	IntentUnknown   IntentKind = "unknown"
)

// Intent is one parsed request. Fields are filled according to Kind.
type Intent struct {
	Kind     IntentKind
	Amount   decimal.Decimal
	TokenIn  string
	TokenOut string
	Token    string
	TxHash   string
	// Slippage is a percentage; negative means the caller did not specify one
	// and the configured default applies.
	Slippage float64
}

var (
	txHashPattern   = regexp.MustCompile(`0x[0-9a-fA-F]{64}`)
	addressPattern  = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)
	amountPattern   = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	slippagePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*slippage`)
)

// TokenBook maps the token symbols the agent understands to their contract
// addresses on the configured network.
type TokenBook struct {
	USDC string
	WETH string
}

// Resolve returns the address for a symbol mention, accepting the common
// aliases for the wrapped native token.
func (b TokenBook) Resolve(symbol string) (string, bool) {
	switch strings.ToUpper(symbol) {
	case "USDC":
		return b.USDC, true
	case "WETH", "ETH":
		return b.WETH, true
	}
	return "", false
}

// DetectIntent classifies input and extracts the structured arguments the
// matching tool needs. Unrecognized input yields IntentUnknown.
func DetectIntent(input string, book TokenBook) Intent {
	lower := strings.ToLower(input)

	if hash := txHashPattern.FindString(input); hash != "" &&
		(strings.Contains(lower, "status") || strings.Contains(lower, "trade")) {
		return Intent{Kind: IntentStatus, TxHash: hash}
	}

	if strings.Contains(lower, "arbitrage") {
		return Intent{Kind: IntentArbitrage}
	}

	if strings.Contains(lower, "swap") || strings.Contains(lower, "trade") ||
		strings.Contains(lower, "exchange") {
		if intent, ok := parseSwap(input, lower, book); ok {
			return intent
		}
	}

	if strings.Contains(lower, "price") {
		if token, ok := parseToken(input, lower, book); ok {
			return Intent{Kind: IntentPrice, Token: token}
		}
	}

	return Intent{Kind: IntentUnknown}
}

// parseSwap extracts amount, token pair, and optional slippage from a swap
// request such as "swap 100 USDC for ETH with 1% slippage".
func parseSwap(input, lower string, book TokenBook) (Intent, bool) {
	intent := Intent{Kind: IntentSwap, Slippage: -1}

	m := amountPattern.FindString(input)
	if m == "" {
		return Intent{}, false
	}
	amount, err := decimal.NewFromString(m)
	if err != nil {
		return Intent{}, false
	}
	intent.Amount = amount

	if sm := slippagePattern.FindStringSubmatch(lower); sm != nil {
		if pct, err := strconv.ParseFloat(sm[1], 64); err == nil {
			intent.Slippage = pct
		}
	}

	// Token pair: explicit addresses win, then symbol mentions in order of
	// appearance.
	var tokens []string
	tokens = append(tokens, addressPattern.FindAllString(input, 2)...)
	if len(tokens) < 2 {
		for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
			return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
		}) {
			addr, ok := book.Resolve(word)
			if !ok {
				continue
			}
			tokens = append(tokens, addr)
			if len(tokens) == 2 {
				break
			}
		}
	}
	if len(tokens) < 2 {
		return Intent{}, false
	}
	intent.TokenIn, intent.TokenOut = tokens[0], tokens[1]
	return intent, true
}

// parseToken extracts the token a price request refers to.
func parseToken(input, lower string, book TokenBook) (string, bool) {
	if addr := addressPattern.FindString(input); addr != "" {
		return addr, true
	}
	for _, word := range strings.Fields(lower) {
		if addr, ok := book.Resolve(strings.Trim(word, ",.?!")); ok {
			return addr, true
		}
	}
	return "", false
}
