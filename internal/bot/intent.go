// Package bot translates inbound chat messages into intents, executes
// them against the ledger and betting engine, and formats the replies.
package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IntentKind tags the parsed meaning of one inbound message.
type IntentKind int

const (
	IntentUnrecognized IntentKind = iota
	IntentGreeting
	IntentListMarkets
	IntentBalance
	IntentMyBets
	IntentSelectMarket // a bare market number: reply with YES/NO buttons
	IntentPlaceBet     // a button tap carrying market and side
)

// Intent is the tagged result of parsing one inbound message.
// MarketID is set for SelectMarket and PlaceBet; Side for PlaceBet.
type Intent struct {
	Kind     IntentKind
	MarketID int64
	Side     string
}

// buttonRegex matches the reply-button payload: BET|<marketId>|<SIDE>
var buttonRegex = regexp.MustCompile(`^BET\|(\d+)\|([A-Za-z]+)$`)

// digitRegex matches a pure-digit market selection like "1".
var digitRegex = regexp.MustCompile(`^\d+$`)

// ErrInvalidButton is returned for button payloads that do not match
// the BET|<marketId>|<SIDE> format.
var ErrInvalidButton = errors.New("bot: invalid button payload")

// ButtonID builds the reply-button payload for a market and side.
func ButtonID(marketID int64, side string) string {
	return fmt.Sprintf("BET|%d|%s", marketID, side)
}

// ParseButton parses a reply-button payload into a PlaceBet intent.
func ParseButton(id string) (Intent, error) {
	matches := buttonRegex.FindStringSubmatch(id)
	if matches == nil {
		return Intent{}, fmt.Errorf("%w: %s", ErrInvalidButton, id)
	}

	marketID, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %s", ErrInvalidButton, id)
	}

	return Intent{Kind: IntentPlaceBet, MarketID: marketID, Side: matches[2]}, nil
}

// ParseText normalizes a text message (trim, lowercase) and maps it to
// an intent. Pure-digit strings select a market by number.
func ParseText(body string) Intent {
	text := strings.ToLower(strings.TrimSpace(body))

	switch text {
	case "hi", "hello", "start":
		return Intent{Kind: IntentGreeting}
	case "markets":
		return Intent{Kind: IntentListMarkets}
	case "balance":
		return Intent{Kind: IntentBalance}
	case "bets":
		return Intent{Kind: IntentMyBets}
	}

	if digitRegex.MatchString(text) {
		if id, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Intent{Kind: IntentSelectMarket, MarketID: id}
		}
	}

	return Intent{Kind: IntentUnrecognized}
}
