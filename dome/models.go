/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Platform names used by the matching-markets endpoints.
const (
	PlatformPolymarket = "POLYMARKET"
	PlatformKalshi     = "KALSHI"
)

// Side is one outcome of a Polymarket market.
type Side struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Price float64 `json:"price,omitempty"`
}

// Market is a Polymarket market.
// Fields unknown to the client are preserved: marshaling returns the upstream JSON as is.
type Market struct {
	MarketSlug  string  `json:"market_slug"`
	Question    string  `json:"question,omitempty"`
	Title       string  `json:"title,omitempty"`
	SideA       Side    `json:"side_a"`
	SideB       Side    `json:"side_b"`
	SideAID     string  `json:"side_a_id,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
	VolumeTotal float64 `json:"volume_total,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the original document.
func (m *Market) UnmarshalJSON(data []byte) error {
	type plain Market
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Market(p)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream document if the market was decoded from one.
func (m Market) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	type plain Market
	return json.Marshal(plain(m))
}

// DisplayTitle returns the question or, if it's empty, the title.
func (m *Market) DisplayTitle() string {
	if m.Question != "" {
		return m.Question
	}
	return m.Title
}

// SideATokenID returns the token id of the first outcome.
func (m *Market) SideATokenID() string {
	if m.SideA.ID != "" {
		return m.SideA.ID
	}
	return m.SideAID
}

// MarketPrice is a current price of a Polymarket token.
type MarketPrice struct {
	Price  *float64 `json:"price"`
	AtTime *int64   `json:"at_time"`
}

// KalshiMarket is a Kalshi market.
type KalshiMarket struct {
	EventTicker  string  `json:"event_ticker"`
	MarketTicker string  `json:"market_ticker,omitempty"`
	Title        string  `json:"title"`
	LastPrice    float64 `json:"last_price"`
	Volume       float64 `json:"volume"`
}

// PlatformMatch is a market of one platform matched to the same real-world event.
type PlatformMatch struct {
	Platform      string   `json:"platform"`
	MarketSlug    string   `json:"market_slug,omitempty"`
	EventTicker   string   `json:"event_ticker,omitempty"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

// MatchedEvent groups the platform markets matched for one event.
type MatchedEvent struct {
	Key       string
	Platforms []PlatformMatch
}

// Find returns the match of the given platform.
func (e *MatchedEvent) Find(platform string) (PlatformMatch, bool) {
	for _, p := range e.Platforms {
		if p.Platform == platform {
			return p, true
		}
	}
	return PlatformMatch{}, false
}

// PlatformNames returns platform names in upstream order.
func (e *MatchedEvent) PlatformNames() []string {
	names := make([]string, 0, len(e.Platforms))
	for _, p := range e.Platforms {
		names = append(names, p.Platform)
	}
	return names
}

// MatchingMarkets is a result of the cross-platform matching lookup.
// Events keep the upstream key order.
type MatchingMarkets struct {
	Events []MatchedEvent
}

// First returns the first matched event.
func (mm *MatchingMarkets) First() (MatchedEvent, bool) {
	if len(mm.Events) == 0 {
		return MatchedEvent{}, false
	}
	return mm.Events[0], true
}

// UnmarshalJSON decodes {"markets": {"<event>": [...], ...}} preserving the order of events.
func (mm *MatchingMarkets) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Markets json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	mm.Events = nil
	if len(envelope.Markets) == 0 || bytes.Equal(envelope.Markets, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Markets))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("matching markets: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("matching markets: unexpected key %v", keyTok)
		}
		var platforms []PlatformMatch
		if err = dec.Decode(&platforms); err != nil {
			return fmt.Errorf("matching markets: decode %q: %w", key, err)
		}
		mm.Events = append(mm.Events, MatchedEvent{Key: key, Platforms: platforms})
	}
	return nil
}
