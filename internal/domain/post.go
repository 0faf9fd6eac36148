package domain

import "time"

// Post is a single item from the watched account's feed.
// Posts are immutable once fetched.
type Post struct {
	ID        string    // opaque feed identifier
	Author    string    // author handle
	Text      string    // body
	CreatedAt time.Time // creation time reported by the feed
}

// Finding is the classification of one post's text.
type Finding struct {
	HasSignal       bool     `json:"has_signal"`
	SolanaAddresses []string `json:"solana_addresses"`
	BaseAddresses   []string `json:"base_addresses"`
	Keywords        []string `json:"keywords"`
	Links           []string `json:"links"`
}

// AssetRef is a discovered asset on a specific chain.
type AssetRef struct {
	Chain   Chain
	AssetID string
}

// Addresses returns every discovered address, Solana first, in text order.
func (f Finding) Addresses() []AssetRef {
	refs := make([]AssetRef, 0, len(f.SolanaAddresses)+len(f.BaseAddresses))
	for _, a := range f.SolanaAddresses {
		refs = append(refs, AssetRef{Chain: ChainSolana, AssetID: a})
	}
	for _, a := range f.BaseAddresses {
		refs = append(refs, AssetRef{Chain: ChainBase, AssetID: a})
	}
	return refs
}

// Alert is the record emitted for a post with a positive finding.
// It is the JSON document delivered to webhook sinks.
type Alert struct {
	PostID     string    `json:"post_id"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	PostedAt   time.Time `json:"posted_at"`
	DetectedAt time.Time `json:"detected_at"`
	Finding    Finding   `json:"finding"`
}
