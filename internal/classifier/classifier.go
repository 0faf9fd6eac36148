// Package classifier extracts contract addresses, keywords and links from post text.
package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"

	"post-sniper/internal/domain"
)

// solanaPubkeyLen is the raw length of a Solana public key.
const solanaPubkeyLen = 32

var (
	// Bitcoin base58 alphabet: no 0, O, I, l.
	solanaPattern = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
	basePattern   = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)
	urlPattern    = regexp.MustCompile(`https?://\S+`)

	shortenerPattern = regexp.MustCompile(`\b(?:t\.co|bit\.ly|tinyurl\.com|goo\.gl|ow\.ly|buff\.ly|dub\.sh)/\S+`)
)

// keywords is the fixed launch/deployment/liquidity vocabulary.
var keywords = map[string]struct{}{
	"launch":    {},
	"launching": {},
	"launched":  {},
	"deploy":    {},
	"deployed":  {},
	"deploying": {},
	"stealth":   {},
	"presale":   {},
	"liquidity": {},
	"lp":        {},
	"contract":  {},
	"token":     {},
	"mint":      {},
	"buy":       {},
	"airdrop":   {},
	"pumpfun":   {},
}

// Classify derives a Finding from post text. It never fails: text with no
// matches yields a Finding with HasSignal == false.
func Classify(text string) domain.Finding {
	f := domain.Finding{
		SolanaAddresses: SolanaAddresses(text),
		BaseAddresses:   BaseAddresses(text),
		Keywords:        Keywords(text),
		Links:           Links(text),
	}
	f.HasSignal = len(f.SolanaAddresses) > 0 || len(f.BaseAddresses) > 0 || len(f.Keywords) > 0
	return f
}

// SolanaAddresses returns base58 tokens that decode to exactly 32 bytes.
// Candidates of the right shape but the wrong decoded length are dropped.
func SolanaAddresses(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, candidate := range solanaPattern.FindAllString(text, -1) {
		if _, dup := seen[candidate]; dup {
			continue
		}
		if !IsSolanaAddress(candidate) {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// IsSolanaAddress reports whether s decodes to a 32-byte public key.
func IsSolanaAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == solanaPubkeyLen
}

// BaseAddresses returns every 0x-prefixed 40 hex digit address.
func BaseAddresses(text string) []string {
	return dedupe(basePattern.FindAllString(text, -1))
}

// Keywords returns vocabulary words present in text, lower-cased, first-seen order.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	seen := make(map[string]struct{})
	for _, w := range words {
		if _, ok := keywords[w]; !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Links returns HTTP(S) URLs and bare shortener links verbatim.
func Links(text string) []string {
	spans := urlPattern.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, text[s[0]:s[1]])
	}

	for _, s := range shortenerPattern.FindAllStringIndex(text, -1) {
		if insideAny(s[0], spans) {
			continue
		}
		out = append(out, text[s[0]:s[1]])
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
