package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	wsolMint = "So11111111111111111111111111111111111111112"
	baseAddr = "0x4200000000000000000000000000000000000006"
)

func TestClassify_NoSignal(t *testing.T) {
	texts := []string{
		"",
		"good morning everyone",
		"check this out https://example.com/article",
		"short tokenish words like tokens and launches do not count",
		"0x1234 is not an address",
	}

	for _, text := range texts {
		f := Classify(text)
		assert.False(t, f.HasSignal, "text %q", text)
		assert.Empty(t, f.SolanaAddresses)
		assert.Empty(t, f.BaseAddresses)
		assert.Empty(t, f.Keywords)
	}
}

func TestClassify_LinkOnlyDoesNotSignal(t *testing.T) {
	f := Classify("read https://example.com/a and t.co/abc123")

	assert.False(t, f.HasSignal)
	assert.Equal(t, []string{"https://example.com/a", "t.co/abc123"}, f.Links)
}

func TestClassify_SolanaAddress(t *testing.T) {
	f := Classify("new coin: " + usdcMint + " go go")

	require.True(t, f.HasSignal)
	assert.Equal(t, []string{usdcMint}, f.SolanaAddresses)
	assert.Empty(t, f.BaseAddresses)
}

func TestClassify_BaseAddress(t *testing.T) {
	f := Classify("CA " + baseAddr)

	require.True(t, f.HasSignal)
	assert.Equal(t, []string{baseAddr}, f.BaseAddresses)
	assert.Empty(t, f.SolanaAddresses)
}

func TestClassify_BothChainsAndDedup(t *testing.T) {
	text := strings.Join([]string{wsolMint, baseAddr, wsolMint, baseAddr, usdcMint}, " ")
	f := Classify(text)

	assert.Equal(t, []string{wsolMint, usdcMint}, f.SolanaAddresses)
	assert.Equal(t, []string{baseAddr}, f.BaseAddresses)

	refs := f.Addresses()
	require.Len(t, refs, 3)
	assert.Equal(t, "solana", refs[0].Chain.String())
	assert.Equal(t, wsolMint, refs[0].AssetID)
	assert.Equal(t, "base", refs[2].Chain.String())
}

func TestSolanaAddresses_RejectsWrongDecodedLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"usdc mint, 44 chars, 32 bytes", usdcMint, true},
		{"wsol mint, 43 chars, 32 bytes", wsolMint, true},
		{"system program, 32 ones", strings.Repeat("1", 32), true},
		{"44 chars decoding to 33 bytes", strings.Repeat("z", 44), false},
		{"32 chars decoding to 23 bytes", strings.Repeat("2", 32), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSolanaAddress(tt.input))

			got := SolanaAddresses("addr " + tt.input + " end")
			if tt.want {
				assert.Equal(t, []string{tt.input}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestSolanaAddresses_RequiresTokenBoundary(t *testing.T) {
	// 45 base58 characters: too long for the shape, and no 44-char window is bounded.
	long := usdcMint + "A"
	assert.Empty(t, SolanaAddresses(long))

	// Excluded characters break the run.
	assert.Empty(t, SolanaAddresses("0OIl"+strings.Repeat("0", 40)))
}

func TestBaseAddresses_ExactLength(t *testing.T) {
	assert.Empty(t, BaseAddresses("0x"+strings.Repeat("a", 39)))
	assert.Empty(t, BaseAddresses("0x"+strings.Repeat("a", 41)))
	assert.Equal(t, []string{"0x" + strings.Repeat("A", 40)}, BaseAddresses("0x"+strings.Repeat("A", 40)))
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"LAUNCHING the Token now, token TOKEN!", []string{"launching", "token"}},
		{"Deployed. Liquidity locked; LP burned", []string{"deployed", "liquidity", "lp"}},
		{"stealth-launch tonight", []string{"stealth", "launch"}},
		{"nothing here", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text))
		})
	}
}

func TestClassify_KeywordOnlySignals(t *testing.T) {
	f := Classify("we launch tomorrow")

	assert.True(t, f.HasSignal)
	assert.Equal(t, []string{"launch"}, f.Keywords)
}

func TestLinks(t *testing.T) {
	text := "see https://t.co/xyz and http://pump.fun/coin/abc plus bit.ly/q1 and dub.sh/zz"
	got := Links(text)

	assert.Equal(t, []string{
		"https://t.co/xyz",
		"http://pump.fun/coin/abc",
		"bit.ly/q1",
		"dub.sh/zz",
	}, got)
}
