package domain

// Venue names as they appear in configuration priority lists.
const (
	VenuePumpFun   = "pumpfun"
	VenuePumpSwap  = "pumpswap"
	VenueRaydium   = "raydium"
	VenueUniswapV2 = "uniswap-v2"
	VenueUniswapV3 = "uniswap-v3"
)

// VenuesByChain lists every venue name an adapter exists for.
var VenuesByChain = map[Chain][]string{
	ChainSolana: {VenuePumpFun, VenuePumpSwap, VenueRaydium},
	ChainBase:   {VenueUniswapV2, VenueUniswapV3},
}

// IsKnownVenue reports whether name is a venue on chain.
func IsKnownVenue(chain Chain, name string) bool {
	for _, v := range VenuesByChain[chain] {
		if v == name {
			return true
		}
	}
	return false
}
