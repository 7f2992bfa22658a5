package registry

// builtin is the catalog shipped with the service. A registry file is merged over it.
var builtin = File{
	Exclusions: ExclusionsFile{
		Global: []string{
			"0xd4F480965D2347d421F1bEC7F545682E5Ec2151D", // Pendle swap
			"0x888888888889758F76e7103c6CbF23ABbF58F946", // Pendle router
			"0xA238Dd80C259a72e81d7e4664a9801593F98d1c5", // Aave pool (Base)
		},
	},
	Chains: map[int64]ChainFile{
		1: {
			Stable: []TokenFile{
				{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: intPtr(6)},
				{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: intPtr(6)},
				{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: intPtr(18)},
			},
			Assets: []TokenFile{
				{Symbol: "ETH", Address: "native", Decimals: intPtr(18), PriceAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
				{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: intPtr(18)},
				{Symbol: "WBTC", Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Decimals: intPtr(8)},
				{Symbol: "WSTETH", Address: "0x7f39C581F595B53c5cbAd5aBdcBAc420B74A6c6C", Decimals: intPtr(18)},
			},
		},
		10: {
			Stable: []TokenFile{
				{Symbol: "USDC", Address: "0x7F5c764cBc14f9669B88837ca1490cCa17c31607", Decimals: intPtr(6)},
				{Symbol: "USDT", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: intPtr(6)},
				{Symbol: "DAI", Address: "0xda10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: intPtr(18)},
			},
			Assets: []TokenFile{
				{Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: intPtr(18)},
				{Symbol: "WBTC", Address: "0x68f180fcCe6836688e9084f035309E29Bf0A2095", Decimals: intPtr(8)},
				{Symbol: "OP", Address: "0x4200000000000000000000000000000000000042", Decimals: intPtr(18)},
			},
		},
		8453: {
			Stable: []TokenFile{
				{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: intPtr(6)},
				{Symbol: "USDBC", Address: "0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA", Decimals: intPtr(6)},
			},
			Assets: []TokenFile{
				{Symbol: "ETH", Address: "native", Decimals: intPtr(18), PriceAddress: "0x4200000000000000000000000000000000000006"},
				{Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: intPtr(18)},
				{Symbol: "CBETH", Address: "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22", Decimals: intPtr(18)},
				{Symbol: "CBBTC", Address: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf", Decimals: intPtr(8)},
				{Symbol: "WSTETH", Address: "0xc1CBa3fCea344f92D9239c08C0568f6F2F0ee452", Decimals: intPtr(18)},
			},
		},
	},
	Protocols: map[string]map[int64][]MarketFile{
		"aave": {
			1: {
				{Key: "usdc", Contract: "0x98C23E9d8f34FEFb1B7BD6a91B7FF122F4e16F5c", Asset: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: intPtr(6), Role: "supply"},
			},
			8453: {
				{Key: "usdc", Contract: "0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB", Asset: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: intPtr(6), Role: "supply"},
			},
		},
		"compound": {
			1: {
				{Key: "usdc", Contract: "0xc3d688B66703497DAA19211EEdff47f25384cdc3", Asset: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: intPtr(6), Role: "base"},
				{Key: "usdc", Contract: "0xc3d688B66703497DAA19211EEdff47f25384cdc3", Asset: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: intPtr(18), Role: "collateral"},
			},
			8453: {
				{Key: "usdc", Contract: "0xb125E6687d4313864e53df431d5425969c15Eb2F", Asset: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: intPtr(6), Role: "base"},
				{Key: "usdc", Contract: "0xb125E6687d4313864e53df431d5425969c15Eb2F", Asset: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: intPtr(18), Role: "collateral"},
				{Key: "usdc", Contract: "0xb125E6687d4313864e53df431d5425969c15Eb2F", Asset: "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22", Symbol: "CBETH", Decimals: intPtr(18), Role: "collateral"},
				{Key: "usdc", Contract: "0xb125E6687d4313864e53df431d5425969c15Eb2F", Asset: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf", Symbol: "CBBTC", Decimals: intPtr(8), Role: "collateral"},
				{Key: "usdc", Contract: "0xb125E6687d4313864e53df431d5425969c15Eb2F", Asset: "0xc1CBa3fCea344f92D9239c08C0568f6F2F0ee452", Symbol: "WSTETH", Decimals: intPtr(18), Role: "collateral"},
				{Key: "usdbc", Contract: "0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf", Asset: "0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA", Symbol: "USDBC", Decimals: intPtr(6), Role: "base"},
			},
		},
		"pendle": {
			8453: {
				{Key: "youusd-base", Contract: "0xb04cee9901c0a8d783fe280ded66e60c13a4e296", Asset: "0x0000000f2eb9f69274678c76222b35eec7588a65", Symbol: "YOUUSD", Role: "principal"},
				{Key: "usde-base-20251211", Contract: "0x194b8fed256c02ef1036ed812cae0c659ee6f7fd", Asset: "0x5d3a1ff2b6bab83b63cd9ad0787074081a52ef34", Symbol: "USDE", Role: "principal", Maturity: "2025-12-11"},
			},
		},
	},
}

func intPtr(v int) *int {
	return &v
}
