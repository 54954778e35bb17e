package pancake

// RouterABI is the ABI for the PancakeSwap V2 router. V2 has no separate
// quoter; getAmountsOut doubles as the price probe.
const RouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [
			{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [
			{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
