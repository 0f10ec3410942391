package uniswap

// routerABI is the slice of the exchange contract the agent touches: the
// quote view and the single-hop exact-input swap.
const routerABI = `[
	{
		"name": "quoteExactInputSingle",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "fee", "type": "uint24"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}
		],
		"outputs": [{"name": "amountOut", "type": "uint256"}]
	},
	{
		"name": "exactInputSingle",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [{
			"name": "params",
			"type": "tuple",
			"components": [
				{"name": "tokenIn", "type": "address"},
				{"name": "tokenOut", "type": "address"},
				{"name": "fee", "type": "uint24"},
				{"name": "recipient", "type": "address"},
				{"name": "deadline", "type": "uint256"},
				{"name": "amountIn", "type": "uint256"},
				{"name": "amountOutMinimum", "type": "uint256"},
				{"name": "sqrtPriceLimitX96", "type": "uint160"}
			]
		}],
		"outputs": [{"name": "amountOut", "type": "uint256"}]
	}
]`
