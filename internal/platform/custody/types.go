package custody

// walletResponse is the provider's wallet detail payload.
type walletResponse struct {
	ID             string `json:"id"`
	Network        string `json:"network"`
	DefaultAddress string `json:"default_address"`
}

// addressListResponse lists every address provisioned under a wallet.
type addressListResponse struct {
	Addresses []string `json:"addresses"`
}

// balanceResponse is a single-address token balance in whole units.
type balanceResponse struct {
	Amount string        `json:"amount"`
	Asset  assetResponse `json:"asset"`
}

// assetResponse is the provider's token metadata payload.
type assetResponse struct {
	ContractAddress string `json:"contract_address"`
	Symbol          string `json:"symbol"`
	Decimals        int32  `json:"decimals"`
}

// invocationRequest submits one contract call for provider-side signing.
type invocationRequest struct {
	ContractAddress string         `json:"contract_address"`
	Method          string         `json:"method"`
	Args            map[string]any `json:"args"`
}

// invocationResponse tracks a submitted contract call. Status is one of
// "pending", "broadcast", "complete", "failed".
type invocationResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	TransactionHash string `json:"transaction_hash"`
	RevertReason    string `json:"revert_reason,omitempty"`
}

// estimateResponse is the provider's gas estimate for a contract call.
type estimateResponse struct {
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gas_price"`
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
