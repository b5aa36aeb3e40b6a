package helius

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type tokenAccountsParams struct {
	Page           int            `json:"page"`
	Limit          int            `json:"limit"`
	DisplayOptions map[string]any `json:"displayOptions"`
	Mint           string         `json:"mint"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenAccountsResp struct {
	Result *TokenAccountsResult `json:"result"`
	Error  *rpcError            `json:"error"`
}

type TokenAccountsResult struct {
	Total         int            `json:"total"`
	Limit         int            `json:"limit"`
	Page          int            `json:"page"`
	TokenAccounts []TokenAccount `json:"token_accounts"`
}

// TokenAccount amount 为链上原始数量（未处理精度）
type TokenAccount struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}
