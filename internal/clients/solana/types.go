package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenBalanceEntry is a pre/post token balance entry of a parsed transaction.
type TokenBalanceEntry struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount   string `json:"amount"`
		Decimals uint8  `json:"decimals"`
	} `json:"uiTokenAmount"`
}

// Transaction is the subset of a parsed transaction the bot inspects.
type Transaction struct {
	Signature         string
	Slot              int64
	BlockTime         int64
	Err               interface{}
	Signers           []string
	PreTokenBalances  []TokenBalanceEntry
	PostTokenBalances []TokenBalanceEntry
}
