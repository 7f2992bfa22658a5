package entities

// Direction of a transfer relative to a watched account
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// TransferRecord is one attributed transfer in a breakdown
type TransferRecord struct {
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty"`
	Amount       float64   `json:"amount"`
	USDValue     float64   `json:"usdValue"`
	BlockNumber  uint64    `json:"blockNumber"`
	TxHash       string    `json:"txHash"`
	Timestamp    int64     `json:"timestamp"`
}

// TokenBreakdown is the per-token detail of a net-transfer summary
type TokenBreakdown struct {
	Symbol      string           `json:"symbol"`
	Address     string           `json:"address"`
	Decimals    int              `json:"decimals"`
	InboundUSD  float64          `json:"inboundUsd"`
	OutboundUSD float64          `json:"outboundUsd"`
	Transfers   []TransferRecord `json:"transfers"`
}

// NetTransferAccountSummary holds the finalized totals of one account
type NetTransferAccountSummary struct {
	Account     string           `json:"account"`
	InboundUSD  float64          `json:"inboundUsd"`
	OutboundUSD float64          `json:"outboundUsd"`
	NetTransfer float64          `json:"netTransfer"`
	Breakdown   []TokenBreakdown `json:"breakdown,omitempty"`
}

// NetTransferResult is the single-account result
type NetTransferResult struct {
	ChainID         int64            `json:"chainId"`
	Account         string           `json:"account"`
	StartTime       int64            `json:"startTime"`
	EndTime         int64            `json:"endTime"`
	InboundUSD      float64          `json:"inboundUsd"`
	OutboundUSD     float64          `json:"outboundUsd"`
	NetTransfer     float64          `json:"netTransfer"`
	TokensEvaluated int              `json:"tokensEvaluated"`
	FromBlock       uint64           `json:"fromBlock"`
	ToBlock         uint64           `json:"toBlock"`
	LogsEvaluated   int              `json:"logsEvaluated"`
	Breakdown       []TokenBreakdown `json:"breakdown,omitempty"`
}

// NetTransferBatchResult is the multi-account result
type NetTransferBatchResult struct {
	ChainID         int64                       `json:"chainId"`
	StartTime       int64                       `json:"startTime"`
	EndTime         int64                       `json:"endTime"`
	TokensEvaluated int                         `json:"tokensEvaluated"`
	FromBlock       uint64                      `json:"fromBlock"`
	ToBlock         uint64                      `json:"toBlock"`
	LogsEvaluated   int                         `json:"logsEvaluated"`
	Accounts        []NetTransferAccountSummary `json:"accounts"`
}
