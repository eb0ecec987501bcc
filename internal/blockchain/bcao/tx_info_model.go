package bcao

// StatusSuccess is the status the orderer returns for an accepted transaction.
const StatusSuccess = "SUCCESS"

// TransactionCreationInfo 包含交易成功创建时应该返回的信息
type TransactionCreationInfo struct {
	TransactionID string `json:"transactionId"`     // 交易 ID
	BlockID       string `json:"blockId,omitempty"` // 区块 ID
}

// BroadcastResponse 为排序节点对所提交交易的最终响应。只有 `Status` 为 `SUCCESS` 时交易才被接受。
type BroadcastResponse struct {
	TxID   string `json:"txId"`
	Status string `json:"status"`
	Info   string `json:"info,omitempty"`
}

// IsSuccess reports whether the orderer accepted the transaction.
func (r *BroadcastResponse) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}
