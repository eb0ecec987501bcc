package signup

import "time"

// Status 为组织加入流程的状态。
type Status string

const (
	StatusRunning    Status = "RUNNING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusRolledBack Status = "ROLLED_BACK" // 失败后所有补偿都已成功执行
	// StatusPartiallyRolledBack 表示补偿都已执行，但至少一项只能部分撤销（如 CA 不允许删除身份而改为吊销）。
	StatusPartiallyRolledBack Status = "PARTIALLY_ROLLED_BACK"
)

// Compensation 表示失败后执行的一次补偿
type Compensation struct {
	Stage        string    `json:"stage"`             // 被撤销的阶段
	Succeeded    bool      `json:"succeeded"`         // 补偿是否成功
	Partial      bool      `json:"partial,omitempty"` // 补偿成功但未能完全撤销该阶段
	Error        string    `json:"error,omitempty"`   // 补偿失败的原因
	TimeExecuted time.Time `json:"timeExecuted"`      // 执行时间
}

// Record 表示一次组织加入流程的记录
type Record struct {
	ID            string            `json:"id"`                    // 流程 ID（Snowflake）
	OrgName       string            `json:"orgName"`               // 组织名
	MSPID         string            `json:"mspId"`                 // 组织 MSP ID
	Status        Status            `json:"status"`                // 状态
	LastStage     string            `json:"lastStage,omitempty"`   // 最后完成的阶段
	FailedStage   string            `json:"failedStage,omitempty"` // 失败的阶段
	TxID          string            `json:"txId,omitempty"`        // 配置更新的交易 ID
	ErrorKind     string            `json:"errorKind,omitempty"`   // 错误类型
	Error         string            `json:"error,omitempty"`       // 错误信息
	Artifacts     map[string]string `json:"artifacts,omitempty"`   // 归档的配置快照（名称 -> 位置）
	Compensations []Compensation    `json:"compensations,omitempty"`
	TimeStarted   time.Time         `json:"timeStarted"`
	TimeFinished  *time.Time        `json:"timeFinished,omitempty"`
}
