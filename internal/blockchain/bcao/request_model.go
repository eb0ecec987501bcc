package bcao

// ChannelRequest carries a channel creation or update through its stages. `TxID` is filled in by the session on each submission attempt.
type ChannelRequest struct {
	Name    string
	Orderer string
	// Signatures 为序列化后的 `common.ConfigSignature`，按收集顺序排列。
	Signatures [][]byte
	// Config 为编码后的 `common.ConfigUpdate`。
	Config []byte
	TxID   string
}

// ChaincodeRequest describes a chaincode install, instantiate or invoke. Args are passed through unmodified.
type ChaincodeRequest struct {
	Targets     []string
	ChaincodeID string
	Version     string
	// Path 为链码在 GOPATH 下的路径，仅安装时使用。
	Path string
	Fcn  string
	Args [][]byte
	// Policy 为背书策略，仅实例化时使用，形如 `OR('Org1MSP.member')`。
	Policy string
	TxID   string
}

// ChaincodeInfo describes an installed or instantiated chaincode.
type ChaincodeInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

// ChannelInfo describes the ledger height of a channel as seen by a peer.
type ChannelInfo struct {
	Height            uint64 `json:"height"`
	CurrentBlockHash  string `json:"currentBlockHash"`
	PreviousBlockHash string `json:"previousBlockHash"`
}
