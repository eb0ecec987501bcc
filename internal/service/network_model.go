package service

// ChannelCreationStage is a state of the channel creation state machine.
type ChannelCreationStage string

const (
	ChannelUninitialized      ChannelCreationStage = "Uninitialized"
	ChannelSigningIdentitySet ChannelCreationStage = "SigningIdentitySet"
	ChannelArtifactsGenerated ChannelCreationStage = "ArtifactsGenerated"
	ChannelConfigExtracted    ChannelCreationStage = "ConfigExtracted"
	ChannelConfigSigned       ChannelCreationStage = "ConfigSigned"
	ChannelSubmitted          ChannelCreationStage = "Submitted"
	ChannelCreationSucceeded  ChannelCreationStage = "Success"
	ChannelCreationFailed     ChannelCreationStage = "Failed"
)

// ChannelCreation 为通道创建成功后的结果。
type ChannelCreation struct {
	ChannelName string               `json:"channelName"`
	Stage       ChannelCreationStage `json:"stage"`
	TxID        string               `json:"txId"`
	Status      string               `json:"status"`
}

// ChannelJoin 为节点加入通道的结果。
type ChannelJoin struct {
	ChannelName string   `json:"channelName"`
	Peers       []string `json:"peers"`
	TxID        string   `json:"txId"`
}

// ChaincodeInvocation 描述一次链码实例化或调用。Args 原样传给链码。
type ChaincodeInvocation struct {
	ChannelName string
	Peers       []string
	ChaincodeID string
	Version     string
	Fcn         string
	Args        [][]byte
}
