package bcao

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/identity"
)

// ILedgerSession is a client context bound to exactly one admin identity. A session belongs to one workflow and must not be shared across concurrent workflows.
type ILedgerSession interface {
	Identity() *identity.AdminIdentity

	// ExtractChannelConfig 从通道配置交易（envelope）中提取编码后的 `common.ConfigUpdate`。
	ExtractChannelConfig(envelope []byte) ([]byte, error)
	// SignChannelConfig 以会话身份对配置更新签名，返回序列化后的 `common.ConfigSignature`。
	SignChannelConfig(config []byte) ([]byte, error)
	// SubmitChannelRequest 向排序节点提交通道创建或更新请求。每次调用都会生成新的交易 ID 并写入 `req.TxID`。
	SubmitChannelRequest(ctx context.Context, req *ChannelRequest) (*BroadcastResponse, error)
	// QueryLastConfig 从排序节点获取通道当前的配置（编码后的 `common.Config`）。
	QueryLastConfig(ctx context.Context, channelID string) ([]byte, error)
	// QueryGenesisBlock 从排序节点获取通道的创世区块（编码后的 `common.Block`）。
	QueryGenesisBlock(ctx context.Context, channelID string) ([]byte, error)

	SendJoinProposal(ctx context.Context, genesisBlock []byte, peers []string) (*ProposalResponseSet, error)
	SendInstallProposal(ctx context.Context, req *ChaincodeRequest) (*ProposalResponseSet, error)
	SendInstantiateProposal(ctx context.Context, channelID string, req *ChaincodeRequest) (*ProposalResponseSet, error)
	SendInvokeProposal(ctx context.Context, channelID string, req *ChaincodeRequest) (*ProposalResponseSet, error)
	// SubmitTransaction 将背书后的交易提交给排序节点。调用方必须先确认 `set.Validate()` 通过。
	SubmitTransaction(ctx context.Context, set *ProposalResponseSet) (*BroadcastResponse, error)

	QueryChannels(ctx context.Context, peer string) ([]string, error)
	QueryInstalledChaincodes(ctx context.Context, peer string) ([]*ChaincodeInfo, error)
	QueryInstantiatedChaincodes(ctx context.Context, channelID, peer string) ([]*ChaincodeInfo, error)
	QueryChannelInfo(ctx context.Context, channelID, peer string) (*ChannelInfo, error)

	Close()
}

// ISessionFactory creates a fresh session per workflow invocation.
type ISessionFactory interface {
	NewSession(ctx context.Context, id *identity.AdminIdentity) (ILedgerSession, error)
}
