package service

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
)

// INetworkService 定义了通道与链码生命周期的服务接口。
type INetworkService interface {
	// 创建通道。生成通道配置交易文件，提取配置更新并签名后提交给排序节点。
	//
	// 参数：
	//   通道名
	//
	// 返回：
	//   通道创建结果
	CreateChannel(ctx context.Context, channelName string) (*ChannelCreation, error)

	// 将节点加入通道。任一节点失败即视为整体失败，已加入的节点不会回滚。
	//
	// 参数：
	//   通道名
	//   节点名列表
	JoinChannel(ctx context.Context, channelName string, peers []string) (*ChannelJoin, error)

	// 在节点上安装链码。所有节点都必须返回 200。
	InstallChaincode(ctx context.Context, peers []string, chaincodeID, version string) (*bcao.TransactionCreationInfo, error)

	// 实例化链码。背书全部通过后才提交给排序节点。
	InstantiateChaincode(ctx context.Context, req *ChaincodeInvocation) (*bcao.TransactionCreationInfo, error)

	// 调用链码。背书全部通过后才提交给排序节点。
	InvokeChaincode(ctx context.Context, req *ChaincodeInvocation) (*bcao.TransactionCreationInfo, error)

	QueryChannels(ctx context.Context, peer string) ([]string, error)
	QueryInstalledChaincodes(ctx context.Context, peer string) ([]*bcao.ChaincodeInfo, error)
	QueryInstantiatedChaincodes(ctx context.Context, channelName, peer string) ([]*bcao.ChaincodeInfo, error)
	QueryChannelInfo(ctx context.Context, channelName, peer string) (*bcao.ChannelInfo, error)
}
