package appinit

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/service"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// InitApp creates and joins channels, then installs and instantiates chaincodes according to the init info. It stops at the first failure.
func InitApp(ctx context.Context, initInfo *InitInfo, networkSvc service.INetworkService) error {
	if err := configureChannels(ctx, initInfo.Channels, networkSvc); err != nil {
		return err
	}

	return configureChaincodes(ctx, initInfo.Chaincodes, networkSvc)
}

func configureChannels(ctx context.Context, channels []*ChannelInfo, networkSvc service.INetworkService) error {
	for _, channelInfo := range channels {
		if channelInfo.Create {
			creation, err := networkSvc.CreateChannel(ctx, channelInfo.Name)
			if err != nil {
				return errors.Wrapf(err, "无法创建通道 '%v'", channelInfo.Name)
			}
			log.Infof("已创建通道 '%v'，交易 ID 为 '%v'", channelInfo.Name, creation.TxID)
		}

		join, err := networkSvc.JoinChannel(ctx, channelInfo.Name, channelInfo.Peers)
		if err != nil {
			return errors.Wrapf(err, "无法将节点加入通道 '%v'", channelInfo.Name)
		}
		log.Infof("节点 %v 已加入通道 '%v'", join.Peers, channelInfo.Name)
	}

	return nil
}

func configureChaincodes(ctx context.Context, chaincodes []*ChaincodeInfo, networkSvc service.INetworkService) error {
	for _, chaincodeInfo := range chaincodes {
		if _, err := networkSvc.InstallChaincode(ctx, chaincodeInfo.Peers, chaincodeInfo.ID, chaincodeInfo.Version); err != nil {
			return errors.Wrapf(err, "无法安装链码 '%v:%v'", chaincodeInfo.ID, chaincodeInfo.Version)
		}

		for _, instantiation := range chaincodeInfo.Instantiations {
			args := make([][]byte, len(instantiation.InitArgs))
			for i, arg := range instantiation.InitArgs {
				args[i] = []byte(arg)
			}

			info, err := networkSvc.InstantiateChaincode(ctx, &service.ChaincodeInvocation{
				ChannelName: instantiation.Channel,
				Peers:       instantiation.Peers,
				ChaincodeID: chaincodeInfo.ID,
				Version:     chaincodeInfo.Version,
				Fcn:         instantiation.InitFcn,
				Args:        args,
			})
			if err != nil {
				return errors.Wrapf(err, "无法在通道 '%v' 上实例化链码 '%v'", instantiation.Channel, chaincodeInfo.ID)
			}
			log.Infof("已在通道 '%v' 上实例化链码 '%v:%v'，交易 ID 为 '%v'", instantiation.Channel, chaincodeInfo.ID, chaincodeInfo.Version, info.TransactionID)
		}
	}

	return nil
}
