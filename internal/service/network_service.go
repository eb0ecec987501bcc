package service

import (
	"context"
	"path/filepath"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	log "github.com/sirupsen/logrus"
)

// NetworkService sequences channel and chaincode workflows. Every call opens its own ledger session with the identity the operation requires.
type NetworkService struct {
	*Info
}

// NewNetworkService creates a network service.
func NewNetworkService(info *Info) *NetworkService {
	return &NetworkService{Info: info}
}

// channelCreation tracks the stage a channel creation has reached.
type channelCreation struct {
	name  string
	stage ChannelCreationStage
}

func (c *channelCreation) advance(stage ChannelCreationStage) {
	log.Debugf("通道 '%v' 的创建进入阶段 %v", c.name, stage)
	c.stage = stage
}

func (c *channelCreation) fail(err error) error {
	log.Errorf("通道 '%v' 的创建在阶段 %v 后失败: %v", c.name, c.stage, err)

	stageDetail := "失败前阶段: " + string(c.stage)
	if e, ok := errorcode.As(err); ok {
		return e.WithDetails(stageDetail)
	}
	return errorcode.Wrap(err, errorcode.KindInternal, "无法创建通道 '%v'", c.name).WithDetails(stageDetail)
}

// CreateChannel generates the channel config transaction with the artifact script, extracts and signs the config update with the channel signer and submits it. A script failure aborts the creation before anything is sent to the orderer.
//
// Parameters:
//
//	channel name
//
// Returns:
//
//	the creation result
func (s *NetworkService) CreateChannel(ctx context.Context, channelName string) (*ChannelCreation, error) {
	if err := checkName("通道名", channelName); err != nil {
		return nil, err
	}

	defer timingutils.GetDeferrableTimingLogger("创建通道 " + channelName)()

	creation := &channelCreation{name: channelName, stage: ChannelUninitialized}

	session, err := s.openSession(ctx, identity.RoleChannelSigner)
	if err != nil {
		return nil, creation.fail(err)
	}
	defer session.Close()
	creation.advance(ChannelSigningIdentitySet)

	channelSettings := s.Settings.Channel
	spec := gateway.ScriptSpec{
		Path: s.Settings.Scripts.GenerateArtifacts,
		Args: []string{
			"-g", channelSettings.GenesisProfile,
			"-s", channelSettings.ChannelProfile,
			"-c", channelName,
			"-a", channelSettings.AnchorOrg,
			"-d", channelSettings.ConfigDir,
			"-o", channelSettings.ArtifactsDir,
		},
		Timeout: s.Settings.Scripts.Timeout,
	}
	if err = s.Gateway.RunScript(ctx, spec); err != nil {
		return nil, creation.fail(err)
	}
	creation.advance(ChannelArtifactsGenerated)

	envelope, err := s.Gateway.ReadFile(filepath.Join(channelSettings.ArtifactsDir, channelName+".tx"))
	if err != nil {
		return nil, creation.fail(err)
	}

	config, err := session.ExtractChannelConfig(envelope)
	if err != nil {
		return nil, creation.fail(err)
	}
	creation.advance(ChannelConfigExtracted)

	signature, err := session.SignChannelConfig(config)
	if err != nil {
		return nil, creation.fail(err)
	}
	creation.advance(ChannelConfigSigned)

	req := &bcao.ChannelRequest{
		Name:       channelName,
		Orderer:    channelSettings.OrdererName,
		Signatures: [][]byte{signature},
		Config:     config,
	}
	resp, err := session.SubmitChannelRequest(ctx, req)
	if err != nil {
		return nil, creation.fail(err)
	}
	creation.advance(ChannelSubmitted)

	if err = requireSuccess(resp); err != nil {
		return nil, creation.fail(err)
	}
	creation.advance(ChannelCreationSucceeded)

	log.Infof("已创建通道 '%v'，交易 ID 为 '%v'", channelName, resp.TxID)
	return &ChannelCreation{
		ChannelName: channelName,
		Stage:       creation.stage,
		TxID:        resp.TxID,
		Status:      resp.Status,
	}, nil
}

// JoinChannel joins the peers to the channel in one batch. Peers that joined stay joined even if another peer fails.
//
// Parameters:
//
//	channel name
//	peer names. The default peers are used if empty.
func (s *NetworkService) JoinChannel(ctx context.Context, channelName string, peers []string) (*ChannelJoin, error) {
	if err := checkName("通道名", channelName); err != nil {
		return nil, err
	}
	peers = s.peersOrDefault(peers)

	defer timingutils.GetDeferrableTimingLogger("加入通道 " + channelName)()

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	// 初始化通道：从排序节点载入当前配置
	if _, err = session.QueryLastConfig(ctx, channelName); err != nil {
		return nil, err
	}

	genesisBlock, err := session.QueryGenesisBlock(ctx, channelName)
	if err != nil {
		return nil, err
	}

	set, err := session.SendJoinProposal(ctx, genesisBlock, peers)
	if err != nil {
		return nil, err
	}
	if err = set.Validate(); err != nil {
		log.Errorf("节点 %v 未能加入通道 '%v'", set.FailedEndorsers(), channelName)
		return nil, err
	}

	log.Infof("已将节点 %v 加入通道 '%v'", peers, channelName)
	return &ChannelJoin{ChannelName: channelName, Peers: peers, TxID: set.TxID}, nil
}

// InstallChaincode sends one install proposal to all the peers. Every peer must return 200.
//
// Parameters:
//
//	peer names. The default peers are used if empty.
//	chaincode ID
//	chaincode version
func (s *NetworkService) InstallChaincode(ctx context.Context, peers []string, chaincodeID, version string) (*bcao.TransactionCreationInfo, error) {
	if err := checkName("链码 ID", chaincodeID); err != nil {
		return nil, err
	}
	if err := checkChaincodeVersion(version); err != nil {
		return nil, err
	}

	defer timingutils.GetDeferrableTimingLogger("安装链码 " + chaincodeID)()

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	req := &bcao.ChaincodeRequest{
		Targets:     s.peersOrDefault(peers),
		ChaincodeID: chaincodeID,
		Version:     version,
		Path:        s.Settings.Chaincode.Path,
	}
	set, err := session.SendInstallProposal(ctx, req)
	if err != nil {
		return nil, err
	}
	if err = set.Validate(); err != nil {
		return nil, err
	}

	log.Infof("已在节点 %v 上安装链码 '%v:%v'", req.Targets, chaincodeID, version)
	return &bcao.TransactionCreationInfo{TransactionID: set.TxID}, nil
}

// InstantiateChaincode endorses the instantiation on all the peers and then submits it to the orderer. Nothing is submitted if any endorsement fails.
func (s *NetworkService) InstantiateChaincode(ctx context.Context, invocation *ChaincodeInvocation) (*bcao.TransactionCreationInfo, error) {
	if err := checkInvocation(invocation); err != nil {
		return nil, err
	}
	if err := checkChaincodeVersion(invocation.Version); err != nil {
		return nil, err
	}

	defer timingutils.GetDeferrableTimingLogger("实例化链码 " + invocation.ChaincodeID)()

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	req := s.newChaincodeRequest(invocation)
	req.Path = s.Settings.Chaincode.Path
	req.Policy = s.Settings.Chaincode.Policy
	set, err := session.SendInstantiateProposal(ctx, invocation.ChannelName, req)
	if err != nil {
		return nil, err
	}

	info, err := endorseAndSubmit(ctx, session, set)
	if err != nil {
		return nil, err
	}

	log.Infof("已在通道 '%v' 上实例化链码 '%v:%v'", invocation.ChannelName, invocation.ChaincodeID, invocation.Version)
	return info, nil
}

// InvokeChaincode endorses the invocation on all the peers and then submits it to the orderer. Nothing is submitted if any endorsement fails.
func (s *NetworkService) InvokeChaincode(ctx context.Context, invocation *ChaincodeInvocation) (*bcao.TransactionCreationInfo, error) {
	if err := checkInvocation(invocation); err != nil {
		return nil, err
	}

	defer timingutils.GetDeferrableTimingLogger("调用链码 " + invocation.ChaincodeID + "." + invocation.Fcn)()

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	set, err := session.SendInvokeProposal(ctx, invocation.ChannelName, s.newChaincodeRequest(invocation))
	if err != nil {
		return nil, err
	}

	info, err := endorseAndSubmit(ctx, session, set)
	if err != nil {
		return nil, err
	}

	log.Infof("已在通道 '%v' 上调用链码 '%v' 的 '%v'", invocation.ChannelName, invocation.ChaincodeID, invocation.Fcn)
	return info, nil
}

func (s *NetworkService) QueryChannels(ctx context.Context, peer string) ([]string, error) {
	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.QueryChannels(ctx, s.peerOrDefault(peer))
}

func (s *NetworkService) QueryInstalledChaincodes(ctx context.Context, peer string) ([]*bcao.ChaincodeInfo, error) {
	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	infos, err := session.QueryInstalledChaincodes(ctx, s.peerOrDefault(peer))
	if err != nil {
		return nil, err
	}

	return sortChaincodes(infos), nil
}

func (s *NetworkService) QueryInstantiatedChaincodes(ctx context.Context, channelName, peer string) ([]*bcao.ChaincodeInfo, error) {
	if err := checkName("通道名", channelName); err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	infos, err := session.QueryInstantiatedChaincodes(ctx, channelName, s.peerOrDefault(peer))
	if err != nil {
		return nil, err
	}

	return sortChaincodes(infos), nil
}

func (s *NetworkService) QueryChannelInfo(ctx context.Context, channelName, peer string) (*bcao.ChannelInfo, error) {
	if err := checkName("通道名", channelName); err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.QueryChannelInfo(ctx, channelName, s.peerOrDefault(peer))
}

func (s *NetworkService) newChaincodeRequest(invocation *ChaincodeInvocation) *bcao.ChaincodeRequest {
	return &bcao.ChaincodeRequest{
		Targets:     s.peersOrDefault(invocation.Peers),
		ChaincodeID: invocation.ChaincodeID,
		Version:     invocation.Version,
		Fcn:         invocation.Fcn,
		Args:        invocation.Args,
	}
}

func (s *NetworkService) peersOrDefault(peers []string) []string {
	if len(peers) == 0 {
		return append([]string(nil), s.Settings.DefaultPeers...)
	}
	return peers
}

func (s *NetworkService) peerOrDefault(peer string) string {
	if peer == "" && len(s.Settings.DefaultPeers) > 0 {
		return s.Settings.DefaultPeers[0]
	}
	return peer
}
