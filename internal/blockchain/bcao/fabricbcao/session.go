package fabricbcao

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/networkinfo"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	contextApi "github.com/hyperledger/fabric-sdk-go/pkg/common/providers/context"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	contextImpl "github.com/hyperledger/fabric-sdk-go/pkg/context"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/ccpackager/gopackager"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/resource"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/txn"
	"github.com/hyperledger/fabric-sdk-go/third_party/github.com/hyperledger/fabric/common/policydsl"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	csccName = "cscc"
	lsccName = "lscc"
	qsccName = "qscc"
)

// Session implements `bcao.ILedgerSession` on top of the low-level transaction API of the Fabric SDK. Every request is signed by the identity of the session.
type Session struct {
	id          *identity.AdminIdentity
	client      contextApi.Client
	network     *networkinfo.FabricNetworkConfig
	ordererName string
	goPath      string
	closed      bool
}

func (s *Session) Identity() *identity.AdminIdentity {
	return s.id
}

func (s *Session) newRequestContext(parent context.Context, timeoutType fab.TimeoutType) (context.Context, context.CancelFunc) {
	return contextImpl.NewRequest(s.client, contextImpl.WithTimeoutType(timeoutType), contextImpl.WithParent(parent))
}

func (s *Session) orderer() (fab.Orderer, error) {
	url, ok := s.network.OrdererURL(s.ordererName)
	if !ok {
		return nil, errorcode.New(errorcode.KindLedger, "SDK 配置中没有排序节点 '%v'", s.ordererName)
	}

	for _, ordererCfg := range s.client.EndpointConfig().OrderersConfig() {
		if ordererCfg.URL != url {
			continue
		}
		cfg := ordererCfg
		orderer, err := s.client.InfraProvider().CreateOrdererFromConfig(&cfg)
		if err != nil {
			return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法连接排序节点 '%v'", s.ordererName)
		}
		return orderer, nil
	}

	return nil, errorcode.New(errorcode.KindLedger, "无法找到排序节点 '%v' 的配置", s.ordererName)
}

func (s *Session) peers(names []string) ([]fab.ProposalProcessor, error) {
	if len(names) == 0 {
		return nil, errorcode.New(errorcode.KindBadRequest, "目标节点不能为空")
	}

	networkPeers := s.client.EndpointConfig().NetworkPeers()
	var ret []fab.ProposalProcessor
	for _, name := range names {
		url, ok := s.network.PeerURL(name)
		if !ok {
			return nil, errorcode.New(errorcode.KindBadRequest, "SDK 配置中没有节点 '%v'", name)
		}

		var target fab.Peer
		for _, np := range networkPeers {
			if np.URL != url {
				continue
			}
			cfg := np
			peer, err := s.client.InfraProvider().CreatePeerFromConfig(&cfg)
			if err != nil {
				return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法连接节点 '%v'", name)
			}
			target = peer
			break
		}
		if target == nil {
			return nil, errorcode.New(errorcode.KindBadRequest, "无法找到节点 '%v' 的配置", name)
		}
		ret = append(ret, target)
	}

	return ret, nil
}

// pendingProposal holds what the SDK needs to assemble a transaction from endorsements.
type pendingProposal struct {
	proposal  *fab.TransactionProposal
	responses []*fab.TransactionProposalResponse
}

func (s *Session) toResponseSet(targets []string, proposal *fab.TransactionProposal, resps []*fab.TransactionProposalResponse, sendErr error) *bcao.ProposalResponseSet {
	set := &bcao.ProposalResponseSet{
		TxID:      string(proposal.TxnID),
		Targets:   append([]string(nil), targets...),
		Proposal:  &pendingProposal{proposal: proposal, responses: resps},
		SendError: toMultierr(sendErr),
	}

	for _, r := range resps {
		resp := &bcao.ProposalResponse{
			Endorser: s.network.PeerName(r.Endorser),
			Status:   r.Status,
		}
		if r.ProposalResponse != nil && r.ProposalResponse.Response != nil {
			resp.Message = r.ProposalResponse.Response.Message
			resp.Payload = r.ProposalResponse.Response.Payload
		}
		set.Responses = append(set.Responses, resp)
	}

	return set
}

// propose creates a proposal for a chaincode call on the channel and sends it to all the targets in one batch.
func (s *Session) propose(ctx context.Context, channelID string, targets []string, invokeReq fab.ChaincodeInvokeRequest) (*bcao.ProposalResponseSet, error) {
	processors, err := s.peers(targets)
	if err != nil {
		return nil, err
	}

	txh, err := txn.NewHeader(s.client, channelID)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法创建交易头")
	}

	proposal, err := txn.CreateChaincodeInvokeProposal(txh, invokeReq)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法创建提案 '%v.%v'", invokeReq.ChaincodeID, invokeReq.Fcn)
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.PeerResponse)
	defer cancel()

	resps, sendErr := sendProposalWithTimer(reqCtx, proposal, processors, "发送提案 "+invokeReq.ChaincodeID+"."+invokeReq.Fcn)
	return s.toResponseSet(targets, proposal, resps, sendErr), nil
}

func (s *Session) ExtractChannelConfig(envelope []byte) ([]byte, error) {
	config, err := resource.ExtractChannelConfig(envelope)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法从通道配置交易中提取配置")
	}

	return config, nil
}

func (s *Session) SignChannelConfig(config []byte) ([]byte, error) {
	signature, err := resource.CreateConfigSignature(s.client, config)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法以 '%v' 身份签名通道配置", s.id.Role)
	}

	signatureBytes, err := proto.Marshal(signature)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化配置签名")
	}

	return signatureBytes, nil
}

func (s *Session) SubmitChannelRequest(ctx context.Context, req *bcao.ChannelRequest) (*bcao.BroadcastResponse, error) {
	signatures := make([]*common.ConfigSignature, 0, len(req.Signatures))
	for _, signatureBytes := range req.Signatures {
		signature := &common.ConfigSignature{}
		if err := proto.Unmarshal(signatureBytes, signature); err != nil {
			return nil, errors.Wrap(err, "无法解析配置签名")
		}
		signatures = append(signatures, signature)
	}

	orderer, err := s.orderer()
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.OrdererResponse)
	defer cancel()

	txID, err := resource.CreateChannel(reqCtx, resource.CreateChannelRequest{
		Name:       req.Name,
		Orderer:    orderer,
		Config:     req.Config,
		Signatures: signatures,
	})
	req.TxID = string(txID)
	log.Debugf("通道 '%v' 的请求已提交，交易 ID 为 '%v'", req.Name, req.TxID)

	return toBroadcastResponse("提交通道 '"+req.Name+"' 的请求", req.TxID, err)
}

func (s *Session) QueryLastConfig(ctx context.Context, channelID string) ([]byte, error) {
	orderer, err := s.orderer()
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.OrdererResponse)
	defer cancel()

	block, err := resource.LastConfigFromOrderer(reqCtx, channelID, orderer)
	if err != nil {
		return nil, bcao.GetClassifiedError("获取通道 '"+channelID+"' 的配置", err)
	}

	configBytes, err := configFromBlock(block)
	if err != nil {
		return nil, errors.Wrapf(err, "无法解析通道 '%v' 的配置区块", channelID)
	}

	return configBytes, nil
}

func (s *Session) QueryGenesisBlock(ctx context.Context, channelID string) ([]byte, error) {
	orderer, err := s.orderer()
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.OrdererResponse)
	defer cancel()

	block, err := resource.GenesisBlockFromOrderer(reqCtx, channelID, orderer)
	if err != nil {
		return nil, bcao.GetClassifiedError("获取通道 '"+channelID+"' 的创世区块", err)
	}

	blockBytes, err := proto.Marshal(block)
	if err != nil {
		return nil, errors.Wrapf(err, "无法序列化通道 '%v' 的创世区块", channelID)
	}

	return blockBytes, nil
}

func (s *Session) SendJoinProposal(ctx context.Context, genesisBlock []byte, peers []string) (*bcao.ProposalResponseSet, error) {
	return s.propose(ctx, fab.SystemChannel, peers, fab.ChaincodeInvokeRequest{
		ChaincodeID: csccName,
		Fcn:         "JoinChain",
		Args:        [][]byte{genesisBlock},
	})
}

func (s *Session) SendInstallProposal(ctx context.Context, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	processors, err := s.peers(req.Targets)
	if err != nil {
		return nil, err
	}

	ccPkg, err := gopackager.NewCCPackage(req.Path, s.goPath)
	if err != nil {
		return nil, errors.Wrapf(err, "无法打包链码 '%v'", req.Path)
	}

	txh, err := txn.NewHeader(s.client, fab.SystemChannel)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法创建交易头")
	}

	proposal, err := resource.CreateChaincodeInstallProposal(txh, resource.ChaincodeInstallRequest{
		Name:    req.ChaincodeID,
		Path:    req.Path,
		Version: req.Version,
		Package: &resource.ChaincodePackage{Type: ccPkg.Type, Code: ccPkg.Code},
	})
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法创建链码 '%v' 的安装提案", req.ChaincodeID)
	}
	req.TxID = string(proposal.TxnID)

	reqCtx, cancel := s.newRequestContext(ctx, fab.ResMgmt)
	defer cancel()

	resps, sendErr := sendProposalWithTimer(reqCtx, proposal, processors, "安装链码 "+req.ChaincodeID)
	return s.toResponseSet(req.Targets, proposal, resps, sendErr), nil
}

func (s *Session) SendInstantiateProposal(ctx context.Context, channelID string, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	policy, err := policydsl.FromString(req.Policy)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindBadRequest, "无法解析背书策略 '%v'", req.Policy)
	}

	policyBytes, err := proto.Marshal(policy)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化背书策略")
	}

	ccds := &pb.ChaincodeDeploymentSpec{
		ChaincodeSpec: &pb.ChaincodeSpec{
			Type: pb.ChaincodeSpec_GOLANG,
			ChaincodeId: &pb.ChaincodeID{
				Name:    req.ChaincodeID,
				Path:    req.Path,
				Version: req.Version,
			},
			Input: &pb.ChaincodeInput{Args: append([][]byte{[]byte(req.Fcn)}, req.Args...)},
		},
	}
	ccdsBytes, err := proto.Marshal(ccds)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化链码部署描述")
	}

	set, err := s.propose(ctx, channelID, req.Targets, fab.ChaincodeInvokeRequest{
		ChaincodeID: lsccName,
		Fcn:         "deploy",
		Args:        [][]byte{[]byte(channelID), ccdsBytes, policyBytes, []byte("escc"), []byte("vscc")},
	})
	if err != nil {
		return nil, err
	}

	req.TxID = set.TxID
	return set, nil
}

func (s *Session) SendInvokeProposal(ctx context.Context, channelID string, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	set, err := s.propose(ctx, channelID, req.Targets, fab.ChaincodeInvokeRequest{
		ChaincodeID: req.ChaincodeID,
		Fcn:         req.Fcn,
		Args:        req.Args,
	})
	if err != nil {
		return nil, err
	}

	req.TxID = set.TxID
	return set, nil
}

func (s *Session) SubmitTransaction(ctx context.Context, set *bcao.ProposalResponseSet) (*bcao.BroadcastResponse, error) {
	pending, ok := set.Proposal.(*pendingProposal)
	if !ok || pending == nil {
		return nil, errors.New("提案不是由该会话创建的")
	}

	tx, err := txn.New(fab.TransactionRequest{
		Proposal:          pending.proposal,
		ProposalResponses: pending.responses,
	})
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法由背书结果构造交易 '%v'", set.TxID)
	}

	orderer, err := s.orderer()
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.OrdererResponse)
	defer cancel()

	_, err = txn.Send(reqCtx, tx, []fab.Orderer{orderer})
	return toBroadcastResponse("提交交易 '"+set.TxID+"'", set.TxID, err)
}

func (s *Session) query(ctx context.Context, channelID string, peer string, invokeReq fab.ChaincodeInvokeRequest) ([]byte, error) {
	set, err := s.propose(ctx, channelID, []string{peer}, invokeReq)
	if err != nil {
		return nil, err
	}

	pending := set.Proposal.(*pendingProposal)
	payload, err := requireSingleResponse(peer, pending.responses, set.SendError)
	if err != nil {
		return nil, bcao.GetClassifiedError("查询 "+invokeReq.ChaincodeID+"."+invokeReq.Fcn, err)
	}

	return payload, nil
}

func (s *Session) QueryChannels(ctx context.Context, peer string) ([]string, error) {
	processors, err := s.peers([]string{peer})
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.PeerResponse)
	defer cancel()

	resp, err := resource.QueryChannels(reqCtx, processors[0])
	if err != nil {
		return nil, bcao.GetClassifiedError("查询节点 '"+peer+"' 加入的通道", err)
	}

	ret := []string{}
	for _, ch := range resp.Channels {
		ret = append(ret, ch.ChannelId)
	}
	return ret, nil
}

func toChaincodeInfos(chaincodes []*pb.ChaincodeInfo) []*bcao.ChaincodeInfo {
	ret := []*bcao.ChaincodeInfo{}
	for _, cc := range chaincodes {
		ret = append(ret, &bcao.ChaincodeInfo{Name: cc.Name, Version: cc.Version, Path: cc.Path})
	}
	return ret
}

func (s *Session) QueryInstalledChaincodes(ctx context.Context, peer string) ([]*bcao.ChaincodeInfo, error) {
	processors, err := s.peers([]string{peer})
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := s.newRequestContext(ctx, fab.PeerResponse)
	defer cancel()

	resp, err := resource.QueryInstalledChaincodes(reqCtx, processors[0])
	if err != nil {
		return nil, bcao.GetClassifiedError("查询节点 '"+peer+"' 安装的链码", err)
	}

	return toChaincodeInfos(resp.Chaincodes), nil
}

func (s *Session) QueryInstantiatedChaincodes(ctx context.Context, channelID, peer string) ([]*bcao.ChaincodeInfo, error) {
	payload, err := s.query(ctx, channelID, peer, fab.ChaincodeInvokeRequest{ChaincodeID: lsccName, Fcn: "getchaincodes"})
	if err != nil {
		return nil, err
	}

	resp := &pb.ChaincodeQueryResponse{}
	if err = proto.Unmarshal(payload, resp); err != nil {
		return nil, errors.Wrap(err, "无法解析已实例化的链码")
	}

	return toChaincodeInfos(resp.Chaincodes), nil
}

func (s *Session) QueryChannelInfo(ctx context.Context, channelID, peer string) (*bcao.ChannelInfo, error) {
	payload, err := s.query(ctx, channelID, peer, fab.ChaincodeInvokeRequest{
		ChaincodeID: qsccName,
		Fcn:         "GetChainInfo",
		Args:        [][]byte{[]byte(channelID)},
	})
	if err != nil {
		return nil, err
	}

	info := &common.BlockchainInfo{}
	if err = proto.Unmarshal(payload, info); err != nil {
		return nil, errors.Wrap(err, "无法解析通道信息")
	}

	return &bcao.ChannelInfo{
		Height:            info.Height,
		CurrentBlockHash:  hexOf(info.CurrentBlockHash),
		PreviousBlockHash: hexOf(info.PreviousBlockHash),
	}, nil
}

func (s *Session) Close() {
	if s.closed {
		return
	}

	s.closed = true
	log.Debugf("已关闭 '%v' 身份的会话", s.id.Role)
}
