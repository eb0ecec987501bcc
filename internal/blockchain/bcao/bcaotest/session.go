package bcaotest

import (
	"context"
	"fmt"
	"strings"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
)

type session struct {
	network *Network
	id      *identity.AdminIdentity
	closed  bool
}

func (s *session) Identity() *identity.AdminIdentity {
	return s.id
}

func (s *session) ExtractChannelConfig(envelope []byte) ([]byte, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "extract")
	if n.ExtractError != nil {
		return nil, n.ExtractError
	}
	return append([]byte("update:"), envelope...), nil
}

func (s *session) SignChannelConfig(config []byte) ([]byte, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "sign")
	return []byte(fmt.Sprintf("sig(%v,%v)", s.id.MSPID, string(config))), nil
}

func (s *session) SubmitChannelRequest(ctx context.Context, req *bcao.ChannelRequest) (*bcao.BroadcastResponse, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "submitChannel:"+req.Name)
	req.TxID = n.nextTxID()
	n.ChannelRequests = append(n.ChannelRequests, *req)
	if n.SubmitError != nil {
		return nil, n.SubmitError
	}

	resp := &bcao.BroadcastResponse{TxID: req.TxID, Status: n.ordererStatus()}
	// 只有新建通道时记录配置；提交的更新并非完整配置
	if _, exists := n.Configs[req.Name]; resp.IsSuccess() && !exists {
		n.Configs[req.Name] = append([]byte(nil), req.Config...)
	}
	return resp, nil
}

func (s *session) QueryLastConfig(ctx context.Context, channelID string) ([]byte, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "lastConfig:"+channelID)
	config, ok := n.Configs[channelID]
	if !ok {
		return nil, errorcode.New(errorcode.KindLedger, "通道 '%v' 不存在", channelID)
	}
	return append([]byte(nil), config...), nil
}

func (s *session) QueryGenesisBlock(ctx context.Context, channelID string) ([]byte, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "genesis:"+channelID)
	if _, ok := n.Configs[channelID]; !ok {
		return nil, errorcode.New(errorcode.KindLedger, "通道 '%v' 不存在", channelID)
	}
	return []byte("genesis:" + channelID), nil
}

func (s *session) SendJoinProposal(ctx context.Context, genesisBlock []byte, peers []string) (*bcao.ProposalResponseSet, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "join")
	channelID := strings.TrimPrefix(string(genesisBlock), "genesis:")
	set := n.endorse(n.nextTxID(), peers, &pendingTx{kind: txJoin, channelID: channelID})
	for _, resp := range set.Responses {
		if resp.Status == bcao.StatusOK && !contains(n.Joined[channelID], resp.Endorser) {
			n.Joined[channelID] = append(n.Joined[channelID], resp.Endorser)
		}
	}
	return set, nil
}

func (s *session) SendInstallProposal(ctx context.Context, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "install:"+req.ChaincodeID)
	req.TxID = n.nextTxID()
	set := n.endorse(req.TxID, req.Targets, &pendingTx{kind: txInstall, req: req})
	for _, resp := range set.Responses {
		if resp.Status == bcao.StatusOK {
			n.Installed[resp.Endorser] = append(n.Installed[resp.Endorser], &bcao.ChaincodeInfo{Name: req.ChaincodeID, Version: req.Version, Path: req.Path})
		}
	}
	return set, nil
}

func (s *session) SendInstantiateProposal(ctx context.Context, channelID string, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "instantiate:"+req.ChaincodeID)
	req.TxID = n.nextTxID()
	return n.endorse(req.TxID, req.Targets, &pendingTx{kind: txInstantiate, channelID: channelID, req: req}), nil
}

func (s *session) SendInvokeProposal(ctx context.Context, channelID string, req *bcao.ChaincodeRequest) (*bcao.ProposalResponseSet, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "invoke:"+req.ChaincodeID)
	req.TxID = n.nextTxID()
	return n.endorse(req.TxID, req.Targets, &pendingTx{kind: txInvoke, channelID: channelID, req: req}), nil
}

func (s *session) SubmitTransaction(ctx context.Context, set *bcao.ProposalResponseSet) (*bcao.BroadcastResponse, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "submitTx")
	n.Transactions = append(n.Transactions, set)
	if n.SubmitError != nil {
		return nil, n.SubmitError
	}

	resp := &bcao.BroadcastResponse{TxID: set.TxID, Status: n.ordererStatus()}
	if tx, ok := set.Proposal.(*pendingTx); ok && tx.kind == txInstantiate && resp.IsSuccess() {
		n.Instantiated[tx.channelID] = append(n.Instantiated[tx.channelID], &bcao.ChaincodeInfo{Name: tx.req.ChaincodeID, Version: tx.req.Version})
	}
	return resp, nil
}

func (s *session) QueryChannels(ctx context.Context, peer string) ([]string, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "queryChannels")
	ret := []string{}
	for channelID, peers := range n.Joined {
		if contains(peers, peer) {
			ret = append(ret, channelID)
		}
	}
	return ret, nil
}

func (s *session) QueryInstalledChaincodes(ctx context.Context, peer string) ([]*bcao.ChaincodeInfo, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "queryInstalled")
	return append([]*bcao.ChaincodeInfo{}, n.Installed[peer]...), nil
}

func (s *session) QueryInstantiatedChaincodes(ctx context.Context, channelID, peer string) ([]*bcao.ChaincodeInfo, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "queryInstantiated")
	if !contains(n.Joined[channelID], peer) {
		return nil, errorcode.New(errorcode.KindLedger, "节点 '%v' 未加入通道 '%v'", peer, channelID)
	}
	return append([]*bcao.ChaincodeInfo{}, n.Instantiated[channelID]...), nil
}

func (s *session) QueryChannelInfo(ctx context.Context, channelID, peer string) (*bcao.ChannelInfo, error) {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(s.id, "queryChannelInfo")
	if !contains(n.Joined[channelID], peer) {
		return nil, errorcode.New(errorcode.KindLedger, "节点 '%v' 未加入通道 '%v'", peer, channelID)
	}
	return &bcao.ChannelInfo{Height: uint64(1 + len(n.Instantiated[channelID])), CurrentBlockHash: "00"}, nil
}

func (s *session) Close() {
	n := s.network
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	n.openSessions--
	n.record(s.id, "close")
}
