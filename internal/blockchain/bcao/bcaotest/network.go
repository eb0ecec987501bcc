// Package bcaotest provides an in-memory ledger network for tests. It is not wired into any binary.
package bcaotest

import (
	"context"
	"fmt"
	"sync"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"go.uber.org/multierr"
)

// Network is an in-memory ledger network. It implements `bcao.ISessionFactory` and records every call made through its sessions.
type Network struct {
	mu    sync.Mutex
	txSeq int

	// PeerStatus 为各节点对提案的响应状态码，未列出的节点返回 200。
	PeerStatus map[string]int32
	// SilentPeers 中的节点不响应提案（视为超时）。
	SilentPeers map[string]bool
	// OrdererStatus 为排序节点的响应状态，为空时返回 SUCCESS。
	OrdererStatus string
	SubmitError   error
	SessionError  error
	ExtractError  error

	// Configs 以通道名为键，保存通道当前的编码配置。
	Configs map[string][]byte

	Calls           []string
	Identities      []*identity.AdminIdentity
	ChannelRequests []bcao.ChannelRequest
	Transactions    []*bcao.ProposalResponseSet
	Joined          map[string][]string
	Installed       map[string][]*bcao.ChaincodeInfo
	Instantiated    map[string][]*bcao.ChaincodeInfo
	openSessions    int
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		PeerStatus:   map[string]int32{},
		SilentPeers:  map[string]bool{},
		Configs:      map[string][]byte{},
		Joined:       map[string][]string{},
		Installed:    map[string][]*bcao.ChaincodeInfo{},
		Instantiated: map[string][]*bcao.ChaincodeInfo{},
	}
}

func (n *Network) NewSession(ctx context.Context, id *identity.AdminIdentity) (bcao.ILedgerSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.SessionError != nil {
		return nil, n.SessionError
	}
	if id == nil {
		return nil, errorcode.New(errorcode.KindIdentity, "会话需要身份")
	}

	n.Identities = append(n.Identities, id)
	n.openSessions++
	n.Calls = append(n.Calls, fmt.Sprintf("%v:open", id.Role))
	return &session{network: n, id: id}, nil
}

// OpenSessions returns the number of sessions not closed yet.
func (n *Network) OpenSessions() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.openSessions
}

// CallLog returns a copy of the recorded calls formatted as "<role>:<operation>".
func (n *Network) CallLog() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.Calls...)
}

func (n *Network) record(id *identity.AdminIdentity, op string) {
	n.Calls = append(n.Calls, fmt.Sprintf("%v:%v", id.Role, op))
}

func (n *Network) nextTxID() string {
	n.txSeq++
	return fmt.Sprintf("tx%d", n.txSeq)
}

func (n *Network) ordererStatus() string {
	if n.OrdererStatus == "" {
		return bcao.StatusSuccess
	}
	return n.OrdererStatus
}

func (n *Network) endorse(txID string, peers []string, proposal *pendingTx) *bcao.ProposalResponseSet {
	set := &bcao.ProposalResponseSet{
		TxID:     txID,
		Targets:  append([]string(nil), peers...),
		Proposal: proposal,
	}
	for _, p := range peers {
		if n.SilentPeers[p] {
			set.SendError = multierr.Append(set.SendError, fmt.Errorf("%v: context deadline exceeded", p))
			continue
		}

		status, ok := n.PeerStatus[p]
		if !ok {
			status = bcao.StatusOK
		}
		set.Responses = append(set.Responses, &bcao.ProposalResponse{Endorser: p, Status: status})
	}

	return set
}

type txKind string

const (
	txJoin        txKind = "join"
	txInstall     txKind = "install"
	txInstantiate txKind = "instantiate"
	txInvoke      txKind = "invoke"
)

type pendingTx struct {
	kind      txKind
	channelID string
	req       *bcao.ChaincodeRequest
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
