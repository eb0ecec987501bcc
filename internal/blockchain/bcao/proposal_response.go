package bcao

import (
	"fmt"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"go.uber.org/multierr"
)

// StatusOK is the status code of a successful proposal response.
const StatusOK = 200

// ProposalResponse is the endorsement of one peer.
type ProposalResponse struct {
	// Endorser 为节点名，与发送提案时的目标名一致。
	Endorser string
	Status   int32
	Message  string
	Payload  []byte
}

// ProposalResponseSet is the outcome of one proposal fanned out to several peers.
type ProposalResponseSet struct {
	TxID      string
	Targets   []string
	Responses []*ProposalResponse
	// Proposal 为实现相关的原始提案与响应，提交交易时使用。
	Proposal interface{}
	// SendError 汇总了发送提案时各节点返回的传输错误。
	SendError error
}

// Validate checks the endorsements. Every target must have responded with status 200: a single missing or failed response invalidates the whole set.
func (s *ProposalResponseSet) Validate() error {
	if s == nil || len(s.Targets) == 0 {
		return errorcode.New(errorcode.KindEndorsement, "提案没有目标节点")
	}

	byEndorser := make(map[string]*ProposalResponse, len(s.Responses))
	for _, resp := range s.Responses {
		if resp != nil {
			byEndorser[resp.Endorser] = resp
		}
	}

	var details []string
	for _, target := range s.Targets {
		resp, ok := byEndorser[target]
		if !ok {
			details = append(details, fmt.Sprintf("%v: 无响应", target))
			continue
		}
		if resp.Status != StatusOK {
			details = append(details, fmt.Sprintf("%v: 状态码 %v %v", target, resp.Status, resp.Message))
		}
	}
	for _, err := range multierr.Errors(s.SendError) {
		details = append(details, err.Error())
	}

	if len(details) > 0 {
		return errorcode.New(errorcode.KindEndorsement, "交易 '%v' 的背书未通过", s.TxID).WithDetails(details...)
	}

	return nil
}

// FailedEndorsers returns the targets whose response is missing or not 200.
func (s *ProposalResponseSet) FailedEndorsers() []string {
	ok := map[string]bool{}
	for _, resp := range s.Responses {
		if resp != nil && resp.Status == StatusOK {
			ok[resp.Endorser] = true
		}
	}

	var ret []string
	for _, target := range s.Targets {
		if !ok[target] {
			ret = append(ret, target)
		}
	}
	return ret
}
