package fabricbcao

import (
	"context"
	"encoding/hex"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/resource"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/txn"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

func sendProposalWithTimer(reqCtx context.Context, proposal *fab.TransactionProposal, targets []fab.ProposalProcessor, timerMsg string) ([]*fab.TransactionProposalResponse, error) {
	defer timingutils.GetDeferrableTimingLogger(timerMsg)()

	return txn.SendProposal(reqCtx, proposal, targets)
}

// toMultierr flattens the aggregated errors of the SDK so that each peer failure becomes one entry.
func toMultierr(err error) error {
	if err == nil {
		return nil
	}

	if errs, ok := err.(multi.Errors); ok {
		var ret error
		for _, e := range errs {
			ret = multierr.Append(ret, e)
		}
		return ret
	}

	return err
}

// toBroadcastResponse turns the outcome of a broadcast into a response. A rejection by the orderer is a response with the status of the orderer, not an error.
func toBroadcastResponse(operation string, txID string, err error) (*bcao.BroadcastResponse, error) {
	if err == nil {
		return &bcao.BroadcastResponse{TxID: txID, Status: bcao.StatusSuccess}, nil
	}

	if s, ok := status.FromError(err); ok && s.Group == status.OrdererServerStatus {
		statusName, ok := common.Status_name[s.Code]
		if !ok {
			statusName = common.Status_UNKNOWN.String()
		}
		return &bcao.BroadcastResponse{TxID: txID, Status: statusName, Info: s.Message}, nil
	}

	return nil, bcao.GetClassifiedError(operation, err)
}

func requireSingleResponse(peer string, resps []*fab.TransactionProposalResponse, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}

	if len(resps) == 0 || resps[0].ProposalResponse == nil || resps[0].ProposalResponse.Response == nil {
		return nil, errorcode.New(errorcode.KindLedger, "节点 '%v' 没有返回响应", peer)
	}

	resp := resps[0]
	if resp.Status != bcao.StatusOK {
		return nil, errorcode.New(errorcode.KindLedger, "节点 '%v' 返回状态码 %v: %v", peer, resp.Status, resp.ProposalResponse.Response.Message)
	}

	return resp.ProposalResponse.Response.Payload, nil
}

// configFromBlock extracts the encoded `common.Config` from a config block.
func configFromBlock(block *common.Block) ([]byte, error) {
	if block == nil || block.Data == nil || len(block.Data.Data) == 0 {
		return nil, errorcode.New(errorcode.KindLedger, "配置区块中没有交易")
	}

	envelope := &common.Envelope{}
	if err := proto.Unmarshal(block.Data.Data[0], envelope); err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法解析配置区块中的交易")
	}
	payload := &common.Payload{}
	if err := proto.Unmarshal(envelope.Payload, payload); err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法解析配置区块中的交易负载")
	}
	if payload.Header == nil {
		return nil, errorcode.New(errorcode.KindLedger, "配置区块中的交易没有头部")
	}

	configEnvelope, err := resource.CreateConfigEnvelope(block.Data.Data[0])
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindLedger, "无法从区块中提取配置")
	}
	if configEnvelope.Config == nil {
		return nil, errorcode.New(errorcode.KindLedger, "配置区块中没有配置")
	}

	configBytes, err := proto.Marshal(configEnvelope.Config)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化通道配置")
	}

	return configBytes, nil
}

func hexOf(b []byte) string {
	return hex.EncodeToString(b)
}
