package service

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
)

// endorseAndSubmit validates the endorsements and submits the transaction. The transaction is never submitted with a failed endorsement.
func endorseAndSubmit(ctx context.Context, session bcao.ILedgerSession, set *bcao.ProposalResponseSet) (*bcao.TransactionCreationInfo, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	resp, err := session.SubmitTransaction(ctx, set)
	if err != nil {
		return nil, err
	}

	if err = requireSuccess(resp); err != nil {
		return nil, err
	}

	return &bcao.TransactionCreationInfo{TransactionID: resp.TxID}, nil
}

// requireSuccess turns an orderer response whose status is not SUCCESS into a CommitError.
func requireSuccess(resp *bcao.BroadcastResponse) error {
	if resp == nil {
		return errorcode.New(errorcode.KindCommit, "排序节点没有返回响应")
	}

	if !resp.IsSuccess() {
		err := errorcode.New(errorcode.KindCommit, "排序节点拒绝了交易 '%v'，状态为 %v", resp.TxID, resp.Status)
		if resp.Info != "" {
			err = err.WithDetails(resp.Info)
		}
		return err
	}

	return nil
}
