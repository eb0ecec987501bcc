package fabricbcao

import (
	"testing"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestToBroadcastResponse(t *testing.T) {
	resp, err := toBroadcastResponse("提交", "tx1", nil)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, &bcao.BroadcastResponse{TxID: "tx1", Status: bcao.StatusSuccess}, resp)
	assert.True(t, resp.IsSuccess())

	rejected := status.New(status.OrdererServerStatus, int32(common.Status_BAD_REQUEST), "签名不足", nil)
	resp, err = toBroadcastResponse("提交", "tx2", errors.Wrap(rejected, "广播失败"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, &bcao.BroadcastResponse{TxID: "tx2", Status: "BAD_REQUEST", Info: "签名不足"}, resp)
	assert.False(t, resp.IsSuccess())

	resp, err = toBroadcastResponse("提交", "tx3", errors.New("连接被拒绝"))
	assert.Nil(t, resp)
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))
}

func TestToBroadcastResponseUnknownOrdererCode(t *testing.T) {
	rejected := status.New(status.OrdererServerStatus, 999, "未知", nil)
	resp, err := toBroadcastResponse("提交", "tx1", rejected)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, common.Status_UNKNOWN.String(), resp.Status)
}

func TestToMultierr(t *testing.T) {
	assert.Nil(t, toMultierr(nil))

	err1, err2 := errors.New("peer0 超时"), errors.New("peer1 拒绝")
	flattened := toMultierr(multi.Errors{err1, err2})
	assert.Equal(t, []error{err1, err2}, multierr.Errors(flattened))

	single := errors.New("其他错误")
	assert.Equal(t, single, toMultierr(single))
}

func TestRequireSingleResponse(t *testing.T) {
	sendErr := errors.New("发送失败")
	_, err := requireSingleResponse("peer0", nil, sendErr)
	assert.Equal(t, sendErr, err)

	_, err = requireSingleResponse("peer0", nil, nil)
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	_, err = requireSingleResponse("peer0", []*fab.TransactionProposalResponse{{Endorser: "peer0"}}, nil)
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	failed := &fab.TransactionProposalResponse{
		Endorser:         "peer0",
		Status:           500,
		ProposalResponse: &pb.ProposalResponse{Response: &pb.Response{Status: 500, Message: "链码不存在"}},
	}
	_, err = requireSingleResponse("peer0", []*fab.TransactionProposalResponse{failed}, nil)
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))
	assert.Contains(t, err.Error(), "链码不存在")

	ok := &fab.TransactionProposalResponse{
		Endorser:         "peer0",
		Status:           bcao.StatusOK,
		ProposalResponse: &pb.ProposalResponse{Response: &pb.Response{Status: bcao.StatusOK, Payload: []byte("payload")}},
	}
	payload, err := requireSingleResponse("peer0", []*fab.TransactionProposalResponse{ok}, nil)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte("payload"), payload)
}

func newConfigBlock(t *testing.T, headerType common.HeaderType, config *common.Config) *common.Block {
	channelHeader, err := proto.Marshal(&common.ChannelHeader{Type: int32(headerType), ChannelId: "system-channel"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	data, err := proto.Marshal(&common.ConfigEnvelope{Config: config})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	payload, err := proto.Marshal(&common.Payload{Header: &common.Header{ChannelHeader: channelHeader}, Data: data})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	envelope, err := proto.Marshal(&common.Envelope{Payload: payload})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return &common.Block{Data: &common.BlockData{Data: [][]byte{envelope}}}
}

func TestConfigFromBlock(t *testing.T) {
	config := &common.Config{
		Sequence: 3,
		ChannelGroup: &common.ConfigGroup{
			Groups: map[string]*common.ConfigGroup{"Consortiums": {Version: 1}},
		},
	}

	configBytes, err := configFromBlock(newConfigBlock(t, common.HeaderType_CONFIG, config))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	decoded := &common.Config{}
	if isNoError := assert.NoError(t, proto.Unmarshal(configBytes, decoded)); !isNoError {
		t.FailNow()
	}
	assert.True(t, proto.Equal(config, decoded))
}

func TestConfigFromBlockRejectsOtherBlocks(t *testing.T) {
	_, err := configFromBlock(nil)
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	_, err = configFromBlock(&common.Block{Data: &common.BlockData{}})
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	_, err = configFromBlock(&common.Block{Data: &common.BlockData{Data: [][]byte{[]byte("not an envelope")}}})
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	noHeader, err := proto.Marshal(&common.Envelope{})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	_, err = configFromBlock(&common.Block{Data: &common.BlockData{Data: [][]byte{noHeader}}})
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))

	_, err = configFromBlock(newConfigBlock(t, common.HeaderType_ENDORSER_TRANSACTION, &common.Config{}))
	assert.True(t, errorcode.Is(err, errorcode.KindLedger))
}
