package fabricbcao

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/networkinfo"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	mspctx "github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	log "github.com/sirupsen/logrus"
)

// SessionFactory creates a client context per workflow from the admin identity of the workflow. No client is shared between sessions.
type SessionFactory struct {
	SDK         *fabsdk.FabricSDK
	Network     *networkinfo.FabricNetworkConfig
	OrdererName string
	// GoPath 为打包 Go 链码时使用的 GOPATH。
	GoPath string
}

// NewSessionFactory creates a session factory.
//
// Parameters:
//
//	initialized Fabric SDK instance
//	network info parsed from the SDK config
//	name of the orderer to submit to
//	GOPATH for chaincode packaging
func NewSessionFactory(sdk *fabsdk.FabricSDK, network *networkinfo.FabricNetworkConfig, ordererName string, goPath string) *SessionFactory {
	return &SessionFactory{
		SDK:         sdk,
		Network:     network,
		OrdererName: ordererName,
		GoPath:      goPath,
	}
}

func (f *SessionFactory) NewSession(ctx context.Context, id *identity.AdminIdentity) (bcao.ILedgerSession, error) {
	if id == nil {
		return nil, errorcode.New(errorcode.KindIdentity, "会话需要身份")
	}

	org, ok := f.Network.OrganizationByMSPID(id.MSPID)
	if !ok {
		return nil, errorcode.New(errorcode.KindIdentity, "SDK 配置中没有 MSP ID 为 '%v' 的组织", id.MSPID)
	}

	mspClient, err := msp.New(f.SDK.Context(), msp.WithOrg(org.Name))
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法为组织 '%v' 创建 MSP 客户端", org.Name)
	}

	signingIdentity, err := mspClient.CreateSigningIdentity(mspctx.WithCert(id.Certificate), mspctx.WithPrivateKey(id.PrivateKey))
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法为 '%v' 身份创建签名身份", id.Role)
	}

	clientCtx, err := f.SDK.Context(fabsdk.WithIdentity(signingIdentity))()
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法为 '%v' 身份创建客户端环境", id.Role)
	}

	log.Debugf("已为 %v@%v（%v）创建会话", id.Username, org.Name, id.Role)
	return &Session{
		id:          id,
		client:      clientCtx,
		network:     f.Network,
		ordererName: f.OrdererName,
		goPath:      f.GoPath,
	}, nil
}
