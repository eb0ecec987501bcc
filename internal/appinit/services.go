package appinit

import (
	"strings"

	"gitee.com/czyczk/fabric-netadmin/internal/archive"
	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao/fabricbcao"
	"gitee.com/czyczk/fabric-netadmin/internal/configtxlator"
	"gitee.com/czyczk/fabric-netadmin/internal/db"
	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/networkinfo"
	"gitee.com/czyczk/fabric-netadmin/internal/service"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Services holds the services built from the server info.
type Services struct {
	Network  *service.NetworkService
	Identity *service.IdentityService
	Org      *service.OrgService
}

// NewServiceInfo assembles the collaborators shared by the services. The SDK backs the ledger sessions and the CA.
//
// Parameters:
//
//	server info
//	initialized Fabric SDK instance
//	network info parsed from the SDK config
func NewServiceInfo(serverInfo *ServerInfo, sdk *fabsdk.FabricSDK, network *networkinfo.FabricNetworkConfig) (*service.Info, error) {
	gw := gateway.NewOSGateway()

	ca, err := identity.NewFabricCA(sdk.Context(), serverInfo.OrgName, serverInfo.KeystoreDir, gw)
	if err != nil {
		return nil, err
	}

	sessions := fabricbcao.NewSessionFactory(sdk, network, serverInfo.Network.Channel.OrdererName, serverInfo.GoPath)

	return newServiceInfo(serverInfo, sessions, ca, gw)
}

func newServiceInfo(serverInfo *ServerInfo, sessions bcao.ISessionFactory, ca identity.CertificateAuthority, gw gateway.Gateway) (*service.Info, error) {
	settings := serverInfo.Network
	translator := configtxlator.NewClient(
		serverInfo.ConfigTxLator.URL,
		gw,
		settings.Scripts.ComputeUpdate,
		serverInfo.ConfigTxLator.WorkDir,
		settings.Scripts.Timeout,
	)

	archiveBackend, err := NewArchive(serverInfo.Archive, gw)
	if err != nil {
		return nil, err
	}

	return &service.Info{
		Sessions:   sessions,
		Identities: identity.NewManager(ca, gw, serverInfo.Registrar, serverInfo.Identities),
		Gateway:    gw,
		Translator: translator,
		Settings:   &settings,
		Archive:    archiveBackend,
	}, nil
}

// NewArchive creates the archive for config snapshots. It returns nil if archiving is off.
func NewArchive(info *ArchiveInfo, gw gateway.Gateway) (archive.IArchive, error) {
	if info == nil || info.Type == "" {
		return nil, nil
	}

	switch strings.ToLower(info.Type) {
	case "ipfs":
		if info.URL == "" {
			return nil, errors.New("未指定 IPFS 地址")
		}
		log.Infof("配置快照将归档至 IPFS 节点 %v", info.URL)
		return archive.NewIPFSArchive(info.URL, info.Timeout), nil
	case "file":
		if info.Dir == "" {
			return nil, errors.New("未指定归档目录")
		}
		log.Infof("配置快照将归档至目录 %v", info.Dir)
		return archive.NewFileArchive(info.Dir, gw), nil
	default:
		return nil, errors.Errorf("未知的归档类型 '%v'", info.Type)
	}
}

// NewSignupRecorder connects to the database if a DSN is configured. Otherwise records are kept in memory.
func NewSignupRecorder(info *DatabaseInfo) (service.ISignupRecorder, error) {
	if info == nil || info.DSN == "" {
		log.Warnln("未配置数据库，加入流程记录仅保存在内存中")
		return service.NewMemorySignupRecorder(), nil
	}

	database, err := gorm.Open(mysql.Open(info.DSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "无法连接数据库")
	}

	return db.NewSignupRecorder(database)
}

// NewServices builds the services on top of the service info.
func NewServices(info *service.Info, recorder service.ISignupRecorder) *Services {
	return &Services{
		Network:  service.NewNetworkService(info),
		Identity: &service.IdentityService{Identities: info.Identities},
		Org:      service.NewOrgService(info, recorder),
	}
}
