package service

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/archive"
	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
)

// IConfigTranslator converts channel configs between their binary and structured forms and computes config updates.
type IConfigTranslator interface {
	Decode(ctx context.Context, msgType string, data []byte) (map[string]interface{}, error)
	Encode(ctx context.Context, msgType string, v interface{}) ([]byte, error)
	ComputeUpdate(ctx context.Context, channelID string, original, updated []byte) ([]byte, error)
}

// Info holds what every service needs to reach the network. Nothing in it is bound to an identity: ledger sessions are created per workflow from `Sessions`.
type Info struct {
	Sessions   bcao.ISessionFactory
	Identities *identity.Manager
	Gateway    gateway.Gateway
	Translator IConfigTranslator
	Settings   *NetworkSettings
	// Archive 可为 nil，此时不归档配置快照。
	Archive archive.IArchive
}

// openSession loads the admin identity with the role and creates a ledger session for it. The caller must close the session.
func (i *Info) openSession(ctx context.Context, role identity.Role) (bcao.ILedgerSession, error) {
	id, err := i.Identities.LoadAdminIdentity(role)
	if err != nil {
		return nil, err
	}

	return i.Sessions.NewSession(ctx, id)
}
