package identity

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/context"
	"github.com/pkg/errors"
)

// FabricCA is a `CertificateAuthority` backed by the MSP client of the Fabric SDK.
type FabricCA struct {
	client  *msp.Client
	gateway gateway.Gateway
	// keystoreDir 为 SDK 配置中 `client.credentialStore.cryptoStore.path` 下的 keystore 目录。
	keystoreDir string
}

// NewFabricCA creates an MSP client for the organization.
//
// Parameters:
//
//	client provider (usually `sdk.Context()`)
//	organization name
//	keystore directory of the SDK crypto store
//	file gateway
func NewFabricCA(clientProvider context.ClientProvider, orgName string, keystoreDir string, gw gateway.Gateway) (*FabricCA, error) {
	mspClient, err := msp.New(clientProvider, msp.WithOrg(orgName))
	if err != nil {
		return nil, errors.Wrap(err, "无法创建 MSP 客户端")
	}

	return &FabricCA{
		client:      mspClient,
		gateway:     gw,
		keystoreDir: keystoreDir,
	}, nil
}

func (c *FabricCA) Enroll(id, secret string) (*Enrollment, error) {
	if err := c.client.Enroll(id, msp.WithSecret(secret)); err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法登记身份 '%v'", id)
	}

	si, err := c.client.GetSigningIdentity(id)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法获取身份 '%v' 的签名身份", id)
	}

	keyID := hex.EncodeToString(si.PrivateKey().SKI())
	key, err := c.gateway.ReadFile(filepath.Join(c.keystoreDir, keyID+"_sk"))
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法读取身份 '%v' 的私钥", id)
	}

	return &Enrollment{
		ID:          id,
		MSPID:       si.Identifier().MSPID,
		KeyID:       keyID,
		Key:         key,
		Certificate: si.EnrollmentCertificate(),
	}, nil
}

func (c *FabricCA) Register(req *RegistrationRequest) error {
	_, err := c.client.Register(&msp.RegistrationRequest{
		Name:           req.ID,
		Type:           req.Type,
		MaxEnrollments: -1,
		Affiliation:    req.Affiliation,
		Secret:         req.Secret,
	})
	if err != nil {
		return errorcode.Wrap(err, errorcode.KindRegistration, "无法注册身份 '%v'", req.ID)
	}

	return nil
}

// RemoveIdentity deletes the identity. The CA server must run with `--cfg.identities.allowremove`.
func (c *FabricCA) RemoveIdentity(id string) error {
	_, err := c.client.RemoveIdentity(&msp.RemoveIdentityRequest{ID: id, Force: true})
	if err == nil {
		return nil
	}

	if strings.Contains(strings.ToLower(err.Error()), "removal is disabled") {
		return errors.Wrapf(ErrRemovalDisabled, "无法删除身份 '%v': %v", id, err)
	}
	return errors.Wrapf(err, "无法删除身份 '%v'", id)
}

func (c *FabricCA) Revoke(id, reason string) error {
	_, err := c.client.Revoke(&msp.RevocationRequest{Name: id, Reason: reason})
	if err != nil {
		return errors.Wrapf(err, "无法吊销身份 '%v'", id)
	}

	return nil
}

func (c *FabricCA) RootCertificate() ([]byte, error) {
	info, err := c.client.GetCAInfo()
	if err != nil {
		return nil, errors.Wrap(err, "无法获取 CA 信息")
	}

	return info.CAChain, nil
}
