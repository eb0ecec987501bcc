package identity

import (
	"os"
	"path/filepath"

	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Manager registers and enrolls identities and lays out their MSP directories.
type Manager struct {
	CA        CertificateAuthority
	Gateway   gateway.Gateway
	Registrar Credential
	Locations map[Role]IdentityLocation
}

// NewManager creates an identity manager.
func NewManager(ca CertificateAuthority, gw gateway.Gateway, registrar Credential, locations map[Role]IdentityLocation) *Manager {
	return &Manager{
		CA:        ca,
		Gateway:   gw,
		Registrar: registrar,
		Locations: locations,
	}
}

// EnrollAdmin enrolls the registrar with its bootstrap secret.
func (m *Manager) EnrollAdmin() (*Enrollment, error) {
	enrollment, err := m.CA.Enroll(m.Registrar.ID, m.Registrar.Secret)
	if err != nil {
		if errorcode.KindOf(err) == errorcode.KindEnrollment {
			return nil, err
		}
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法登记管理员 '%v'", m.Registrar.ID)
	}

	log.Debugf("已登记管理员 '%v'", m.Registrar.ID)
	return enrollment, nil
}

// RegisterAndEnrollUser registers a new identity and then enrolls it. Registration is not idempotent: registering an existing ID fails with a RegistrationError.
//
// Parameters:
//
//	registration request
//
// Returns:
//
//	key, certificate and the CA root certificate of the new identity
func (m *Manager) RegisterAndEnrollUser(req *RegistrationRequest) (*UserCredentials, error) {
	if req == nil || req.ID == "" || req.Secret == "" {
		return nil, errorcode.New(errorcode.KindBadRequest, "身份 ID 与密码不能为空")
	}

	if _, err := m.EnrollAdmin(); err != nil {
		return nil, err
	}

	if err := m.CA.Register(req); err != nil {
		if errorcode.KindOf(err) == errorcode.KindRegistration {
			return nil, err
		}
		return nil, errorcode.Wrap(err, errorcode.KindRegistration, "无法注册身份 '%v'", req.ID)
	}
	log.Infof("已注册身份 '%v'", req.ID)

	enrollment, err := m.CA.Enroll(req.ID, req.Secret)
	if err != nil {
		if errorcode.KindOf(err) == errorcode.KindEnrollment {
			return nil, err
		}
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法登记身份 '%v'", req.ID)
	}

	rootCert, err := m.CA.RootCertificate()
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindEnrollment, "无法获取 CA 根证书")
	}
	log.Infof("已登记身份 '%v'", req.ID)

	return &UserCredentials{Enrollment: *enrollment, RootCertificate: rootCert}, nil
}

// RemoveUser undoes a registration. The identity is deleted from the CA so that its ID can be registered again. If the CA does not allow removal, the identity is revoked instead and `removed` is false: the ID stays registered.
func (m *Manager) RemoveUser(id, reason string) (removed bool, err error) {
	removeErr := m.CA.RemoveIdentity(id)
	if removeErr == nil {
		log.Infof("已删除身份 '%v'", id)
		return true, nil
	}

	if !errors.Is(removeErr, ErrRemovalDisabled) {
		return false, errorcode.Wrap(removeErr, errorcode.KindRegistration, "无法删除身份 '%v'", id)
	}

	log.Warnf("CA 未开启身份删除功能，改为吊销身份 '%v'", id)
	if err = m.CA.Revoke(id, reason); err != nil {
		return false, errorcode.Wrap(err, errorcode.KindRegistration, "无法吊销身份 '%v'", id)
	}

	return false, nil
}

// PersistMembership writes the MSP layout for an identity into `targetDir`. The files are written into a staging directory next to the target and published with a rename, so the target either appears complete or not at all.
//
// Parameters:
//
//	target MSP directory
//	key ID (the SKI of the private key)
//	private key PEM
//	signed certificate PEM
//	CA certificate PEM
func (m *Manager) PersistMembership(targetDir, keyID string, key, signedCert, caCert []byte) (err error) {
	if keyID == "" {
		return errorcode.New(errorcode.KindBadRequest, "私钥 ID 不能为空")
	}

	exists, err := m.Gateway.Exists(targetDir)
	if err != nil {
		return err
	}
	if exists {
		return errorcode.New(errorcode.KindFile, "MSP 目录 '%v' 已存在", targetDir)
	}

	parent := filepath.Dir(targetDir)
	staging, err := m.Gateway.MkdirTemp(parent, "."+filepath.Base(targetDir)+"-staging-")
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := m.Gateway.RemoveAll(staging); rmErr != nil {
			log.Errorf("无法清理临时 MSP 目录 '%v': %v", staging, rmErr)
		}
	}()

	files := []struct {
		dir  string
		name string
		data []byte
		perm os.FileMode
	}{
		{"keystore", keyID + "_sk", key, 0600},
		{"signcerts", "cert.pem", signedCert, 0644},
		{"admincerts", "cert.pem", signedCert, 0644},
		{"cacerts", "ca-cert.pem", caCert, 0644},
	}
	for _, f := range files {
		dir := filepath.Join(staging, f.dir)
		if err = m.Gateway.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err = m.Gateway.WriteFile(filepath.Join(dir, f.name), f.data, f.perm); err != nil {
			return err
		}
	}

	if err = m.Gateway.Rename(staging, targetDir); err != nil {
		return err
	}

	log.Infof("已写入 MSP 目录 '%v'", targetDir)
	return nil
}

// RemoveMembership removes an MSP directory written by `PersistMembership`.
func (m *Manager) RemoveMembership(targetDir string) error {
	return m.Gateway.RemoveAll(targetDir)
}

// LoadAdminIdentity reads the PEM files of the admin identity with the role.
func (m *Manager) LoadAdminIdentity(role Role) (*AdminIdentity, error) {
	loc, ok := m.Locations[role]
	if !ok {
		return nil, errorcode.New(errorcode.KindIdentity, "未配置 '%v' 身份", role)
	}

	key, err := m.Gateway.ReadFile(loc.PrivateKey)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法读取 '%v' 身份的私钥", role)
	}

	cert, err := m.Gateway.ReadFile(loc.Certificate)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindIdentity, "无法读取 '%v' 身份的证书", role)
	}

	return &AdminIdentity{
		Role:        role,
		Username:    loc.Username,
		MSPID:       loc.MSPID,
		PrivateKey:  key,
		Certificate: cert,
	}, nil
}
