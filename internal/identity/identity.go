package identity

import "github.com/pkg/errors"

// ErrRemovalDisabled is returned when the CA does not allow identities to be removed.
var ErrRemovalDisabled = errors.New("CA 未开启身份删除功能")

// Role tells which admin identity an operation acts as. Different operations require different identities and they must not be mixed up.
type Role string

const (
	// RoleAdmin 为节点管理员身份，用于加入通道、安装、实例化与调用链码以及查询。
	RoleAdmin Role = "admin"
	// RoleChannelSigner 为锚节点组织的签名身份，用于创建通道。
	RoleChannelSigner Role = "channelSigner"
	// RoleOrdererAdmin 为排序节点管理员身份，用于签名并提交系统通道的配置更新。
	RoleOrdererAdmin Role = "ordererAdmin"
)

// AdminIdentity is a credential materialized from PEM files for one workflow. It is never cached across workflows.
type AdminIdentity struct {
	Role        Role
	Username    string
	MSPID       string
	PrivateKey  []byte
	Certificate []byte
}

// IdentityLocation tells where the PEM files of an admin identity live.
type IdentityLocation struct {
	Username    string `yaml:"username"`
	MSPID       string `yaml:"mspId"`
	PrivateKey  string `yaml:"privateKey"`
	Certificate string `yaml:"certificate"`
}

// Enrollment is the result of enrolling an identity against the CA.
type Enrollment struct {
	ID    string
	MSPID string
	// KeyID 为私钥的 SKI（十六进制），也是 keystore 中私钥文件名的前缀。
	KeyID       string
	Key         []byte
	Certificate []byte
}

// RegistrationRequest describes an identity to be registered.
type RegistrationRequest struct {
	ID     string
	Secret string
	// Type 为 CA 中的身份类型，如 `user`、`peer`、`client`。
	Type        string
	Affiliation string
}

// UserCredentials holds everything needed to build an MSP directory for a freshly enrolled identity.
type UserCredentials struct {
	Enrollment
	RootCertificate []byte
}

// Credential is an enrollment ID and its secret.
type Credential struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

// CertificateAuthority is the subset of CA operations the manager relies on.
type CertificateAuthority interface {
	// Enroll 登记身份。失败时返回 EnrollmentError。
	Enroll(id, secret string) (*Enrollment, error)
	// Register 注册身份。身份已存在时返回 RegistrationError。
	Register(req *RegistrationRequest) error
	// RemoveIdentity 从 CA 中删除身份，使其 ID 可以再次注册。CA 未开启删除功能时返回 ErrRemovalDisabled。
	RemoveIdentity(id string) error
	// Revoke 吊销身份的证书。身份仍保持注册状态。
	Revoke(id, reason string) error
	// RootCertificate 返回 CA 证书链（PEM）。
	RootCertificate() ([]byte, error)
}
