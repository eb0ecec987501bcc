package identity

import (
	"fmt"
	"testing"

	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeCA keeps registered identities in memory and records the calls it receives.
type fakeCA struct {
	secrets     map[string]string
	revoked     map[string]bool
	calls       []string
	enrollError error
	removeError error
}

func newFakeCA() *fakeCA {
	return &fakeCA{secrets: map[string]string{"peerAdmin": "password"}, revoked: map[string]bool{}}
}

func (ca *fakeCA) Enroll(id, secret string) (*Enrollment, error) {
	ca.calls = append(ca.calls, "enroll:"+id)
	if ca.enrollError != nil && id != "peerAdmin" {
		return nil, ca.enrollError
	}
	if s, ok := ca.secrets[id]; !ok || s != secret {
		return nil, fmt.Errorf("authentication failure")
	}
	return &Enrollment{
		ID:          id,
		MSPID:       "Org1MSP",
		KeyID:       "ab12",
		Key:         []byte("key-of-" + id),
		Certificate: []byte("cert-of-" + id),
	}, nil
}

func (ca *fakeCA) Register(req *RegistrationRequest) error {
	ca.calls = append(ca.calls, "register:"+req.ID)
	if _, ok := ca.secrets[req.ID]; ok {
		return fmt.Errorf("identity '%v' is already registered", req.ID)
	}
	ca.secrets[req.ID] = req.Secret
	return nil
}

func (ca *fakeCA) RemoveIdentity(id string) error {
	ca.calls = append(ca.calls, "remove:"+id)
	if ca.removeError != nil {
		return ca.removeError
	}
	delete(ca.secrets, id)
	return nil
}

// Revoke keeps the identity registered like a real CA does.
func (ca *fakeCA) Revoke(id, reason string) error {
	ca.calls = append(ca.calls, "revoke:"+id)
	ca.revoked[id] = true
	return nil
}

func (ca *fakeCA) RootCertificate() ([]byte, error) {
	return []byte("root-cert"), nil
}

func newTestManager(ca CertificateAuthority, gw gateway.Gateway) *Manager {
	return NewManager(ca, gw, Credential{ID: "peerAdmin", Secret: "password"}, map[Role]IdentityLocation{
		RoleOrdererAdmin: {Username: "Admin", MSPID: "OrdererMSP", PrivateKey: "/ids/orderer/key.pem", Certificate: "/ids/orderer/cert.pem"},
	})
}

func TestRegisterAndEnrollUser(t *testing.T) {
	ca := newFakeCA()
	m := newTestManager(ca, gateway.NewMemory())

	creds, err := m.RegisterAndEnrollUser(&RegistrationRequest{ID: "org3admin", Secret: "s3cret", Type: "user", Affiliation: "org1.department1"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, []string{"enroll:peerAdmin", "register:org3admin", "enroll:org3admin"}, ca.calls)
	assert.Equal(t, "cert-of-org3admin", string(creds.Certificate))
	assert.Equal(t, "root-cert", string(creds.RootCertificate))
}

func TestRegisterTwiceFails(t *testing.T) {
	ca := newFakeCA()
	m := newTestManager(ca, gateway.NewMemory())
	req := &RegistrationRequest{ID: "org3admin", Secret: "s3cret", Type: "user"}

	_, err := m.RegisterAndEnrollUser(req)
	assert.NoError(t, err)

	ca.calls = nil
	_, err = m.RegisterAndEnrollUser(req)
	assert.Equal(t, errorcode.KindRegistration, errorcode.KindOf(err))
	// Enrollment of the identity is never attempted after a failed registration.
	assert.Equal(t, []string{"enroll:peerAdmin", "register:org3admin"}, ca.calls)
}

func TestEnrollmentFailures(t *testing.T) {
	ca := newFakeCA()
	m := newTestManager(ca, gateway.NewMemory())
	m.Registrar.Secret = "wrong"

	_, err := m.RegisterAndEnrollUser(&RegistrationRequest{ID: "u1", Secret: "s"})
	assert.Equal(t, errorcode.KindEnrollment, errorcode.KindOf(err))
	assert.Equal(t, []string{"enroll:peerAdmin"}, ca.calls)

	ca = newFakeCA()
	ca.enrollError = fmt.Errorf("CA unreachable")
	m = newTestManager(ca, gateway.NewMemory())
	_, err = m.RegisterAndEnrollUser(&RegistrationRequest{ID: "u1", Secret: "s"})
	assert.Equal(t, errorcode.KindEnrollment, errorcode.KindOf(err))
}

func TestPersistMembership(t *testing.T) {
	mem := gateway.NewMemory()
	m := newTestManager(newFakeCA(), mem)

	err := m.PersistMembership("/orgs/Org3/msp", "ab12", []byte("key"), []byte("cert"), []byte("ca"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, []string{
		"/orgs/Org3/msp/admincerts/cert.pem",
		"/orgs/Org3/msp/cacerts/ca-cert.pem",
		"/orgs/Org3/msp/keystore/ab12_sk",
		"/orgs/Org3/msp/signcerts/cert.pem",
	}, mem.Files("/orgs"))

	data, _ := mem.ReadFile("/orgs/Org3/msp/admincerts/cert.pem")
	assert.Equal(t, "cert", string(data))

	// The target is never overwritten.
	err = m.PersistMembership("/orgs/Org3/msp", "cd34", []byte("key2"), []byte("cert2"), []byte("ca2"))
	assert.Equal(t, errorcode.KindFile, errorcode.KindOf(err))
}

func TestPersistMembershipRollsBackOnWriteFailure(t *testing.T) {
	mem := gateway.NewMemory()
	// MkdirTemp of the memory gateway names the first staging directory "<pattern>1".
	mem.WriteErrors["/orgs/Org3/.msp-staging-1/cacerts/ca-cert.pem"] = fmt.Errorf("disk full")
	m := newTestManager(newFakeCA(), mem)

	err := m.PersistMembership("/orgs/Org3/msp", "ab12", []byte("key"), []byte("cert"), []byte("ca"))
	assert.Equal(t, errorcode.KindFile, errorcode.KindOf(err))
	assert.Empty(t, mem.Files("/orgs"))

	exists, _ := mem.Exists("/orgs/Org3/msp")
	assert.False(t, exists)
}

func TestPersistMembershipRollsBackOnPublishFailure(t *testing.T) {
	mem := gateway.NewMemory()
	mem.RenameError = fmt.Errorf("permission denied")
	m := newTestManager(newFakeCA(), mem)

	err := m.PersistMembership("/orgs/Org3/msp", "ab12", []byte("key"), []byte("cert"), []byte("ca"))
	assert.Error(t, err)
	assert.Empty(t, mem.Files("/orgs"))
}

func TestLoadAdminIdentity(t *testing.T) {
	mem := gateway.NewMemory()
	_ = mem.WriteFile("/ids/orderer/key.pem", []byte("orderer-key"), 0600)
	_ = mem.WriteFile("/ids/orderer/cert.pem", []byte("orderer-cert"), 0644)
	m := newTestManager(newFakeCA(), mem)

	id, err := m.LoadAdminIdentity(RoleOrdererAdmin)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, RoleOrdererAdmin, id.Role)
	assert.Equal(t, "OrdererMSP", id.MSPID)
	assert.Equal(t, "orderer-key", string(id.PrivateKey))

	_, err = m.LoadAdminIdentity(RoleChannelSigner)
	assert.Equal(t, errorcode.KindIdentity, errorcode.KindOf(err))
}

func TestRemoveUserAllowsRegisteringAgain(t *testing.T) {
	ca := newFakeCA()
	m := newTestManager(ca, gateway.NewMemory())

	_, err := m.RegisterAndEnrollUser(&RegistrationRequest{ID: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	removed, err := m.RemoveUser("Org3", "加入失败")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, removed)

	_, err = m.RegisterAndEnrollUser(&RegistrationRequest{ID: "Org3", Secret: "org3pw"})
	assert.NoError(t, err)
}

func TestRemoveUserFallsBackToRevoke(t *testing.T) {
	ca := newFakeCA()
	ca.removeError = errors.Wrap(ErrRemovalDisabled, "Identity removal is disabled")
	m := newTestManager(ca, gateway.NewMemory())

	_, err := m.RegisterAndEnrollUser(&RegistrationRequest{ID: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	removed, err := m.RemoveUser("Org3", "加入失败")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.False(t, removed)
	assert.True(t, ca.revoked["Org3"])

	_, err = m.RegisterAndEnrollUser(&RegistrationRequest{ID: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindRegistration))
}

func TestRemoveUserDoesNotRevokeOnOtherErrors(t *testing.T) {
	ca := newFakeCA()
	ca.removeError = fmt.Errorf("connection refused")
	m := newTestManager(ca, gateway.NewMemory())

	removed, err := m.RemoveUser("Org3", "加入失败")
	assert.False(t, removed)
	assert.True(t, errorcode.Is(err, errorcode.KindRegistration))
	assert.NotContains(t, ca.calls, "revoke:Org3")
}
