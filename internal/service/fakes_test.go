package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao/bcaotest"
	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/stretchr/testify/assert"
)

const systemChannelConfig = `{
	"channel_group": {
		"groups": {
			"Consortiums": {
				"groups": {
					"SampleConsortium": {
						"groups": {
							"Org1MSP": {"mod_policy": "Admins"}
						}
					}
				}
			}
		},
		"version": "0"
	},
	"sequence": "3"
}`

type fakeCA struct {
	mu          sync.Mutex
	secrets     map[string]string
	revoked     map[string]bool
	calls       []string
	enrollError error
	removeError error
}

func newFakeCA() *fakeCA {
	return &fakeCA{secrets: map[string]string{"peerAdmin": "password"}, revoked: map[string]bool{}}
}

func (ca *fakeCA) Enroll(id, secret string) (*identity.Enrollment, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	ca.calls = append(ca.calls, "enroll:"+id)
	if ca.enrollError != nil && id != "peerAdmin" {
		return nil, ca.enrollError
	}
	if s, ok := ca.secrets[id]; !ok || s != secret {
		return nil, fmt.Errorf("authentication failure")
	}
	return &identity.Enrollment{
		ID:          id,
		MSPID:       "Org1MSP",
		KeyID:       "ski-" + id,
		Key:         []byte("key-of-" + id),
		Certificate: []byte("cert-of-" + id),
	}, nil
}

func (ca *fakeCA) Register(req *identity.RegistrationRequest) error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	ca.calls = append(ca.calls, "register:"+req.ID)
	if _, ok := ca.secrets[req.ID]; ok {
		return errorcode.New(errorcode.KindRegistration, "身份 '%v' 已注册", req.ID)
	}
	ca.secrets[req.ID] = req.Secret
	return nil
}

func (ca *fakeCA) RemoveIdentity(id string) error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	ca.calls = append(ca.calls, "remove:"+id)
	if ca.removeError != nil {
		return ca.removeError
	}
	delete(ca.secrets, id)
	return nil
}

// Revoke keeps the identity registered like a real CA does.
func (ca *fakeCA) Revoke(id, reason string) error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	ca.calls = append(ca.calls, "revoke:"+id)
	ca.revoked[id] = true
	return nil
}

func (ca *fakeCA) RootCertificate() ([]byte, error) {
	return []byte("root-cert"), nil
}

func (ca *fakeCA) Calls() []string {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	return append([]string(nil), ca.calls...)
}

// fakeTranslator treats JSON as the binary form of a config. The computed update is the updated buffer prefixed with "diff:".
type fakeTranslator struct {
	mu         sync.Mutex
	decodeErr  error
	computeErr error
	computed   [][2][]byte
}

func (f *fakeTranslator) Decode(ctx context.Context, msgType string, data []byte) (map[string]interface{}, error) {
	if f.decodeErr != nil {
		return nil, f.decodeErr
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var ret map[string]interface{}
	if err := decoder.Decode(&ret); err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法解码")
	}
	return ret, nil
}

func (f *fakeTranslator) Encode(ctx context.Context, msgType string, v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (f *fakeTranslator) ComputeUpdate(ctx context.Context, channelID string, original, updated []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.computeErr != nil {
		return nil, f.computeErr
	}
	f.computed = append(f.computed, [2][]byte{original, updated})
	return append([]byte("diff:"), updated...), nil
}

type testEnv struct {
	info       *Info
	gw         *gateway.Memory
	network    *bcaotest.Network
	ca         *fakeCA
	translator *fakeTranslator
}

func newTestSettings() *NetworkSettings {
	return &NetworkSettings{
		Channel: ChannelSettings{
			OrdererName:    "orderer.example.com",
			SystemChannel:  "testchainid",
			Consortium:     "SampleConsortium",
			GenesisProfile: "OrdererGenesis",
			ChannelProfile: "SystemChannel",
			AnchorOrg:      "Org1MSP",
			ConfigDir:      "/network",
			ArtifactsDir:   "/artifacts",
		},
		Chaincode: ChaincodeSettings{
			Path:   "example_cc",
			Policy: "OR('Org1MSP.member')",
		},
		Signup: SignupSettings{
			OrgsDir:       "/orgs",
			IdentityType:  "client",
			Affiliation:   "org1.department1",
			BindAddress:   "0.0.0.0",
			PeerPort:      9051,
			ChaincodePort: 9052,
			Compensate:    true,
		},
		Scripts: ScriptSettings{
			GenerateArtifacts: "/scripts/generateArtifacts.sh",
			BootstrapPeer:     "/scripts/bootstrapPeer.sh",
			TeardownPeer:      "/scripts/teardownPeer.sh",
			ComputeUpdate:     "/scripts/configtxlator.sh",
			Timeout:           time.Second,
		},
		DefaultPeers: []string{"peer0.org1.example.com"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	gw := gateway.NewMemory()
	locations := map[identity.Role]identity.IdentityLocation{
		identity.RoleAdmin:         {Username: "Admin", MSPID: "Org1MSP", PrivateKey: "/ids/admin/key.pem", Certificate: "/ids/admin/cert.pem"},
		identity.RoleChannelSigner: {Username: "Admin", MSPID: "Org1MSP", PrivateKey: "/ids/signer/key.pem", Certificate: "/ids/signer/cert.pem"},
		identity.RoleOrdererAdmin:  {Username: "Admin", MSPID: "OrdererMSP", PrivateKey: "/ids/orderer/key.pem", Certificate: "/ids/orderer/cert.pem"},
	}
	for role, loc := range locations {
		assert.NoError(t, gw.WriteFile(loc.PrivateKey, []byte("key-"+string(role)), 0600))
		assert.NoError(t, gw.WriteFile(loc.Certificate, []byte("cert-"+string(role)), 0644))
	}

	// 生成通道配置交易文件：参数中 "-c" 之后为通道名，"-o" 之后为输出目录
	gw.Scripts["/scripts/generateArtifacts.sh"] = func(ctx context.Context, spec gateway.ScriptSpec, m *gateway.Memory) error {
		channelName, outputDir := argAfter(spec.Args, "-c"), argAfter(spec.Args, "-o")
		return m.WriteFile(outputDir+"/"+channelName+".tx", []byte("envelope:"+channelName), 0644)
	}

	ca := newFakeCA()
	network := bcaotest.NewNetwork()
	network.Configs["testchainid"] = []byte(systemChannelConfig)
	translator := &fakeTranslator{}

	info := &Info{
		Sessions:   network,
		Identities: identity.NewManager(ca, gw, identity.Credential{ID: "peerAdmin", Secret: "password"}, locations),
		Gateway:    gw,
		Translator: translator,
		Settings:   newTestSettings(),
	}

	return &testEnv{info: info, gw: gw, network: network, ca: ca, translator: translator}
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func failingScript(msg string) gateway.ScriptHandler {
	return func(ctx context.Context, spec gateway.ScriptSpec, m *gateway.Memory) error {
		return errorcode.New(errorcode.KindSubprocess, "脚本 '%v' 执行失败", spec.Path).WithDetails(msg)
	}
}
