package networkinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapBackend map[string]interface{}

func (b mapBackend) Lookup(key string) (interface{}, bool) {
	v, ok := b[key]
	return v, ok
}

func newBackend() mapBackend {
	return mapBackend{
		"orderers": map[string]interface{}{
			"orderer.example.com": map[string]interface{}{"url": "grpc://localhost:7050"},
		},
		"organizations": map[string]interface{}{
			"Org1": map[string]interface{}{
				"mspid":      "Org1MSP",
				"cryptoPath": "peerOrganizations/org1.example.com/users/{username}@org1.example.com/msp",
				"peers":      []interface{}{"peer0.org1.example.com", "peer1.org1.example.com"},
				"users":      map[string]interface{}{"User1": map[string]interface{}{}, "Admin": map[string]interface{}{}},
			},
			"OrdererOrg": map[string]interface{}{"mspid": "OrdererMSP"},
		},
		"peers": map[string]interface{}{
			"peer0.org1.example.com": map[string]interface{}{"url": "grpc://localhost:7051"},
			"peer1.org1.example.com": map[string]interface{}{"url": "grpc://localhost:8051"},
		},
	}
}

func TestParseFabricNetworkConfig(t *testing.T) {
	config, err := ParseFabricNetworkConfig(newBackend())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	url, ok := config.OrdererURL("orderer.example.com")
	assert.True(t, ok)
	assert.Equal(t, "grpc://localhost:7050", url)

	url, ok = config.PeerURL("peer1.org1.example.com")
	assert.True(t, ok)
	assert.Equal(t, "grpc://localhost:8051", url)
	assert.Equal(t, "peer0.org1.example.com", config.PeerName("grpc://localhost:7051"))
	assert.Equal(t, "peer1.org1.example.com", config.PeerName("localhost:8051"))
	assert.Equal(t, "grpc://unknown:1", config.PeerName("grpc://unknown:1"))

	org, ok := config.OrganizationByMSPID("Org1MSP")
	assert.True(t, ok)
	assert.Equal(t, "Org1", org.Name)
	assert.Equal(t, []string{"Admin", "User1"}, org.Users)
	assert.Equal(t, []string{"peer0.org1.example.com", "peer1.org1.example.com"}, org.Peers)

	_, ok = config.OrganizationByMSPID("Org9MSP")
	assert.False(t, ok)
}

func TestParseFabricNetworkConfigMissingSection(t *testing.T) {
	backend := newBackend()
	delete(backend, "peers")

	_, err := ParseFabricNetworkConfig(backend)
	assert.Error(t, err)
}
