package networkinfo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab"
	"github.com/pkg/errors"
)

// FabricNetworkConfig contains config info about the network which is needed by a client.
type FabricNetworkConfig struct {
	Orderers      map[string]FabricOrderer
	Organizations map[string]FabricOrganization
	Peers         map[string]FabricPeer
}

// FabricOrderer contains info about an orderer which is needed by a client.
type FabricOrderer struct {
	Name string
	URL  string
}

// FabricOrganization contains info about an organization which is needed by a client.
type FabricOrganization struct {
	Name       string
	MSPID      string
	CryptoPath string
	Peers      []string
	Users      []string
}

// FabricPeer contains info about a peer which is needed by a client.
type FabricPeer struct {
	Name string
	URL  string
}

// lookupSection parses one section of the config backend into `out`.
func lookupSection(configBackend core.ConfigBackend, section string, out interface{}) error {
	raw, ok := configBackend.Lookup(section)
	if !ok {
		return fmt.Errorf("error parsing %v", section)
	}

	sectionBytes, err := json.Marshal(raw)
	if err != nil {
		return errors.Wrapf(err, "无法解析 SDK 配置中的 '%v'", section)
	}

	if err = json.Unmarshal(sectionBytes, out); err != nil {
		return errors.Wrapf(err, "无法解析 SDK 配置中的 '%v'", section)
	}

	return nil
}

// ParseFabricOrderers parses the "orderers" section of the config from the config backend instance provided and returns a map of Orderer instances.
func ParseFabricOrderers(configBackend core.ConfigBackend) (map[string]FabricOrderer, error) {
	orderersMap := make(map[string]fab.OrdererConfig)
	if err := lookupSection(configBackend, "orderers", &orderersMap); err != nil {
		return nil, err
	}

	result := make(map[string]FabricOrderer)
	for k, v := range orderersMap {
		result[k] = FabricOrderer{Name: k, URL: v.URL}
	}

	return result, nil
}

// ParseFabricOrganizations parses the "organizations" section of the config from the config backend instance provided and returns a map of Organization instances.
func ParseFabricOrganizations(configBackend core.ConfigBackend) (map[string]FabricOrganization, error) {
	organizationsMap := make(map[string]fab.OrganizationConfig)
	if err := lookupSection(configBackend, "organizations", &organizationsMap); err != nil {
		return nil, err
	}

	result := make(map[string]FabricOrganization)
	for k, v := range organizationsMap {
		var users []string
		for userName := range v.Users {
			users = append(users, userName)
		}
		sort.Strings(users)

		result[k] = FabricOrganization{
			Name:       k,
			MSPID:      v.MSPID,
			CryptoPath: v.CryptoPath,
			Peers:      v.Peers,
			Users:      users,
		}
	}

	return result, nil
}

// ParseFabricPeers parses the "peers" section of the config from the config backend instance provided and returns a map of Peer instances.
func ParseFabricPeers(configBackend core.ConfigBackend) (map[string]FabricPeer, error) {
	peersMap := make(map[string]fab.PeerConfig)
	if err := lookupSection(configBackend, "peers", &peersMap); err != nil {
		return nil, err
	}

	result := make(map[string]FabricPeer)
	for k, v := range peersMap {
		result[k] = FabricPeer{Name: k, URL: v.URL}
	}

	return result, nil
}

// ParseFabricNetworkConfig parses multiple sections of the SDK config from the config backend instance provided and returns Config containing maps of multiple config instances.
func ParseFabricNetworkConfig(configBackend core.ConfigBackend) (*FabricNetworkConfig, error) {
	orderers, err := ParseFabricOrderers(configBackend)
	if err != nil {
		return nil, err
	}

	organizations, err := ParseFabricOrganizations(configBackend)
	if err != nil {
		return nil, err
	}

	peers, err := ParseFabricPeers(configBackend)
	if err != nil {
		return nil, err
	}

	return &FabricNetworkConfig{Orderers: orderers, Organizations: organizations, Peers: peers}, nil
}

// OrdererURL returns the URL of the orderer with the name.
func (c *FabricNetworkConfig) OrdererURL(name string) (string, bool) {
	o, ok := c.Orderers[name]
	return o.URL, ok
}

// PeerURL returns the URL of the peer with the name.
func (c *FabricNetworkConfig) PeerURL(name string) (string, bool) {
	p, ok := c.Peers[name]
	return p.URL, ok
}

// PeerName returns the name of the peer with the URL. The scheme is ignored when comparing. The URL itself is returned if no peer matches.
func (c *FabricNetworkConfig) PeerName(url string) string {
	for name, p := range c.Peers {
		if stripScheme(p.URL) == stripScheme(url) {
			return name
		}
	}

	return url
}

func stripScheme(url string) string {
	for _, scheme := range []string{"grpcs://", "grpc://"} {
		if strings.HasPrefix(url, scheme) {
			return strings.TrimPrefix(url, scheme)
		}
	}
	return url
}

// OrganizationByMSPID finds the organization with the MSP ID.
func (c *FabricNetworkConfig) OrganizationByMSPID(mspID string) (FabricOrganization, bool) {
	for _, org := range c.Organizations {
		if org.MSPID == mspID {
			return org, true
		}
	}

	return FabricOrganization{}, false
}
