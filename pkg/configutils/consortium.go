package configutils

import (
	"encoding/base64"
	"strings"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ConsortiumMember describes an organization to be added to a consortium of the system channel.
type ConsortiumMember struct {
	// MSPID 同时作为组织在配置中的组名。
	MSPID string
	// AdminCert 和 RootCert 为 PEM 格式的证书。写入配置时以 base64 编码。
	AdminCert   []byte
	RootCert    []byte
	TLSRootCert []byte
}

type mspCryptoConfig struct {
	SignatureHashFamily            string `mapstructure:"signature_hash_family"`
	IdentityIdentifierHashFunction string `mapstructure:"identity_identifier_hash_function"`
}

type fabricMSPConfig struct {
	Name                          string                 `mapstructure:"name"`
	RootCerts                     []interface{}          `mapstructure:"root_certs"`
	IntermediateCerts             []interface{}          `mapstructure:"intermediate_certs"`
	Admins                        []interface{}          `mapstructure:"admins"`
	RevocationList                []interface{}          `mapstructure:"revocation_list"`
	OrganizationalUnitIdentifiers []interface{}          `mapstructure:"organizational_unit_identifiers"`
	TLSRootCerts                  []interface{}          `mapstructure:"tls_root_certs"`
	TLSIntermediateCerts          []interface{}          `mapstructure:"tls_intermediate_certs"`
	CryptoConfig                  map[string]interface{} `mapstructure:"crypto_config"`
}

// AddConsortiumMember returns a copy of the decoded channel config with `member` added to the consortium. The input is never modified, so calling it twice with the same arguments yields equal results.
//
// Parameters:
//
//	decoded channel config (as returned by the config translator)
//	consortium name
//	member to be added
//
// Returns:
//
//	the updated config
func AddConsortiumMember(config map[string]interface{}, consortium string, member *ConsortiumMember) (map[string]interface{}, error) {
	if member == nil || strings.TrimSpace(member.MSPID) == "" {
		return nil, errorcode.New(errorcode.KindBadRequest, "组织 MSP ID 不能为空")
	}
	if len(member.AdminCert) == 0 || len(member.RootCert) == 0 {
		return nil, errorcode.New(errorcode.KindBadRequest, "组织 '%v' 的管理员证书与根证书不能为空", member.MSPID)
	}

	orgGroup, err := newOrgGroup(member)
	if err != nil {
		return nil, err
	}

	updated, ok := DeepCopy(config).(map[string]interface{})
	if !ok || updated == nil {
		return nil, errorcode.New(errorcode.KindConfigTranslation, "通道配置为空")
	}

	members, err := lookupGroups(updated, "channel_group", "Consortiums", consortium)
	if err != nil {
		return nil, err
	}
	if _, exists := members[member.MSPID]; exists {
		return nil, errorcode.New(errorcode.KindBadRequest, "组织 '%v' 已是联盟 '%v' 的成员", member.MSPID, consortium)
	}

	members[member.MSPID] = orgGroup
	return updated, nil
}

// lookupGroups walks `channel_group.groups.<name>.groups...` and returns the `groups` map of the last group. Missing intermediate `groups` maps of the last group are created.
func lookupGroups(config map[string]interface{}, root string, path ...string) (map[string]interface{}, error) {
	group, ok := config[root].(map[string]interface{})
	if !ok {
		return nil, errorcode.New(errorcode.KindConfigTranslation, "配置中缺少 '%v'", root)
	}

	walked := root
	for _, name := range path {
		groups, ok := group["groups"].(map[string]interface{})
		if !ok {
			return nil, errorcode.New(errorcode.KindNotFound, "配置中缺少 '%v.groups'", walked)
		}
		walked += ".groups." + name
		if group, ok = groups[name].(map[string]interface{}); !ok {
			return nil, errorcode.New(errorcode.KindNotFound, "配置中缺少 '%v'", walked)
		}
	}

	groups, ok := group["groups"].(map[string]interface{})
	if !ok {
		groups = map[string]interface{}{}
		group["groups"] = groups
	}
	return groups, nil
}

func newOrgGroup(member *ConsortiumMember) (map[string]interface{}, error) {
	mspConfig := fabricMSPConfig{
		Name:                          member.MSPID,
		RootCerts:                     []interface{}{base64.StdEncoding.EncodeToString(member.RootCert)},
		IntermediateCerts:             []interface{}{},
		Admins:                        []interface{}{base64.StdEncoding.EncodeToString(member.AdminCert)},
		RevocationList:                []interface{}{},
		OrganizationalUnitIdentifiers: []interface{}{},
		TLSRootCerts:                  []interface{}{},
		TLSIntermediateCerts:          []interface{}{},
		CryptoConfig: map[string]interface{}{
			"signature_hash_family":             "SHA2",
			"identity_identifier_hash_function": "SHA256",
		},
	}
	if len(member.TLSRootCert) > 0 {
		mspConfig.TLSRootCerts = append(mspConfig.TLSRootCerts, base64.StdEncoding.EncodeToString(member.TLSRootCert))
	}

	mspConfigMap := map[string]interface{}{}
	if err := mapstructure.Decode(mspConfig, &mspConfigMap); err != nil {
		return nil, errors.Wrap(err, "无法构造 MSP 配置")
	}

	return map[string]interface{}{
		"groups":     map[string]interface{}{},
		"mod_policy": "Admins",
		"policies": map[string]interface{}{
			"Admins":  signaturePolicy(member.MSPID, "ADMIN"),
			"Readers": signaturePolicy(member.MSPID, "MEMBER"),
			"Writers": signaturePolicy(member.MSPID, "MEMBER"),
		},
		"values": map[string]interface{}{
			"MSP": map[string]interface{}{
				"mod_policy": "Admins",
				"value": map[string]interface{}{
					"config": mspConfigMap,
					"type":   0,
				},
				"version": "0",
			},
		},
		"version": "0",
	}, nil
}

// signaturePolicy builds a 1-of-1 signature policy for the role of the MSP.
func signaturePolicy(mspID string, role string) map[string]interface{} {
	return map[string]interface{}{
		"mod_policy": "Admins",
		"policy": map[string]interface{}{
			"type": 1,
			"value": map[string]interface{}{
				"identities": []interface{}{
					map[string]interface{}{
						"principal": map[string]interface{}{
							"msp_identifier": mspID,
							"role":           role,
						},
						"principal_classification": "ROLE",
					},
				},
				"rule": map[string]interface{}{
					"n_out_of": map[string]interface{}{
						"n": 1,
						"rules": []interface{}{
							map[string]interface{}{"signed_by": 0},
						},
					},
				},
				"version": 0,
			},
		},
		"version": "0",
	}
}
