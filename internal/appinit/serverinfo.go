package appinit

import (
	"io/ioutil"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/service"
	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ServerInfo is the Go struct for contents in server.yaml.
type ServerInfo struct {
	Port           int    `yaml:"port"`
	LogLevel       string `yaml:"logLevel"`
	ShowTimingLogs bool   `yaml:"showTimingLogs"`

	// OrgName 为 SDK 配置中 CA 所属的组织名。
	OrgName string `yaml:"orgName"`
	// KeystoreDir 为 SDK 加密存储中 keystore 目录。登记得到的私钥从这里读取。
	KeystoreDir string `yaml:"keystoreDir"`
	// GoPath 为打包 Go 链码时使用的 GOPATH。
	GoPath string `yaml:"goPath"`

	ConfigTxLator *ConfigTxLatorInfo                          `yaml:"configtxlator"`
	Registrar     identity.Credential                         `yaml:"registrar"`
	Identities    map[identity.Role]identity.IdentityLocation `yaml:"identities"`
	Network       service.NetworkSettings                     `yaml:"network"`
	Database      *DatabaseInfo                               `yaml:"database"`
	Archive       *ArchiveInfo                                `yaml:"archive"`
}

// ConfigTxLatorInfo locates the configtxlator service.
type ConfigTxLatorInfo struct {
	URL string `yaml:"url"`
	// WorkDir 为计算配置差异时临时文件的父目录。
	WorkDir string `yaml:"workDir"`
}

// DatabaseInfo contains the MySQL DSN for signup records. Records are kept in memory if it's absent.
type DatabaseInfo struct {
	DSN string `yaml:"dsn"`
}

// ArchiveInfo selects where config snapshots of signups are archived.
type ArchiveInfo struct {
	// Type 为 `ipfs` 或 `file`。
	Type    string        `yaml:"type"`
	URL     string        `yaml:"url"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadServerInfo loads the server config file (in YAML) which contains info needed to start a server.
//
// Parameters:
//
//	the path to the config file
//
// Returns:
//
//	the `ServerInfo` struct containing the info needed to start a server
func LoadServerInfo(configFilePath string) (ret ServerInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取服务器配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlStr, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	if ret.ConfigTxLator == nil || ret.ConfigTxLator.URL == "" {
		err = errors.New("未指定 configtxlator 地址")
		return
	}

	return
}
