package appinit

import (
	"io/ioutil"

	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// InitInfo is the Go struct for contents in init.yaml.
type InitInfo struct {
	Channels   []*ChannelInfo   `yaml:"channels"`
	Chaincodes []*ChaincodeInfo `yaml:"chaincodes"`
}

// ChannelInfo needed to create a channel and join peers to it.
type ChannelInfo struct {
	Name string `yaml:"name"`
	// Create 为 false 时只加入已存在的通道。
	Create bool     `yaml:"create"`
	Peers  []string `yaml:"peers"` // The peers to be joined. The configured default peers are used if it's empty.
}

// ChaincodeInfo contains info about a chaincode as well as the installation and instantiation schemes.
type ChaincodeInfo struct {
	ID             string                        `yaml:"id"`             // The ID of the chaincode
	Version        string                        `yaml:"version"`        // The version of the chaincode
	Peers          []string                      `yaml:"peers"`          // The peers to be installed with the chaincode
	Instantiations []*ChaincodeInstantiationInfo `yaml:"instantiations"` // The instantiation info of the chaincode
}

// ChaincodeInstantiationInfo needed to instantiate a chaincode.
type ChaincodeInstantiationInfo struct {
	Channel  string   `yaml:"channel"`  // The channel to instantiate on
	Peers    []string `yaml:"peers"`    // The endorsing peers
	InitFcn  string   `yaml:"initFcn"`  // The instantiation function
	InitArgs []string `yaml:"initArgs"` // The instantiation arguments
}

// LoadInitInfo loads the init config file (in YAML) which contains info needed during the init process.
//
// Parameters:
//
//	the path to the config file
//
// Returns:
//
//	the `InitInfo` struct containing the info needed during the init process
func LoadInitInfo(configFilePath string) (ret InitInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取初始化配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlStr, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	return
}
