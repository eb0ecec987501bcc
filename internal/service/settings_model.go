package service

import "time"

// ScriptSettings 为外部脚本的路径与超时。
type ScriptSettings struct {
	// GenerateArtifacts 生成通道配置交易文件。
	GenerateArtifacts string `yaml:"generateArtifacts"`
	// BootstrapPeer 为新组织启动节点容器。
	BootstrapPeer string `yaml:"bootstrapPeer"`
	// TeardownPeer 停止并删除 BootstrapPeer 启动的容器。为空时不做补偿。
	TeardownPeer string `yaml:"teardownPeer"`
	// ComputeUpdate 调用 configtxlator 计算配置差异。
	ComputeUpdate string        `yaml:"computeUpdate"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ChannelSettings 为创建通道与更新系统通道时使用的参数。
type ChannelSettings struct {
	OrdererName    string `yaml:"ordererName"`
	SystemChannel  string `yaml:"systemChannel"`
	Consortium     string `yaml:"consortium"`
	GenesisProfile string `yaml:"genesisProfile"`
	ChannelProfile string `yaml:"channelProfile"`
	AnchorOrg      string `yaml:"anchorOrg"`
	// ConfigDir 为 configtx.yaml 所在目录。
	ConfigDir string `yaml:"configDir"`
	// ArtifactsDir 为生成的通道配置交易文件（`<channel>.tx`）所在目录。
	ArtifactsDir string `yaml:"artifactsDir"`
}

// ChaincodeSettings 为安装、实例化与调用链码时的默认参数。
type ChaincodeSettings struct {
	// Path 为链码在 GOPATH 下的路径。
	Path       string   `yaml:"path"`
	Policy     string   `yaml:"policy"`
	InitFcn    string   `yaml:"initFcn"`
	InitArgs   []string `yaml:"initArgs"`
	InvokeFcn  string   `yaml:"invokeFcn"`
	InvokeArgs []string `yaml:"invokeArgs"`
}

// SignupSettings 为新组织加入时使用的参数。
type SignupSettings struct {
	// OrgsDir 下为每个新组织创建 `<org>/msp`。
	OrgsDir      string `yaml:"orgsDir"`
	IdentityType string `yaml:"identityType"`
	Affiliation  string `yaml:"affiliation"`
	BindAddress  string `yaml:"bindAddress"`
	PeerPort     int    `yaml:"peerPort"`
	// ChaincodePort 为节点的链码监听端口。
	ChaincodePort int `yaml:"chaincodePort"`
	// Compensate 为 true 时，失败的加入流程会按相反顺序撤销已完成的阶段。
	Compensate bool `yaml:"compensate"`
	// TimingLogDir 不为空时，各阶段的起止时间写入该目录下的 start.log 与 end.log。
	TimingLogDir string `yaml:"timingLogDir"`
}

// NetworkSettings 汇总了编排各流程所需的网络参数。
type NetworkSettings struct {
	Channel   ChannelSettings   `yaml:"channel"`
	Chaincode ChaincodeSettings `yaml:"chaincode"`
	Signup    SignupSettings    `yaml:"signup"`
	Scripts   ScriptSettings    `yaml:"scripts"`
	// DefaultPeers 为请求未指定目标节点时使用的节点名。
	DefaultPeers []string `yaml:"defaultPeers"`
}
