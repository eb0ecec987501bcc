package appinit

import (
	"os"

	"gitee.com/czyczk/fabric-netadmin/internal/networkinfo"
	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetupLogger sets the output, format and level of the logger.
func SetupLogger(level string, showTimingLogs bool) error {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "无法解析日志级别 '%v'", level)
	}
	log.SetLevel(lvl)

	timingutils.SetShowTimingLogs(showTimingLogs)
	return nil
}

// SetupSDK creates a Fabric SDK instance from the specified config file and parses the network info from it.
//
// Parameters:
//
//	the path to the config file
//
// Returns:
//
//	the SDK instance
//	the network info
func SetupSDK(configFilePath string) (*fabsdk.FabricSDK, *networkinfo.FabricNetworkConfig, error) {
	sdk, err := fabsdk.New(config.FromFile(configFilePath))
	if err != nil {
		return nil, nil, errors.Wrap(err, "初始化 Fabric SDK 失败")
	}

	configBackend, err := sdk.Config()
	if err != nil {
		sdk.Close()
		return nil, nil, errors.Wrap(err, "无法获取 SDK 配置")
	}

	network, err := networkinfo.ParseFabricNetworkConfig(configBackend)
	if err != nil {
		sdk.Close()
		return nil, nil, err
	}

	return sdk, network, nil
}
