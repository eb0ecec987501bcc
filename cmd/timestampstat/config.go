package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

func loadConfig(filePath string) (config *Config, err error) {
	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		err = errors.Wrapf(err, "无法读取文件 '%v'", filePath)
		return
	}

	err = yaml.Unmarshal(configBytes, &config)
	if err != nil {
		err = errors.Wrapf(err, "无法从文件 '%v' 解析配置", filePath)
		return
	}

	if config == nil || len(config.Tasks) == 0 {
		err = errors.Errorf("文件 '%v' 中未定义任务", filePath)
	}

	return
}

type Config struct {
	Tasks []*TaskEntry `yaml:"tasks"`
}

// TaskEntry points to the start log and end log of a stage timing directory.
type TaskEntry struct {
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}
