package main

import (
	"os"

	"gitee.com/czyczk/fabric-netadmin/cmd/timestampstat/calc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	var configPath string
	app := &cli.App{
		Name:  "timestampstat",
		Usage: "统计组织加入流程各阶段的耗时",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "conf",
				Aliases:     []string{"c"},
				Value:       "cmd/timestampstat/tasks.yaml",
				Destination: &configPath,
			},
		},
		Action: func(c *cli.Context) error {
			return run(configPath)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	for i, task := range config.Tasks {
		report, err := calc.CalcTimeConsumptions(task.Before, task.After)
		if err != nil {
			return errors.Wrapf(err, "任务 #%v 失败", i)
		}

		log.Infof("任务 #%v 总耗时: %v", i, report.Overall)
		for _, sc := range report.Stages {
			log.Infof("任务 #%v 阶段 %v: 次数 %v, 平均 %v, 最长 %v", i, sc.Stage, sc.Count, sc.Average, sc.Max)
		}
	}

	return nil
}
