package calc

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// stageKey identifies one stage of one workflow.
type stageKey struct {
	WorkflowID string
	Stage      string
}

type stageLine struct {
	stageKey
	Timestamp time.Time
	IsSuccess bool
}

// parseStageLine parses a "${workflowID}~${stage}~${timestamp}~${T|F}" line.
func parseStageLine(line string) (*stageLine, error) {
	parts := strings.Split(line, "~")
	if len(parts) != 4 {
		return nil, errors.Errorf("无法解析行 '%v'", line)
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, errors.Wrapf(err, "行 '%v' 中的时间戳无效", line)
	}

	var isSuccess bool
	switch parts[3] {
	case "T":
		isSuccess = true
	case "F":
		isSuccess = false
	default:
		return nil, errors.Errorf("行 '%v' 中的结果标记无效", line)
	}

	return &stageLine{
		stageKey:  stageKey{WorkflowID: parts[0], Stage: parts[1]},
		Timestamp: timestamp,
		IsSuccess: isSuccess,
	}, nil
}

func scanStageLines(filePath string, fn func(*stageLine)) error {
	fd, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "无法打开文件 '%v'", filePath)
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parsed, err := parseStageLine(line)
		if err != nil {
			return err
		}
		fn(parsed)
	}

	return errors.Wrapf(scanner.Err(), "无法读取文件 '%v'", filePath)
}

// loadStartEndTimestamps reads the start log and the end log. Stages that ended with a failure are dropped from both maps.
func loadStartEndTimestamps(startLogFilePath, endLogFilePath string) (startTimestamps map[stageKey]time.Time, endTimestamps map[stageKey]time.Time, err error) {
	startTimestamps = make(map[stageKey]time.Time)
	endTimestamps = make(map[stageKey]time.Time)

	err = scanStageLines(startLogFilePath, func(l *stageLine) {
		startTimestamps[l.stageKey] = l.Timestamp
	})
	if err != nil {
		return
	}

	err = scanStageLines(endLogFilePath, func(l *stageLine) {
		if l.IsSuccess {
			endTimestamps[l.stageKey] = l.Timestamp
		} else {
			log.Infof("流程 '%v' 的阶段 '%v' 失败，将被忽略", l.WorkflowID, l.Stage)
			delete(startTimestamps, l.stageKey)
		}
	})
	return
}

func getMin(timestamps map[stageKey]time.Time) (min time.Time) {
	for _, t := range timestamps {
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}

	return
}

func getMax(timestamps map[stageKey]time.Time) (max time.Time) {
	for _, t := range timestamps {
		if t.After(max) {
			max = t
		}
	}

	return
}
