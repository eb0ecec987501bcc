package calc

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// StageConsumption is the time spent on one stage, averaged over all successful workflows.
type StageConsumption struct {
	Stage   string
	Count   int
	Average time.Duration
	Max     time.Duration
}

// Report is the result of a start/end log pair.
type Report struct {
	// Overall is the span between the earliest start and the latest end.
	Overall time.Duration
	Stages  []*StageConsumption
}

// CalcTimeConsumptions summarizes the stage logs written by a StageFileLogger.
func CalcTimeConsumptions(filePathBefore, filePathAfter string) (*Report, error) {
	timestampsBefore, timestampsAfter, err := loadStartEndTimestamps(filePathBefore, filePathAfter)
	if err != nil {
		return nil, err
	}

	if len(timestampsBefore) == 0 {
		return nil, errors.New("文件为空")
	}

	sums := make(map[string]*StageConsumption)
	var order []string
	for key, tBefore := range timestampsBefore {
		tAfter, ok := timestampsAfter[key]
		if !ok {
			return nil, errors.Errorf("在结束日志中找不到流程 '%v' 阶段 '%v' 的时间戳", key.WorkflowID, key.Stage)
		}

		consumption := tAfter.Sub(tBefore)
		sc, ok := sums[key.Stage]
		if !ok {
			sc = &StageConsumption{Stage: key.Stage}
			sums[key.Stage] = sc
			order = append(order, key.Stage)
		}
		sc.Count++
		sc.Average += consumption
		if consumption > sc.Max {
			sc.Max = consumption
		}
	}

	sort.Strings(order)
	report := &Report{Overall: getMax(timestampsAfter).Sub(getMin(timestampsBefore))}
	for _, stage := range order {
		sc := sums[stage]
		sc.Average = time.Duration(int64(sc.Average) / int64(sc.Count))
		report.Stages = append(report.Stages, sc)
	}

	return report, nil
}
