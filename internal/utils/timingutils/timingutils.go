package timingutils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var showTimingLogs = atomic.NewBool(false)

// SetShowTimingLogs switches the deferrable timing loggers on or off.
func SetShowTimingLogs(show bool) {
	showTimingLogs.Store(show)
}

// GetDeferrableTimingLogger creates a logger function that starts a timer when called and ends the timer when the calling function ends and logs (at debug level) the time diff.
func GetDeferrableTimingLogger(message string) func() {
	if !showTimingLogs.Load() {
		return func() {}
	}

	start := time.Now()
	return func() {
		log.Debugf("%v: %v", message, time.Since(start))
	}
}

// getFileDescriptorAppendMode gets a file descriptor for the specified file path as append mode. Useful for appending logs to the file.
func getFileDescriptorAppendMode(filename string) (f *os.File, err error) {
	f, err = os.OpenFile(filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		err = errors.Wrapf(err, "无法以附加模式打开文件 %v", filename)
		return
	}

	return
}

func SerializeTimestamp(timestamp time.Time) (timestampStr string, err error) {
	timestampBytes, err := timestamp.MarshalText()
	if err != nil {
		err = errors.Wrap(err, "无法序列化时间戳")
		return
	}

	timestampStr = string(timestampBytes)
	return
}

// StageFileLogger appends stage timestamps of a workflow to a start log file and an end log file. Lines are formatted as "${WorkflowID}~${stage}~${timestamp}~${isSuccess}".
type StageFileLogger struct {
	WorkflowID   string
	StartLogFile *os.File
	EndLogFile   *os.File
	mu           sync.Mutex
}

// NewStageFileLogger opens (or creates) `start.log` and `end.log` under `dir`.
func NewStageFileLogger(workflowID string, dir string) (*StageFileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "无法创建目录 %v", dir)
	}

	startLogFd, err := getFileDescriptorAppendMode(filepath.Join(dir, "start.log"))
	if err != nil {
		return nil, err
	}

	endLogFd, err := getFileDescriptorAppendMode(filepath.Join(dir, "end.log"))
	if err != nil {
		_ = startLogFd.Close()
		return nil, err
	}

	return &StageFileLogger{
		WorkflowID:   workflowID,
		StartLogFile: startLogFd,
		EndLogFile:   endLogFd,
	}, nil
}

func (l *StageFileLogger) writeLine(target *os.File, stage string, timestamp time.Time, isSuccess bool) error {
	if l == nil {
		return nil
	}

	isSuccessStr := "T"
	if !isSuccess {
		isSuccessStr = "F"
	}

	timestampStr, err := SerializeTimestamp(timestamp)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err = fmt.Fprintf(target, "%v~%v~%v~%v\n", l.WorkflowID, stage, timestampStr, isSuccessStr); err != nil {
		return errors.Wrapf(err, "无法往文件 %v 中添加内容", target.Name())
	}

	return nil
}

// LogStart logs the start of a stage. It should be called right before the stage is started.
func (l *StageFileLogger) LogStart(stage string) error {
	return l.writeLine(l.startFile(), stage, time.Now(), true)
}

// LogEnd logs the end of a stage with its outcome.
func (l *StageFileLogger) LogEnd(stage string, isSuccess bool) error {
	return l.writeLine(l.endFile(), stage, time.Now(), isSuccess)
}

func (l *StageFileLogger) startFile() *os.File {
	if l == nil {
		return nil
	}
	return l.StartLogFile
}

func (l *StageFileLogger) endFile() *os.File {
	if l == nil {
		return nil
	}
	return l.EndLogFile
}

func (l *StageFileLogger) Close() error {
	if l == nil {
		return nil
	}

	return multierr.Combine(l.StartLogFile.Close(), l.EndLogFile.Close())
}
