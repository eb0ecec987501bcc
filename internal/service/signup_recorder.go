package service

import (
	"context"
	"sync"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
)

// MemorySignupRecorder keeps signup records in memory. It is used when no database is configured.
type MemorySignupRecorder struct {
	mu      sync.RWMutex
	records map[string]*signup.Record
}

// NewMemorySignupRecorder creates an empty recorder.
func NewMemorySignupRecorder() *MemorySignupRecorder {
	return &MemorySignupRecorder{records: map[string]*signup.Record{}}
}

func (r *MemorySignupRecorder) SaveSignup(ctx context.Context, record *signup.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = copyRecord(record)
	return nil
}

func (r *MemorySignupRecorder) GetSignup(ctx context.Context, id string) (*signup.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, errorcode.New(errorcode.KindNotFound, "加入流程 '%v' 不存在", id)
	}

	return copyRecord(record), nil
}

func copyRecord(record *signup.Record) *signup.Record {
	ret := *record
	if record.Artifacts != nil {
		ret.Artifacts = make(map[string]string, len(record.Artifacts))
		for k, v := range record.Artifacts {
			ret.Artifacts[k] = v
		}
	}
	ret.Compensations = append([]signup.Compensation(nil), record.Compensations...)
	if record.TimeFinished != nil {
		t := *record.TimeFinished
		ret.TimeFinished = &t
	}

	return &ret
}
