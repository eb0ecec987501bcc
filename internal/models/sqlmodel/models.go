package sqlmodel

import (
	"database/sql"
	"sort"
	"time"

	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
	"github.com/pkg/errors"
)

// OrgSignup 定义了数据库表 org_signups，用于读写组织加入流程的记录。
type OrgSignup struct {
	ID            int64
	OrgName       string    `gorm:"type:VARCHAR(255) NOT NULL"`
	MSPID         string    `gorm:"type:VARCHAR(255) NOT NULL"`
	Status        string    `gorm:"type:ENUM('RUNNING', 'SUCCEEDED', 'FAILED', 'ROLLED_BACK', 'PARTIALLY_ROLLED_BACK') NOT NULL"`
	LastStage     string    `gorm:"type:VARCHAR(64)"`
	FailedStage   string    `gorm:"type:VARCHAR(64)"`
	TxID          string    `gorm:"type:VARCHAR(128)"`
	ErrorKind     string    `gorm:"type:VARCHAR(64)"`
	Error         string    `gorm:"type:TEXT"`
	TimeStarted   time.Time `gorm:"not null"`
	TimeFinished  sql.NullTime
	Artifacts     []SignupArtifact     `gorm:"foreignKey:SignupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Compensations []SignupCompensation `gorm:"foreignKey:SignupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SignupArtifact 定义了加入流程归档的配置快照。OrgSignup 与 SignupArtifact 为一对多关系。
type SignupArtifact struct {
	ID       uint   `gorm:"primaryKey"`
	SignupID int64  `gorm:"not null;index"`
	Name     string `gorm:"type:VARCHAR(255) NOT NULL"`
	Location string `gorm:"type:VARCHAR(1024) NOT NULL"`
}

// SignupCompensation 定义了加入流程失败后执行的补偿。Seq 为执行顺序。
type SignupCompensation struct {
	ID           uint      `gorm:"primaryKey"`
	SignupID     int64     `gorm:"not null;index"`
	Seq          int       `gorm:"not null"`
	Stage        string    `gorm:"type:VARCHAR(64) NOT NULL"`
	Succeeded    bool      `gorm:"not null"`
	Partial      bool      `gorm:"not null;default:false"`
	Error        string    `gorm:"type:TEXT"`
	TimeExecuted time.Time `gorm:"not null"`
}

// ToModel 将一个 `sqlmodel.OrgSignup` 对象转为 `signup.Record` 对象。
func (s *OrgSignup) ToModel() *signup.Record {
	ret := &signup.Record{
		ID:          parseInt64ToSnowflakeString(s.ID),
		OrgName:     s.OrgName,
		MSPID:       s.MSPID,
		Status:      signup.Status(s.Status),
		LastStage:   s.LastStage,
		FailedStage: s.FailedStage,
		TxID:        s.TxID,
		ErrorKind:   s.ErrorKind,
		Error:       s.Error,
		Artifacts:   map[string]string{},
		TimeStarted: s.TimeStarted,
	}

	if s.TimeFinished.Valid {
		t := s.TimeFinished.Time
		ret.TimeFinished = &t
	}

	for _, a := range s.Artifacts {
		ret.Artifacts[a.Name] = a.Location
	}

	compensations := append([]SignupCompensation(nil), s.Compensations...)
	sort.Slice(compensations, func(i, j int) bool { return compensations[i].Seq < compensations[j].Seq })
	for _, c := range compensations {
		ret.Compensations = append(ret.Compensations, signup.Compensation{
			Stage:        c.Stage,
			Succeeded:    c.Succeeded,
			Partial:      c.Partial,
			Error:        c.Error,
			TimeExecuted: c.TimeExecuted,
		})
	}

	return ret
}

// NewOrgSignupFromModel 通过 `signup.Record` 对象创建一个 `sqlmodel.OrgSignup` 对象。
func NewOrgSignupFromModel(model *signup.Record) (*OrgSignup, error) {
	id, err := parseSnowflakeStringToInt64(model.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "无法转换加入流程记录为数据库对象: id: %v", model.ID)
	}

	ret := &OrgSignup{
		ID:          id,
		OrgName:     model.OrgName,
		MSPID:       model.MSPID,
		Status:      string(model.Status),
		LastStage:   model.LastStage,
		FailedStage: model.FailedStage,
		TxID:        model.TxID,
		ErrorKind:   model.ErrorKind,
		Error:       model.Error,
		TimeStarted: model.TimeStarted,
	}

	if model.TimeFinished != nil {
		ret.TimeFinished = sql.NullTime{Time: *model.TimeFinished, Valid: true}
	}

	names := make([]string, 0, len(model.Artifacts))
	for name := range model.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ret.Artifacts = append(ret.Artifacts, SignupArtifact{SignupID: id, Name: name, Location: model.Artifacts[name]})
	}

	for i, c := range model.Compensations {
		ret.Compensations = append(ret.Compensations, SignupCompensation{
			SignupID:     id,
			Seq:          i,
			Stage:        c.Stage,
			Succeeded:    c.Succeeded,
			Partial:      c.Partial,
			Error:        c.Error,
			TimeExecuted: c.TimeExecuted,
		})
	}

	return ret, nil
}
