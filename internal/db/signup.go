package db

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/internal/models/sqlmodel"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignupRecorder 将组织加入流程的记录保存在 MySQL 中。
type SignupRecorder struct {
	DB *gorm.DB
}

// NewSignupRecorder 创建记录器，并迁移所需的表。
func NewSignupRecorder(db *gorm.DB) (*SignupRecorder, error) {
	if err := db.AutoMigrate(&sqlmodel.OrgSignup{}, &sqlmodel.SignupArtifact{}, &sqlmodel.SignupCompensation{}); err != nil {
		return nil, errors.Wrap(err, "无法迁移加入流程记录表")
	}

	return &SignupRecorder{DB: db}, nil
}

// SaveSignup 写入或覆盖一条加入流程记录。归档与补偿子记录会被整体替换。
func (r *SignupRecorder) SaveSignup(ctx context.Context, record *signup.Record) error {
	signupDB, err := sqlmodel.NewOrgSignupFromModel(record)
	if err != nil {
		return errorcode.Wrap(err, errorcode.KindBadRequest, "加入流程记录无效")
	}

	artifacts, compensations := signupDB.Artifacts, signupDB.Compensations
	signupDB.Artifacts, signupDB.Compensations = nil, nil

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 写入或覆盖主记录于 org_signups 表
		dbResult := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(signupDB)
		if dbResult.Error != nil {
			return errors.Wrap(dbResult.Error, "无法将加入流程记录存入数据库")
		}

		if err := tx.Where("signup_id = ?", signupDB.ID).Delete(&sqlmodel.SignupArtifact{}).Error; err != nil {
			return errors.Wrap(err, "无法清除旧的归档记录")
		}
		if err := tx.Where("signup_id = ?", signupDB.ID).Delete(&sqlmodel.SignupCompensation{}).Error; err != nil {
			return errors.Wrap(err, "无法清除旧的补偿记录")
		}

		if len(artifacts) > 0 {
			if err := tx.Create(&artifacts).Error; err != nil {
				return errors.Wrap(err, "无法将归档记录存入数据库")
			}
		}
		if len(compensations) > 0 {
			if err := tx.Create(&compensations).Error; err != nil {
				return errors.Wrap(err, "无法将补偿记录存入数据库")
			}
		}

		return nil
	})
	if err != nil {
		return errorcode.Wrap(err, errorcode.KindInternal, "无法保存加入流程 '%v'", record.ID)
	}

	return nil
}

// GetSignup 从数据库中读取指定 ID 的加入流程记录。
func (r *SignupRecorder) GetSignup(ctx context.Context, id string) (*signup.Record, error) {
	var signupDB sqlmodel.OrgSignup
	dbResult := r.DB.WithContext(ctx).
		Preload("Artifacts").
		Preload("Compensations").
		Where("id = ?", id).
		Take(&signupDB)
	if dbResult.Error != nil {
		if errors.Is(dbResult.Error, gorm.ErrRecordNotFound) {
			return nil, errorcode.New(errorcode.KindNotFound, "加入流程 '%v' 不存在", id)
		}
		return nil, errorcode.Wrap(dbResult.Error, errorcode.KindInternal, "无法从数据库中获取加入流程 '%v'", id)
	}

	return signupDB.ToModel(), nil
}
