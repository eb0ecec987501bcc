package service

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
)

// IOrgService 定义了新组织加入网络的服务接口。
type IOrgService interface {
	// 按顺序执行组织加入的七个阶段：注册并登记身份、写入 MSP 目录、启动节点、获取系统通道配置、
	// 加入联盟成员、计算并签名配置更新、提交配置更新。任一阶段失败即中止。
	//
	// 参数：
	//   加入请求
	//
	// 返回：
	//   流程记录
	SignupOrg(ctx context.Context, req *OrgSignup) (*signup.Record, error)

	// 获取加入流程的记录。
	//
	// 参数：
	//   流程 ID
	GetSignup(ctx context.Context, id string) (*signup.Record, error)
}

// ISignupRecorder persists signup records.
type ISignupRecorder interface {
	SaveSignup(ctx context.Context, record *signup.Record) error
	GetSignup(ctx context.Context, id string) (*signup.Record, error)
}
