package service

// IdentityServiceInterface 定义了有关于使用者身份的服务的接口。
type IdentityServiceInterface interface {
	// 注册并登记一个新的使用者身份。身份已存在时返回 RegistrationError。
	//
	// 参数：
	//   注册请求
	//
	// 返回：
	//   新身份的私钥、证书与 CA 根证书
	CreateUser(req *UserCreation) (*UserCredentialsInfo, error)
}
