package service

import (
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	log "github.com/sirupsen/logrus"
)

// UserCreation 为注册新使用者的请求。
type UserCreation struct {
	ID          string
	Secret      string
	Type        string
	Affiliation string
}

// UserCredentialsInfo 为新使用者的身份材料。
type UserCredentialsInfo struct {
	ID              string `json:"id"`
	MSPID           string `json:"mspId"`
	KeyID           string `json:"keyId"`
	Key             string `json:"key"`
	Certificate     string `json:"certificate"`
	RootCertificate string `json:"rootCertificate"`
}

// IdentityService registers and enrolls users through the identity manager.
type IdentityService struct {
	Identities *identity.Manager
}

func (s *IdentityService) CreateUser(req *UserCreation) (*UserCredentialsInfo, error) {
	regReq := &identity.RegistrationRequest{}
	if req != nil {
		regReq = &identity.RegistrationRequest{
			ID:          req.ID,
			Secret:      req.Secret,
			Type:        req.Type,
			Affiliation: req.Affiliation,
		}
	}

	creds, err := s.Identities.RegisterAndEnrollUser(regReq)
	if err != nil {
		return nil, err
	}

	log.Infof("已创建使用者 '%v'", creds.ID)
	return &UserCredentialsInfo{
		ID:              creds.ID,
		MSPID:           creds.MSPID,
		KeyID:           creds.KeyID,
		Key:             string(creds.Key),
		Certificate:     string(creds.Certificate),
		RootCertificate: string(creds.RootCertificate),
	}, nil
}
