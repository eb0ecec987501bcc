package service

import (
	"testing"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/stretchr/testify/assert"
)

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	s := &IdentityService{Identities: env.info.Identities}

	info, err := s.CreateUser(&UserCreation{ID: "user1", Secret: "user1pw", Type: "client"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, &UserCredentialsInfo{
		ID:              "user1",
		MSPID:           "Org1MSP",
		KeyID:           "ski-user1",
		Key:             "key-of-user1",
		Certificate:     "cert-of-user1",
		RootCertificate: "root-cert",
	}, info)
	assert.Equal(t, []string{"enroll:peerAdmin", "register:user1", "enroll:user1"}, env.ca.Calls())
}

func TestCreateUserTwice(t *testing.T) {
	env := newTestEnv(t)
	s := &IdentityService{Identities: env.info.Identities}

	_, err := s.CreateUser(&UserCreation{ID: "user1", Secret: "user1pw"})
	assert.NoError(t, err)

	_, err = s.CreateUser(&UserCreation{ID: "user1", Secret: "another"})
	assert.True(t, errorcode.Is(err, errorcode.KindRegistration))
}

func TestCreateUserRejectsMissingFields(t *testing.T) {
	s := &IdentityService{Identities: newTestEnv(t).info.Identities}

	for _, req := range []*UserCreation{nil, {ID: "user1"}, {Secret: "pw"}} {
		_, err := s.CreateUser(req)
		assert.True(t, errorcode.Is(err, errorcode.KindBadRequest))
	}
}
