package service

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gitee.com/czyczk/fabric-netadmin/internal/archive"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSignupOrg(t *testing.T) {
	env := newTestEnv(t)
	s := NewOrgService(env.info, nil)

	record, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, signup.StatusSucceeded, record.Status)
	assert.Equal(t, "Org3MSP", record.MSPID)
	assert.Equal(t, StageSubmitUpdate, record.LastStage)
	assert.Equal(t, "tx1", record.TxID)
	assert.NotNil(t, record.TimeFinished)

	// 阶段 1：先注册再登记
	assert.Equal(t, []string{"enroll:peerAdmin", "register:Org3", "enroll:Org3"}, env.ca.Calls())

	// 阶段 2：MSP 目录
	assert.Equal(t, []string{
		"/orgs/Org3/msp/admincerts/cert.pem",
		"/orgs/Org3/msp/cacerts/ca-cert.pem",
		"/orgs/Org3/msp/keystore/ski-Org3_sk",
		"/orgs/Org3/msp/signcerts/cert.pem",
	}, env.gw.Files("/orgs/Org3"))

	// 阶段 3：启动节点
	if assert.Equal(t, []string{"/scripts/bootstrapPeer.sh"}, env.gw.ScriptPaths()) {
		assert.Equal(t, []string{
			"-n", "Org3",
			"-d", "/orgs/Org3",
			"-m", "Org3MSP",
			"-b", "0.0.0.0",
			"-p", "9051",
			"-c", "9052",
		}, env.gw.ScriptCalls[0].Args)
	}

	// 阶段 4 至 7：均以排序节点管理员身份进行
	assert.Equal(t, []string{
		"ordererAdmin:open",
		"ordererAdmin:lastConfig:testchainid",
		"ordererAdmin:sign",
		"ordererAdmin:submitChannel:testchainid",
		"ordererAdmin:close",
	}, env.network.CallLog())

	// 配置差异由同一份快照计算
	if assert.Len(t, env.translator.computed, 1) {
		pair := env.translator.computed[0]
		assert.Equal(t, []byte(systemChannelConfig), pair[0])
		assert.Contains(t, string(pair[1]), `"Org3MSP"`)
		assert.Contains(t, string(pair[1]), `"Org1MSP"`)
	}

	if assert.Len(t, env.network.ChannelRequests, 1) {
		req := env.network.ChannelRequests[0]
		assert.True(t, bytes.HasPrefix(req.Config, []byte("diff:")))
		if assert.Len(t, req.Signatures, 1) {
			assert.True(t, strings.HasPrefix(string(req.Signatures[0]), "sig(OrdererMSP,diff:"))
		}
	}

	stored, err := s.GetSignup(context.Background(), record.ID)
	assert.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestSignupOrgDuplicateIdentityFailsFast(t *testing.T) {
	env := newTestEnv(t)
	env.ca.secrets["Org3"] = "existing"
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindRegistration))

	assert.Equal(t, []string{"enroll:peerAdmin", "register:Org3"}, env.ca.Calls())
	assert.Empty(t, env.gw.Files("/orgs"))
	assert.Empty(t, env.gw.ScriptCalls)
	assert.Empty(t, env.network.CallLog())
	assert.Equal(t, "existing", env.ca.secrets["Org3"])
}

func TestSignupOrgCompensatesInReverseOrder(t *testing.T) {
	env := newTestEnv(t)
	env.network.OrdererStatus = "BAD_REQUEST"
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindCommit))

	e, _ := errorcode.As(err)
	assert.Contains(t, e.Details, "失败阶段: "+StageSubmitUpdate)

	var id string
	for _, d := range e.Details {
		if strings.HasPrefix(d, "加入流程 ID: ") {
			id = strings.TrimPrefix(d, "加入流程 ID: ")
		}
	}
	record, err := s.GetSignup(context.Background(), id)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, signup.StatusRolledBack, record.Status)
	assert.Equal(t, StageSubmitUpdate, record.FailedStage)
	assert.Equal(t, StageComputeUpdate, record.LastStage)
	assert.Equal(t, string(errorcode.KindCommit), record.ErrorKind)
	assert.Equal(t, "tx1", record.TxID)

	var undone []string
	for _, c := range record.Compensations {
		assert.True(t, c.Succeeded)
		undone = append(undone, c.Stage)
	}
	assert.Equal(t, []string{StageBootstrapPeer, StagePersistMSP, StageRegisterIdentity}, undone)

	assert.Equal(t, []string{"/scripts/bootstrapPeer.sh", "/scripts/teardownPeer.sh"}, env.gw.ScriptPaths())
	assert.Empty(t, env.gw.Files("/orgs/Org3"))
	assert.Contains(t, env.ca.Calls(), "remove:Org3")
	assert.NotContains(t, env.ca.Calls(), "revoke:Org3")
	assert.Equal(t, 0, env.network.OpenSessions())
}

func TestSignupOrgWithoutCompensationLeavesState(t *testing.T) {
	env := newTestEnv(t)
	env.info.Settings.Signup.Compensate = false
	env.gw.Scripts["/scripts/bootstrapPeer.sh"] = failingScript("docker: port is already allocated")
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindSubprocess))

	e, _ := errorcode.As(err)
	assert.Contains(t, e.Details, "docker: port is already allocated")
	assert.Contains(t, e.Details, "失败阶段: "+StageBootstrapPeer)

	assert.Len(t, env.gw.Files("/orgs/Org3/msp"), 4)
	assert.NotContains(t, env.ca.Calls(), "remove:Org3")
	assert.Empty(t, env.network.CallLog())
}

func TestSignupOrgFailedCompensationIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.ca.removeError = fmt.Errorf("CA unavailable")
	env.translator.decodeErr = errorcode.New(errorcode.KindConfigTranslation, "configtxlator 返回 500")
	recorder := NewMemorySignupRecorder()
	s := NewOrgService(env.info, recorder)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindConfigTranslation))
	assert.Empty(t, env.network.ChannelRequests)

	assert.Len(t, recorder.records, 1)
	for _, record := range recorder.records {
		assert.Equal(t, signup.StatusFailed, record.Status)
		assert.Equal(t, StageMutateConfig, record.FailedStage)
		if assert.Len(t, record.Compensations, 3) {
			last := record.Compensations[2]
			assert.Equal(t, StageRegisterIdentity, last.Stage)
			assert.False(t, last.Succeeded)
			assert.Contains(t, last.Error, "CA unavailable")
		}
	}
}

func signupIDOf(t *testing.T, err error) string {
	e, ok := errorcode.As(err)
	if !ok {
		t.Fatalf("not a typed error: %v", err)
	}
	for _, d := range e.Details {
		if strings.HasPrefix(d, "加入流程 ID: ") {
			return strings.TrimPrefix(d, "加入流程 ID: ")
		}
	}
	t.Fatalf("no signup ID in %v", e.Details)
	return ""
}

func TestSignupOrgRetryAfterRollback(t *testing.T) {
	env := newTestEnv(t)
	env.network.OrdererStatus = "BAD_REQUEST"
	s := NewOrgService(env.info, nil)
	ctx := context.Background()

	_, err := s.SignupOrg(ctx, &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindCommit))

	env.network.OrdererStatus = ""
	record, err := s.SignupOrg(ctx, &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, signup.StatusSucceeded, record.Status)
}

func TestSignupOrgRevokeOnlyIsPartialRollback(t *testing.T) {
	env := newTestEnv(t)
	env.network.OrdererStatus = "BAD_REQUEST"
	env.ca.removeError = errors.Wrap(identity.ErrRemovalDisabled, "Identity removal is disabled")
	s := NewOrgService(env.info, nil)
	ctx := context.Background()

	_, err := s.SignupOrg(ctx, &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindCommit))

	record, err := s.GetSignup(ctx, signupIDOf(t, err))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, signup.StatusPartiallyRolledBack, record.Status)
	if assert.Len(t, record.Compensations, 3) {
		last := record.Compensations[2]
		assert.Equal(t, StageRegisterIdentity, last.Stage)
		assert.True(t, last.Succeeded)
		assert.True(t, last.Partial)
		assert.False(t, record.Compensations[0].Partial)
	}
	assert.True(t, env.ca.revoked["Org3"])

	env.network.OrdererStatus = ""
	_, err = s.SignupOrg(ctx, &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindRegistration))
}

func TestSignupOrgFailedBootstrapIsTornDown(t *testing.T) {
	env := newTestEnv(t)
	env.gw.Scripts["/scripts/bootstrapPeer.sh"] = failingScript("docker: port is already allocated")
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindSubprocess))

	assert.Equal(t, []string{"/scripts/bootstrapPeer.sh", "/scripts/teardownPeer.sh"}, env.gw.ScriptPaths())
	assert.Empty(t, env.gw.Files("/orgs/Org3"))
	assert.Contains(t, env.ca.Calls(), "remove:Org3")
	assert.Empty(t, env.network.CallLog())
}

func TestSignupOrgWithoutTeardownScript(t *testing.T) {
	env := newTestEnv(t)
	env.info.Settings.Scripts.TeardownPeer = ""
	env.translator.computeErr = errorcode.New(errorcode.KindSubprocessTimeout, "configtxlator.sh 超时")
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw", PeerPort: 10051, ChaincodePort: 10052})
	assert.True(t, errorcode.Is(err, errorcode.KindSubprocessTimeout))

	assert.Equal(t, []string{"/scripts/bootstrapPeer.sh"}, env.gw.ScriptPaths())
	assert.Equal(t, "10051", argAfter(env.gw.ScriptCalls[0].Args, "-p"))
	assert.Equal(t, "10052", argAfter(env.gw.ScriptCalls[0].Args, "-c"))
	assert.Empty(t, env.gw.Files("/orgs/Org3"))
}

func TestSignupOrgAlreadyInConsortium(t *testing.T) {
	env := newTestEnv(t)
	s := NewOrgService(env.info, nil)

	_, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org1", Secret: "org1pw"})
	assert.True(t, errorcode.Is(err, errorcode.KindBadRequest))
	assert.Empty(t, env.network.ChannelRequests)
}

func TestSignupOrgRejectsBadRequests(t *testing.T) {
	s := NewOrgService(newTestEnv(t).info, nil)

	for _, req := range []*OrgSignup{nil, {OrgName: "", Secret: "x"}, {OrgName: "../Org3", Secret: "x"}, {OrgName: "Org3"}} {
		_, err := s.SignupOrg(context.Background(), req)
		assert.True(t, errorcode.Is(err, errorcode.KindBadRequest))
	}
}

func TestSignupOrgArchivesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	env.info.Archive = archive.NewFileArchive("/archive", env.gw)
	s := NewOrgService(env.info, nil)

	record, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, filepath.Join("/archive", record.ID, "original-config.pb"), record.Artifacts["original-config.pb"])
	original, err := env.gw.ReadFile(record.Artifacts["original-config.pb"])
	assert.NoError(t, err)
	assert.Equal(t, []byte(systemChannelConfig), original)

	update, err := env.gw.ReadFile(record.Artifacts["config-update.pb"])
	assert.NoError(t, err)
	assert.Equal(t, env.network.ChannelRequests[0].Config, update)
}

func TestSignupOrgWritesStageTimings(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	env.info.Settings.Signup.TimingLogDir = dir
	s := NewOrgService(env.info, nil)

	record, err := s.SignupOrg(context.Background(), &OrgSignup{OrgName: "Org3", Secret: "org3pw"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	endLog, err := ioutil.ReadFile(filepath.Join(dir, "end.log"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	lines := strings.Split(strings.TrimSpace(string(endLog)), "\n")
	if assert.Len(t, lines, 7) {
		assert.True(t, strings.HasPrefix(lines[0], record.ID+"~"+StageRegisterIdentity+"~"))
		assert.True(t, strings.HasPrefix(lines[6], record.ID+"~"+StageSubmitUpdate+"~"))
		for _, line := range lines {
			assert.True(t, strings.HasSuffix(line, "~T"), line)
		}
	}
}

func TestConcurrentSignupsDoNotShareState(t *testing.T) {
	env := newTestEnv(t)
	s := NewOrgService(env.info, nil)

	var wg sync.WaitGroup
	records := make([]*signup.Record, 2)
	errs := make([]error, 2)
	for i, name := range []string{"Org3", "Org4"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			records[i], errs[i] = s.SignupOrg(context.Background(), &OrgSignup{OrgName: name, Secret: name + "pw"})
		}(i, name)
	}
	wg.Wait()

	for i, name := range []string{"Org3", "Org4"} {
		if isNoError := assert.NoError(t, errs[i]); !isNoError {
			t.FailNow()
		}
		assert.Equal(t, name+"MSP", records[i].MSPID)
		assert.Len(t, env.gw.Files("/orgs/"+name+"/msp"), 4)
	}
	assert.NotEqual(t, records[0].ID, records[1].ID)

	assert.Len(t, env.network.Identities, 2)
	assert.NotSame(t, env.network.Identities[0], env.network.Identities[1])
	assert.Equal(t, 0, env.network.OpenSessions())

	for _, pair := range env.translator.computed {
		assert.Equal(t, []byte(systemChannelConfig), pair[0])
	}
}

func TestGetSignupNotFound(t *testing.T) {
	s := NewOrgService(newTestEnv(t).info, nil)

	_, err := s.GetSignup(context.Background(), "42")
	assert.True(t, errorcode.Is(err, errorcode.KindNotFound))
}
