package service

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"
	"gitee.com/czyczk/fabric-netadmin/internal/configtxlator"
	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/internal/identity"
	"gitee.com/czyczk/fabric-netadmin/internal/utils/idutils"
	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	"gitee.com/czyczk/fabric-netadmin/pkg/configutils"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"gitee.com/czyczk/fabric-netadmin/pkg/models/signup"
	log "github.com/sirupsen/logrus"
)

const (
	StageRegisterIdentity = "registerIdentity"
	StagePersistMSP       = "persistMSP"
	StageBootstrapPeer    = "bootstrapPeer"
	StageFetchConfig      = "fetchConfig"
	StageMutateConfig     = "mutateConfig"
	StageComputeUpdate    = "computeUpdate"
	StageSubmitUpdate     = "submitUpdate"
)

// OrgSignup 为新组织加入网络的请求。端口为 0 时使用配置中的默认值。
type OrgSignup struct {
	OrgName       string
	Secret        string
	BindAddress   string
	PeerPort      int
	ChaincodePort int
}

// orgSignupState is carried through the stages of one signup. Each signup owns its own instance.
type orgSignupState struct {
	orgName string
	secret  string
	mspID   string
	orgDir  string
	mspDir  string

	bindAddress   string
	peerPort      int
	chaincodePort int

	creds   *identity.UserCredentials
	session bcao.ILedgerSession

	originalConfig  []byte
	originalDecoded map[string]interface{}
	updatedDecoded  map[string]interface{}
	updatedConfig   []byte
	configUpdate    []byte
	signature       []byte
	txID            string
}

type signupStage struct {
	name string
	run  func(ctx context.Context, st *orgSignupState, saga *signupSaga) error
}

// undoFunc undoes a completed stage. `complete` is false when the stage could only be partially undone.
type undoFunc func(ctx context.Context) (complete bool, err error)

type compensation struct {
	stage string
	undo  undoFunc
}

// signupSaga collects the compensations of the completed stages.
type signupSaga struct {
	compensations []compensation
}

func (s *signupSaga) push(stage string, undo undoFunc) {
	s.compensations = append(s.compensations, compensation{stage: stage, undo: undo})
}

// OrgService onboards new organizations into the consortium of the system channel.
type OrgService struct {
	*Info
	Recorder ISignupRecorder
}

// NewOrgService creates an org service. An in-memory recorder is used if `recorder` is nil.
func NewOrgService(info *Info, recorder ISignupRecorder) *OrgService {
	if recorder == nil {
		recorder = NewMemorySignupRecorder()
	}

	return &OrgService{Info: info, Recorder: recorder}
}

func (s *OrgService) stages() []signupStage {
	return []signupStage{
		{StageRegisterIdentity, s.registerIdentity},
		{StagePersistMSP, s.persistMSP},
		{StageBootstrapPeer, s.bootstrapPeer},
		{StageFetchConfig, s.fetchConfig},
		{StageMutateConfig, s.mutateConfig},
		{StageComputeUpdate, s.computeUpdate},
		{StageSubmitUpdate, s.submitUpdate},
	}
}

// SignupOrg runs the seven signup stages in order. The first failure aborts the signup. When compensation is enabled, the completed stages are undone in reverse order.
//
// Parameters:
//
//	signup request
//
// Returns:
//
//	the signup record
func (s *OrgService) SignupOrg(ctx context.Context, req *OrgSignup) (*signup.Record, error) {
	if req == nil {
		return nil, errorcode.New(errorcode.KindBadRequest, "缺少组织加入参数")
	}
	if err := checkName("组织名", req.OrgName); err != nil {
		return nil, err
	}
	if req.Secret == "" {
		return nil, errorcode.New(errorcode.KindBadRequest, "组织密码不能为空")
	}

	idInt, err := idutils.GenerateSnowflakeId()
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindInternal, "无法生成加入流程 ID")
	}
	id := strconv.FormatInt(idInt, 10)

	defer timingutils.GetDeferrableTimingLogger("组织 " + req.OrgName + " 加入网络")()

	var stageLogger *timingutils.StageFileLogger
	if dir := s.Settings.Signup.TimingLogDir; dir != "" {
		if stageLogger, err = timingutils.NewStageFileLogger(id, dir); err != nil {
			log.Warnf("无法打开阶段计时日志: %v", err)
		}
		defer func() {
			if err := stageLogger.Close(); err != nil {
				log.Warnf("无法关闭阶段计时日志: %v", err)
			}
		}()
	}

	st := s.newSignupState(req)
	defer func() {
		if st.session != nil {
			st.session.Close()
		}
	}()

	record := &signup.Record{
		ID:          id,
		OrgName:     st.orgName,
		MSPID:       st.mspID,
		Status:      signup.StatusRunning,
		Artifacts:   map[string]string{},
		TimeStarted: time.Now(),
	}
	s.saveRecord(ctx, record)

	saga := &signupSaga{}
	stages := s.stages()
	for i, stage := range stages {
		log.Infof("[%v] 组织 '%v' 加入阶段 %d/%d: %v", id, st.orgName, i+1, len(stages), stage.name)
		_ = stageLogger.LogStart(stage.name)

		stageErr := stage.run(ctx, st, saga)
		_ = stageLogger.LogEnd(stage.name, stageErr == nil)
		record.TxID = st.txID
		if stageErr != nil {
			return nil, s.abort(record, saga, stage.name, stageErr)
		}

		record.LastStage = stage.name
		if stage.name == StageComputeUpdate {
			s.archiveSnapshots(ctx, record, st)
		}
		s.saveRecord(ctx, record)
	}

	finished := time.Now()
	record.Status = signup.StatusSucceeded
	record.TimeFinished = &finished
	s.saveRecord(ctx, record)

	log.Infof("[%v] 组织 '%v' 已加入联盟 '%v'，交易 ID 为 '%v'", id, st.orgName, s.Settings.Channel.Consortium, record.TxID)
	return record, nil
}

// newSignupState resolves the request against the configured defaults.
func (s *OrgService) newSignupState(req *OrgSignup) *orgSignupState {
	signupSettings := s.Settings.Signup
	orgDir := filepath.Join(signupSettings.OrgsDir, req.OrgName)
	st := &orgSignupState{
		orgName:       req.OrgName,
		secret:        req.Secret,
		mspID:         req.OrgName + "MSP",
		orgDir:        orgDir,
		mspDir:        filepath.Join(orgDir, "msp"),
		bindAddress:   req.BindAddress,
		peerPort:      req.PeerPort,
		chaincodePort: req.ChaincodePort,
	}

	if st.bindAddress == "" {
		st.bindAddress = signupSettings.BindAddress
	}
	if st.peerPort == 0 {
		st.peerPort = signupSettings.PeerPort
	}
	if st.chaincodePort == 0 {
		st.chaincodePort = signupSettings.ChaincodePort
	}

	return st
}

func (s *OrgService) GetSignup(ctx context.Context, id string) (*signup.Record, error) {
	if id == "" {
		return nil, errorcode.New(errorcode.KindBadRequest, "加入流程 ID 不能为空")
	}

	return s.Recorder.GetSignup(ctx, id)
}

// abort records the failure and runs the compensations if enabled. Compensations and the final record use their own context so that they are not cut short when the request context is done.
func (s *OrgService) abort(record *signup.Record, saga *signupSaga, stage string, stageErr error) error {
	log.Errorf("[%v] 组织 '%v' 在阶段 %v 失败: %v", record.ID, record.OrgName, stage, stageErr)

	record.Status = signup.StatusFailed
	record.FailedStage = stage
	record.ErrorKind = string(errorcode.KindOf(stageErr))
	record.Error = stageErr.Error()

	if s.Settings.Signup.Compensate && len(saga.compensations) > 0 {
		allSucceeded, allComplete := true, true
		for i := len(saga.compensations) - 1; i >= 0; i-- {
			c := saga.compensations[i]
			undoCtx, cancel := s.compensationContext()
			complete, err := c.undo(undoCtx)
			cancel()

			entry := signup.Compensation{Stage: c.stage, Succeeded: err == nil, TimeExecuted: time.Now()}
			if err != nil {
				allSucceeded = false
				entry.Error = err.Error()
				log.Errorf("[%v] 无法撤销阶段 %v: %v", record.ID, c.stage, err)
			} else if !complete {
				allComplete = false
				entry.Partial = true
				log.Warnf("[%v] 阶段 %v 仅被部分撤销", record.ID, c.stage)
			} else {
				log.Infof("[%v] 已撤销阶段 %v", record.ID, c.stage)
			}
			record.Compensations = append(record.Compensations, entry)
		}
		if allSucceeded && allComplete {
			record.Status = signup.StatusRolledBack
		} else if allSucceeded {
			record.Status = signup.StatusPartiallyRolledBack
		}
	} else if len(saga.compensations) > 0 {
		log.Warnf("[%v] 未启用补偿，已完成的阶段不会被撤销", record.ID)
	}

	finished := time.Now()
	record.TimeFinished = &finished
	s.saveRecord(context.Background(), record)

	details := []string{"失败阶段: " + stage, "加入流程 ID: " + record.ID}
	if e, ok := errorcode.As(stageErr); ok {
		return e.WithDetails(details...)
	}
	return errorcode.Wrap(stageErr, errorcode.KindInternal, "组织 '%v' 加入失败", record.OrgName).WithDetails(details...)
}

func (s *OrgService) compensationContext() (context.Context, context.CancelFunc) {
	if timeout := s.Settings.Scripts.Timeout; timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (s *OrgService) saveRecord(ctx context.Context, record *signup.Record) {
	if err := s.Recorder.SaveSignup(ctx, record); err != nil {
		log.Warnf("[%v] 无法保存加入流程记录: %v", record.ID, err)
	}
}

// archiveSnapshots stores the config snapshots of the signup. Failures are only logged.
func (s *OrgService) archiveSnapshots(ctx context.Context, record *signup.Record, st *orgSignupState) {
	if s.Archive == nil {
		return
	}

	snapshots := []struct {
		name string
		data []byte
	}{
		{"original-config.pb", st.originalConfig},
		{"updated-config.pb", st.updatedConfig},
		{"config-update.pb", st.configUpdate},
	}
	for _, snapshot := range snapshots {
		location, err := s.Archive.Put(ctx, record.ID+"/"+snapshot.name, snapshot.data)
		if err != nil {
			log.Warnf("[%v] 无法将 %v 归档至 %v: %v", record.ID, snapshot.name, s.Archive.Name(), err)
			continue
		}
		record.Artifacts[snapshot.name] = location
	}
}

func (s *OrgService) registerIdentity(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	creds, err := s.Identities.RegisterAndEnrollUser(&identity.RegistrationRequest{
		ID:          st.orgName,
		Secret:      st.secret,
		Type:        s.Settings.Signup.IdentityType,
		Affiliation: s.Settings.Signup.Affiliation,
	})
	if err != nil {
		return err
	}
	st.creds = creds

	saga.push(StageRegisterIdentity, func(ctx context.Context) (bool, error) {
		return s.Identities.RemoveUser(st.orgName, "组织加入失败")
	})
	return nil
}

func (s *OrgService) persistMSP(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	err := s.Identities.PersistMembership(st.mspDir, st.creds.KeyID, st.creds.Key, st.creds.Certificate, st.creds.RootCertificate)
	if err != nil {
		return err
	}

	saga.push(StagePersistMSP, func(ctx context.Context) (bool, error) {
		return true, s.Identities.RemoveMembership(st.mspDir)
	})
	return nil
}

func (s *OrgService) bootstrapPeer(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	scripts := s.Settings.Scripts
	if scripts.BootstrapPeer == "" {
		return errorcode.New(errorcode.KindInternal, "未配置启动节点的脚本")
	}

	spec := gateway.ScriptSpec{
		Path: scripts.BootstrapPeer,
		Args: []string{
			"-n", st.orgName,
			"-d", st.orgDir,
			"-m", st.mspID,
			"-b", st.bindAddress,
			"-p", strconv.Itoa(st.peerPort),
			"-c", strconv.Itoa(st.chaincodePort),
		},
		Timeout: scripts.Timeout,
	}

	// 拆除在运行脚本前登记，脚本失败时同样执行。
	if scripts.TeardownPeer != "" {
		saga.push(StageBootstrapPeer, func(ctx context.Context) (bool, error) {
			return true, s.Gateway.RunScript(ctx, gateway.ScriptSpec{
				Path:    scripts.TeardownPeer,
				Args:    []string{"-n", st.orgName, "-d", st.orgDir},
				Timeout: scripts.Timeout,
			})
		})
	}

	return s.Gateway.RunScript(ctx, spec)
}

func (s *OrgService) fetchConfig(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	session, err := s.openSession(ctx, identity.RoleOrdererAdmin)
	if err != nil {
		return err
	}
	st.session = session

	st.originalConfig, err = session.QueryLastConfig(ctx, s.Settings.Channel.SystemChannel)
	return err
}

func (s *OrgService) mutateConfig(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	decoded, err := s.Translator.Decode(ctx, configtxlator.MsgTypeConfig, st.originalConfig)
	if err != nil {
		return err
	}
	st.originalDecoded = decoded

	st.updatedDecoded, err = configutils.AddConsortiumMember(decoded, s.Settings.Channel.Consortium, &configutils.ConsortiumMember{
		MSPID:     st.mspID,
		AdminCert: st.creds.Certificate,
		RootCert:  st.creds.RootCertificate,
	})
	if err != nil {
		return err
	}

	st.updatedConfig, err = s.Translator.Encode(ctx, configtxlator.MsgTypeConfig, st.updatedDecoded)
	return err
}

func (s *OrgService) computeUpdate(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	configUpdate, err := s.Translator.ComputeUpdate(ctx, s.Settings.Channel.SystemChannel, st.originalConfig, st.updatedConfig)
	if err != nil {
		return err
	}
	st.configUpdate = configUpdate

	st.signature, err = st.session.SignChannelConfig(configUpdate)
	return err
}

// submitUpdate submits the signed config update. The orderer status is the final word on success.
func (s *OrgService) submitUpdate(ctx context.Context, st *orgSignupState, saga *signupSaga) error {
	req := &bcao.ChannelRequest{
		Name:       s.Settings.Channel.SystemChannel,
		Orderer:    s.Settings.Channel.OrdererName,
		Signatures: [][]byte{st.signature},
		Config:     st.configUpdate,
	}

	resp, err := st.session.SubmitChannelRequest(ctx, req)
	st.txID = req.TxID
	if err != nil {
		return err
	}

	return requireSuccess(resp)
}
