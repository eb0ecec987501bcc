package controller

import (
	"net/http"

	"gitee.com/czyczk/fabric-netadmin/internal/service"
	"github.com/gin-gonic/gin"
)

// A NetworkController contains a group name and a `NetworkService` instance. It also implements the interface `Controller`.
type NetworkController struct {
	GroupName  string
	NetworkSvc service.INetworkService
	// Chaincode 提供实例化与调用链码时缺省的函数名与参数。
	Chaincode service.ChaincodeSettings
}

// GetGroupName returns the group name.
func (nc *NetworkController) GetGroupName() string {
	return nc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by NetworkController.
func (nc *NetworkController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"/queryChannels", "GET"}:                                                    []gin.HandlerFunc{nc.handleQueryChannels},
		urlMethodPair{"/queryChaincodes", "GET"}:                                                  []gin.HandlerFunc{nc.handleQueryInstalledChaincodes},
		urlMethodPair{"/queryInstantiatedChaincodes/:channelName", "GET"}:                         []gin.HandlerFunc{nc.handleQueryInstantiatedChaincodes},
		urlMethodPair{"/queryChannelInfo/:channelName", "GET"}:                                    []gin.HandlerFunc{nc.handleQueryChannelInfo},
		urlMethodPair{"/createChannel/:channelName", "GET"}:                                       []gin.HandlerFunc{nc.handleCreateChannel},
		urlMethodPair{"/joinChannel/:channelName", "GET"}:                                         []gin.HandlerFunc{nc.handleJoinChannel},
		urlMethodPair{"/installChaincode/:chaincodeId/:chaincodeVersion", "GET"}:                  []gin.HandlerFunc{nc.handleInstallChaincode},
		urlMethodPair{"/instantiateChaincode/:channelName/:chaincodeId/:chaincodeVersion", "GET"}: []gin.HandlerFunc{nc.handleInstantiateChaincode},
		urlMethodPair{"/invokeChaincode/:channelName/:chaincodeId/:chaincodeVersion", "GET"}:      []gin.HandlerFunc{nc.handleInvokeChaincode},
	}
}

func (nc *NetworkController) handleQueryChannels(c *gin.Context) {
	channels, err := nc.NetworkSvc.QueryChannels(c.Request.Context(), c.Query("peer"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

func (nc *NetworkController) handleQueryInstalledChaincodes(c *gin.Context) {
	chaincodes, err := nc.NetworkSvc.QueryInstalledChaincodes(c.Request.Context(), c.Query("peer"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chaincodes)
}

func (nc *NetworkController) handleQueryInstantiatedChaincodes(c *gin.Context) {
	chaincodes, err := nc.NetworkSvc.QueryInstantiatedChaincodes(c.Request.Context(), c.Param("channelName"), c.Query("peer"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chaincodes)
}

func (nc *NetworkController) handleQueryChannelInfo(c *gin.Context) {
	info, err := nc.NetworkSvc.QueryChannelInfo(c.Request.Context(), c.Param("channelName"), c.Query("peer"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (nc *NetworkController) handleCreateChannel(c *gin.Context) {
	creation, err := nc.NetworkSvc.CreateChannel(c.Request.Context(), c.Param("channelName"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, creation)
}

func (nc *NetworkController) handleJoinChannel(c *gin.Context) {
	join, err := nc.NetworkSvc.JoinChannel(c.Request.Context(), c.Param("channelName"), getPeers(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, join)
}

func (nc *NetworkController) handleInstallChaincode(c *gin.Context) {
	// Validity check
	pel := &ParameterErrorList{}
	chaincodeID := pel.AppendIfEmptyOrBlankSpaces(c.Param("chaincodeId"), "链码 ID 不能为空。")
	version := pel.AppendIfEmptyOrBlankSpaces(c.Param("chaincodeVersion"), "链码版本不能为空。")
	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	info, err := nc.NetworkSvc.InstallChaincode(c.Request.Context(), getPeers(c), chaincodeID, version)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (nc *NetworkController) handleInstantiateChaincode(c *gin.Context) {
	invocation, ok := nc.extractInvocation(c, nc.Chaincode.InitFcn, nc.Chaincode.InitArgs)
	if !ok {
		return
	}

	info, err := nc.NetworkSvc.InstantiateChaincode(c.Request.Context(), invocation)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (nc *NetworkController) handleInvokeChaincode(c *gin.Context) {
	invocation, ok := nc.extractInvocation(c, nc.Chaincode.InvokeFcn, nc.Chaincode.InvokeArgs)
	if !ok {
		return
	}

	info, err := nc.NetworkSvc.InvokeChaincode(c.Request.Context(), invocation)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// extractInvocation collects the invocation from the path and the query. The function name and the arguments fall back to the given defaults.
func (nc *NetworkController) extractInvocation(c *gin.Context, defaultFcn string, defaultArgs []string) (*service.ChaincodeInvocation, bool) {
	pel := &ParameterErrorList{}
	channelName := pel.AppendIfEmptyOrBlankSpaces(c.Param("channelName"), "通道名不能为空。")
	chaincodeID := pel.AppendIfEmptyOrBlankSpaces(c.Param("chaincodeId"), "链码 ID 不能为空。")
	version := pel.AppendIfEmptyOrBlankSpaces(c.Param("chaincodeVersion"), "链码版本不能为空。")
	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return nil, false
	}

	fcn := c.DefaultQuery("fcn", defaultFcn)

	return &service.ChaincodeInvocation{
		ChannelName: channelName,
		Peers:       getPeers(c),
		ChaincodeID: chaincodeID,
		Version:     version,
		Fcn:         fcn,
		Args:        getArgs(c, defaultArgs),
	}, true
}
