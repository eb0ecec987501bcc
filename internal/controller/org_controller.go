package controller

import (
	"net/http"

	"gitee.com/czyczk/fabric-netadmin/internal/service"
	"github.com/gin-gonic/gin"
)

// An OrgController handles the signup of new organizations. It implements the interface `Controller`.
type OrgController struct {
	GroupName string
	OrgSvc    service.IOrgService
}

// GetGroupName returns the group name.
func (oc *OrgController) GetGroupName() string {
	return oc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by OrgController.
func (oc *OrgController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"/signupNewOrg/:name/:secret", "GET"}: []gin.HandlerFunc{oc.handleSignupNewOrg},
		urlMethodPair{"/signups/:id", "GET"}:                []gin.HandlerFunc{oc.handleGetSignup},
	}
}

func (oc *OrgController) handleSignupNewOrg(c *gin.Context) {
	// Validity check
	pel := &ParameterErrorList{}
	name := pel.AppendIfEmptyOrBlankSpaces(c.Param("name"), "组织名不能为空。")
	secret := pel.AppendIfEmptyOrBlankSpaces(c.Param("secret"), "组织密码不能为空。")

	// Ports are optional. The configured ones are used if they are absent.
	var peerPort, chaincodePort int
	if str := c.Query("peerPort"); str != "" {
		peerPort = pel.AppendIfNotPort(str, "节点端口不合法。")
	}
	if str := c.Query("chaincodePort"); str != "" {
		chaincodePort = pel.AppendIfNotPort(str, "链码端口不合法。")
	}

	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	record, err := oc.OrgSvc.SignupOrg(c.Request.Context(), &service.OrgSignup{
		OrgName:       name,
		Secret:        secret,
		BindAddress:   c.Query("bindAddress"),
		PeerPort:      peerPort,
		ChaincodePort: chaincodePort,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (oc *OrgController) handleGetSignup(c *gin.Context) {
	record, err := oc.OrgSvc.GetSignup(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
