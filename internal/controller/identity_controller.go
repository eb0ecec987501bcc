package controller

import (
	"net/http"

	"gitee.com/czyczk/fabric-netadmin/internal/service"
	"github.com/gin-gonic/gin"
)

type IdentityController struct {
	GroupName   string
	IdentitySvc service.IdentityServiceInterface
}

// GetGroupName returns the group name.
func (ic *IdentityController) GetGroupName() string {
	return ic.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by IdentityController.
func (ic *IdentityController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"/createUser", "GET"}: []gin.HandlerFunc{ic.handleCreateUser},
	}
}

func (ic *IdentityController) handleCreateUser(c *gin.Context) {
	// Validity check
	pel := &ParameterErrorList{}
	id := pel.AppendIfEmptyOrBlankSpaces(c.Query("id"), "身份 ID 不能为空。")
	secret := pel.AppendIfEmptyOrBlankSpaces(c.Query("secret"), "密码不能为空。")
	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	info, err := ic.IdentitySvc.CreateUser(&service.UserCreation{
		ID:          id,
		Secret:      secret,
		Type:        c.Query("role"),
		Affiliation: c.Query("affiliation"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
