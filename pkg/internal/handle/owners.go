package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/types"
	"github.com/yeisme/casevault/pkg/middleware"
)

func ownerService(c *gin.Context) *service.OwnerService {
	return service.NewOwnerService(service.DepsFromContext(c.Request.Context()))
}

// CreateCase 创建案件.
//
//	@Summary		创建案件
//	@Tags			案件
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.CreateCaseRequest	true	"案件信息"
//	@Success		201		{object}	model.Case				"案件"
//	@Failure		422		{object}	types.ErrorResponse		"参数错误"
//	@Router			/api/v1/cases [post]
func CreateCase(c *gin.Context) {
	var req types.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, bindingError(err))
		return
	}

	cs, err := ownerService(c).CreateCase(requestContext(c), service.CreateCaseInput{
		CaseNumber: req.CaseNumber,
		Title:      req.Title,
		Status:     req.Status,
		CreatedBy:  middleware.GetUser(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, cs)
}

// GetCase 读取案件及其事件.
//
//	@Summary		读取案件
//	@Tags			案件
//	@Produce		json
//	@Param			id	path		int					true	"案件ID"
//	@Success		200	{object}	model.Case			"案件"
//	@Failure		404	{object}	types.ErrorResponse	"案件不存在"
//	@Router			/api/v1/cases/{id} [get]
func GetCase(c *gin.Context) {
	ref, ok := ownerRef(c, model.KindCase)
	if !ok {
		return
	}

	cs, err := ownerService(c).GetCase(requestContext(c), ref.ID)
	if err != nil {
		abort(c, err)
		return
	}

	cs.EvidenceFiles = cs.EvidenceFiles.Normalized()
	for i := range cs.Incidents {
		cs.Incidents[i].EvidenceFiles = cs.Incidents[i].EvidenceFiles.Normalized()
	}

	c.JSON(http.StatusOK, cs)
}

// DeleteCase 删除案件、其事件以及全部证据文件.
//
//	@Summary		删除案件
//	@Tags			案件
//	@Param			id	path	int	true	"案件ID"
//	@Success		204	"已删除"
//	@Failure		403	{object}	types.ErrorResponse	"权限不足"
//	@Failure		404	{object}	types.ErrorResponse	"案件不存在"
//	@Router			/api/v1/cases/{id} [delete]
func DeleteCase(c *gin.Context) {
	ref, ok := ownerRef(c, model.KindCase)
	if !ok {
		return
	}

	if err := ownerService(c).DeleteCase(requestContext(c), ref.ID); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateIncident 在案件下创建事件.
//
//	@Summary		创建事件
//	@Tags			事件
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"案件ID"
//	@Param			body	body		types.CreateIncidentRequest	true	"事件信息"
//	@Success		201		{object}	model.Incident				"事件"
//	@Failure		404		{object}	types.ErrorResponse			"案件不存在"
//	@Failure		422		{object}	types.ErrorResponse			"参数错误"
//	@Router			/api/v1/cases/{id}/incidents [post]
func CreateIncident(c *gin.Context) {
	ref, ok := ownerRef(c, model.KindCase)
	if !ok {
		return
	}

	var req types.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, bindingError(err))
		return
	}

	inc, err := ownerService(c).CreateIncident(requestContext(c), ref.ID, service.CreateIncidentInput{
		Title:       req.Title,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, inc)
}

// GetIncident 读取事件.
//
//	@Summary		读取事件
//	@Tags			事件
//	@Produce		json
//	@Param			id	path		int					true	"事件ID"
//	@Success		200	{object}	model.Incident		"事件"
//	@Failure		404	{object}	types.ErrorResponse	"事件不存在"
//	@Router			/api/v1/incidents/{id} [get]
func GetIncident(c *gin.Context) {
	ref, ok := ownerRef(c, model.KindIncident)
	if !ok {
		return
	}

	inc, err := ownerService(c).GetIncident(requestContext(c), ref.ID)
	if err != nil {
		abort(c, err)
		return
	}

	inc.EvidenceFiles = inc.EvidenceFiles.Normalized()

	c.JSON(http.StatusOK, inc)
}

// DeleteIncident 删除事件及其证据文件.
//
//	@Summary		删除事件
//	@Tags			事件
//	@Param			id	path	int	true	"事件ID"
//	@Success		204	"已删除"
//	@Failure		403	{object}	types.ErrorResponse	"权限不足"
//	@Failure		404	{object}	types.ErrorResponse	"事件不存在"
//	@Router			/api/v1/incidents/{id} [delete]
func DeleteIncident(c *gin.Context) {
	ref, ok := ownerRef(c, model.KindIncident)
	if !ok {
		return
	}

	if err := ownerService(c).DeleteIncident(requestContext(c), ref.ID); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
