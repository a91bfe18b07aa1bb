package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/response"
	"github.com/nekogravitycat/driving-school-backend/internal/school"
)

type SchoolHandler struct {
	service school.Service
}

func NewSchoolHandler(service school.Service) *SchoolHandler {
	return &SchoolHandler{service: service}
}

func (h *SchoolHandler) List(c *gin.Context) {
	var req ListSchoolsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	req.Normalize()

	schools, total, err := h.service.List(c.Request.Context(), school.Filter{
		IsActive:  req.IsActive,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SchoolResponse, len(schools))
	for i, s := range schools {
		items[i] = NewSchoolResponse(s)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Get returns a school. School accounts only see their own school.
func (h *SchoolHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if auth.GetRole(c) != auth.RoleSysAdmin && auth.GetSchoolID(c) != req.ID {
		response.Error(c, school.ErrNotFound)
		return
	}

	s, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSchoolResponse(s))
}

func (h *SchoolHandler) Create(c *gin.Context) {
	var body CreateSchoolRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	s, err := h.service.Create(c.Request.Context(), school.CreateRequest{Name: body.Name, Timezone: body.Timezone})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewSchoolResponse(s))
}

func (h *SchoolHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateSchoolRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	s, err := h.service.Update(c.Request.Context(), uri.ID, school.UpdateRequest{
		Name:     body.Name,
		Timezone: body.Timezone,
		IsActive: body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSchoolResponse(s))
}
