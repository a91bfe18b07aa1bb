package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/response"
	"github.com/nekogravitycat/driving-school-backend/internal/user"
)

type UserHandler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewHandler(userService user.Service, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Login authenticates a user using email and password.
// On success, it returns a JWT access token carrying the user's school and role.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	u, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrInactiveUser):
			// Do not reveal which condition failed.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		default:
			log.WithError(err).Error("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(u.Identity())
	if err != nil {
		log.WithError(err).WithField("user_id", u.ID).Error("failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        NewUserResponse(u),
	})
}

// Me retrieves the profile of the currently authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// Register creates an account.
// School admins register staff and students into their own school only.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	schoolID := req.SchoolID
	if auth.GetRole(c) != auth.RoleSysAdmin {
		if req.Role == string(auth.RoleSysAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden: only system admins can create system admins"})
			return
		}
		schoolID = auth.GetSchoolID(c)
	}

	u, err := h.userService.Register(c.Request.Context(), user.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		SchoolID:    schoolID,
		Role:        auth.Role(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, MeResponse{User: NewUserResponse(u)})
}

// List retrieves a paginated list of users.
// School admins only see their own school.
func (h *UserHandler) List(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	req.Normalize()

	filter := user.UserFilter{
		SchoolID:  req.SchoolID,
		Role:      auth.Role(req.Role),
		Email:     req.Email,
		IsActive:  req.IsActive,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	}
	if auth.GetRole(c) != auth.RoleSysAdmin {
		filter.SchoolID = auth.GetSchoolID(c)
	}

	users, total, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = NewUserResponse(u)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Get retrieves a specific user by their ID.
func (h *UserHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	target, ok := h.visibleUser(c, req.ID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(target)})
}

// Update modifies the role, display name or activation of a user.
func (h *UserHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}

	if _, ok := h.visibleUser(c, uri.ID); !ok {
		return
	}

	req := user.UpdateUserRequest{
		DisplayName: body.DisplayName,
		IsActive:    body.IsActive,
	}
	if body.Role != nil {
		role := auth.Role(*body.Role)
		req.Role = &role
	}

	updated, err := h.userService.Update(c.Request.Context(), uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(updated)})
}

// visibleUser loads a user the caller may manage, writing the error response otherwise.
func (h *UserHandler) visibleUser(c *gin.Context, id string) (*user.User, bool) {
	u, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if auth.GetRole(c) != auth.RoleSysAdmin && u.SchoolID != auth.GetSchoolID(c) {
		response.Error(c, user.ErrNotFound)
		return nil, false
	}
	return u, true
}
