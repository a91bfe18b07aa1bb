package auth

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

type Role string

const (
	RoleSysAdmin    Role = "sysadmin"
	RoleSchoolAdmin Role = "school_admin"
	RoleSecretary   Role = "secretary"
	RoleInstructor  Role = "instructor"
	RoleStudent     Role = "student"
)

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

type Permission string

const (
	PermBookingRead    Permission = "booking:read"
	PermBookingReadAll Permission = "booking:read_all"
	PermBookingWrite   Permission = "booking:write"
	PermBookingCancel  Permission = "booking:cancel"
	PermResourceRead   Permission = "resource:read"
	PermResourceWrite  Permission = "resource:write"
	PermUserManage     Permission = "user:manage"
	PermSchoolRead     Permission = "school:read"
	PermSchoolManage   Permission = "school:manage"
)

// Role to permission table. Instructors may reschedule lessons but not cancel them.
// Without PermBookingReadAll a caller only sees the bookings they attend as the student.
var rolePermissions = map[Role][]Permission{
	RoleSysAdmin: {
		PermSchoolRead, PermSchoolManage, PermUserManage,
	},
	RoleSchoolAdmin: {
		PermSchoolRead, PermUserManage,
		PermResourceRead, PermResourceWrite,
		PermBookingRead, PermBookingReadAll, PermBookingWrite, PermBookingCancel,
	},
	RoleSecretary: {
		PermSchoolRead,
		PermResourceRead,
		PermBookingRead, PermBookingReadAll, PermBookingWrite, PermBookingCancel,
	},
	RoleInstructor: {
		PermSchoolRead,
		PermResourceRead,
		PermBookingRead, PermBookingReadAll, PermBookingWrite,
	},
	RoleStudent: {
		PermSchoolRead,
		PermBookingRead,
	},
}

// Can reports whether the role grants p.
func (r Role) Can(p Permission) bool {
	return slices.Contains(rolePermissions[r], p)
}

// RequirePermission aborts with 403 unless the caller's role grants p.
// It MUST be used after AuthRequired.
func RequirePermission(p Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetRole(c).Can(p) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: missing permission " + string(p)})
			return
		}
		c.Next()
	}
}

// RequireSchool aborts with 403 when the caller is not bound to a school.
func RequireSchool() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSchoolID(c) == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: school account required"})
			return
		}
		c.Next()
	}
}
