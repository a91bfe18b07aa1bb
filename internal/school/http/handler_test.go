package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/school"
)

func setupRouter(svc school.Service, id auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)

	fakeAuth := func(c *gin.Context) {
		auth.SetIdentity(c, id)
		c.Next()
	}

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewSchoolHandler(svc), fakeAuth)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSchoolAdministration(t *testing.T) {
	svc := school.NewService(school.NewMemoryRepository(), "Europe/Zurich", nil)
	sysadmin := setupRouter(svc, auth.Identity{UserID: uuid.NewString(), Role: auth.RoleSysAdmin})

	w := doJSON(sysadmin, http.MethodPost, "/v1/schools", gin.H{"name": "Fahrschule Muster"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created SchoolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Europe/Zurich", created.Timezone)

	w = doJSON(sysadmin, http.MethodPost, "/v1/schools", gin.H{"name": "Bad", "timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(sysadmin, http.MethodPatch, "/v1/schools/"+created.ID, gin.H{"timezone": "Europe/Berlin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"timezone":"Europe/Berlin"`)

	w = doJSON(sysadmin, http.MethodGet, "/v1/schools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	own := setupRouter(svc, auth.Identity{UserID: uuid.NewString(), SchoolID: created.ID, Role: auth.RoleStudent})
	w = doJSON(own, http.MethodGet, "/v1/schools/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(own, http.MethodGet, "/v1/schools", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	other := setupRouter(svc, auth.Identity{UserID: uuid.NewString(), SchoolID: uuid.NewString(), Role: auth.RoleSchoolAdmin})
	w = doJSON(other, http.MethodGet, "/v1/schools/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(other, http.MethodPatch, "/v1/schools/"+created.ID, gin.H{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
