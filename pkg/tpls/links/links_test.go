package links

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/auth"
	"github.com/trafficportal/tpls/pkg/tpls/models"
)

func setupTestRouter(db *gorm.DB, portalClient PortalClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, NewService(db, portalClient))

	api := r.Group("/api")
	api.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

func TestCreateLinkEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	fake := &fakePortal{available: true}
	router := setupTestRouter(db, fake)
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	body := CreateLinkRequest{
		Key:         "my-link",
		Destination: "https://example.com",
	}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/api/links", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response CreateLinkResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Key != "my-link" {
		t.Errorf("Expected tpkey 'my-link', got %s", response.Key)
	}
	if response.ShortURL != "https://trfc.link/my-link" {
		t.Errorf("Expected short URL https://trfc.link/my-link, got %s", response.ShortURL)
	}
	if response.Warning != "" {
		t.Errorf("Expected no warning, got %q", response.Warning)
	}
}

func TestCreateLinkEndpointTakenKey(t *testing.T) {
	db := setupServiceTestDB(t)
	fake := &fakePortal{available: false, availMessage: "Key is taken"}
	router := setupTestRouter(db, fake)
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	body := CreateLinkRequest{Key: "taken-key", Destination: "https://example.com"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/api/links", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateLinkEndpointNoPortalToken(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{available: true})
	user := createServiceTestUser(t, db, "test@example.com", "")

	body := CreateLinkRequest{Key: "my-link", Destination: "https://example.com"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/api/links", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestValidateEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{available: true})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	req, _ := http.NewRequest("GET", "/api/links/validate?tpkey=my-key", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AvailabilityResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if !response.Available {
		t.Error("Expected key to be available")
	}
}

func TestValidateEndpointBadKey(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{available: true})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	req, _ := http.NewRequest("GET", "/api/links/validate?tpkey=a!", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestListLinksEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")
	other := createServiceTestUser(t, db, "other@example.com", "tp-token-5678")

	for _, key := range []string{"one", "two", "three"} {
		db.Create(&models.Link{OwnerID: user.ID, Key: key, Destination: "https://example.com", Domain: "trfc.link"})
	}
	db.Create(&models.Link{OwnerID: other.ID, Key: "not-yours", Destination: "https://example.com", Domain: "trfc.link"})

	req, _ := http.NewRequest("GET", "/api/links", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response ListLinksResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.TotalCount != 3 {
		t.Errorf("Expected total 3, got %d", response.TotalCount)
	}
	if len(response.Items) != 3 {
		t.Errorf("Expected 3 links, got %d", len(response.Items))
	}
	for _, item := range response.Items {
		if item.OwnerID != user.ID {
			t.Errorf("Expected only the caller's links, got owner %d", item.OwnerID)
		}
	}
}

func TestUpdateLinkEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	link := models.Link{OwnerID: user.ID, Key: "my-key", Destination: "https://old.example.com", Domain: "trfc.link"}
	db.Create(&link)

	body := UpdateLinkRequest{Destination: "https://new.example.com"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("PUT", "/api/links/1", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response LinkResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Destination != "https://new.example.com" {
		t.Errorf("Expected new destination, got %s", response.Destination)
	}
}

func TestUpdateLinkEndpointNotOwner(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})
	owner := createServiceTestUser(t, db, "owner@example.com", "tp-token-1234")
	other := createServiceTestUser(t, db, "other@example.com", "tp-token-5678")

	link := models.Link{OwnerID: owner.ID, Key: "my-key", Destination: "https://example.com", Domain: "trfc.link"}
	db.Create(&link)

	body := UpdateLinkRequest{Destination: "https://new.example.com"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("PUT", "/api/links/1", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(other))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestToggleLinkEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	link := models.Link{OwnerID: user.ID, Key: "my-key", Destination: "https://example.com", Domain: "trfc.link", Status: models.LinkStatusActive}
	db.Create(&link)

	req, _ := http.NewRequest("POST", "/api/links/1/toggle", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response LinkResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Status != "inactive" {
		t.Errorf("Expected inactive after toggle, got %s", response.Status)
	}
}

func TestDeleteLinkEndpoint(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})
	user := createServiceTestUser(t, db, "test@example.com", "tp-token-1234")

	link := models.Link{OwnerID: user.ID, Key: "my-key", Destination: "https://example.com", Domain: "trfc.link"}
	db.Create(&link)

	req, _ := http.NewRequest("DELETE", "/api/links/1", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response map[string]bool
	json.Unmarshal(resp.Body.Bytes(), &response)
	if !response["deleted"] {
		t.Error("Expected deleted to be true")
	}

	var count int64
	db.Model(&models.Link{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected link removed, %d remain", count)
	}
}

func TestLinksRequireAuth(t *testing.T) {
	db := setupServiceTestDB(t)
	router := setupTestRouter(db, &fakePortal{})

	req, _ := http.NewRequest("GET", "/api/links", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}
