package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"uturn/internal/api/middleware"
	"uturn/internal/api/ws"
	"uturn/internal/config"
	"uturn/internal/filestore"
	"uturn/internal/logger"
	"uturn/internal/notify"
	"uturn/internal/repository/memory"
	"uturn/internal/services"
)

type testServer struct {
	engine *gin.Engine
	hub    *ws.Hub
}

func setupTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	log := logger.NewNop()

	lockManager := memory.NewLockManager(time.Minute)
	t.Cleanup(lockManager.Stop)
	repos := services.Repositories{
		Bookings:  memory.NewJobRepository(),
		SoloRides: memory.NewJobRepository(),
		Drivers:   memory.NewDriverRepository(),
	}

	notificationService := services.NewNotificationService(notify.NewLogNotifier(log), log)
	availabilityService := services.NewAvailabilityService(repos, lockManager, cfg.Scheduling, log)
	commissionService := services.NewCommissionService(repos, notificationService, log)
	tripService := services.NewTripService(repos, availabilityService, commissionService, notificationService,
		filestore.NewMemoryStore("http://files.test"), cfg, log)
	driverService := services.NewDriverService(repos.Drivers)

	hub := ws.NewHub(log)
	t.Cleanup(hub.Close)
	tripService.SetObserver(hub)

	router := NewRouter(cfg, tripService, driverService, hub, log)
	engine := gin.New()
	router.Setup(engine)

	return &testServer{engine: engine, hub: hub}
}

// do sends a JSON request as the given caller (empty for anonymous) and
// decodes the JSON response into a map.
func (s *testServer) do(t *testing.T, method, path, caller string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = &buf
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", "Bearer "+caller)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return w.Code, response
}

func (s *testServer) registerDriver(t *testing.T, id string) {
	t.Helper()
	code, resp := s.do(t, "POST", "/drivers", "admin-1", map[string]interface{}{
		"id":             id,
		"name":           "Ravi",
		"phone":          "+919811111111",
		"vehicle_number": "KA05-1234",
		"vehicle_type":   "suv",
	})
	if code != http.StatusOK {
		t.Fatalf("Register driver failed: %d %v", code, resp)
	}
}

func bookingBody(at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"customer_name":  "Asha",
		"customer_phone": "+919800000001",
		"pickup":         map[string]interface{}{"address": "MG Road", "lat": 12.9716, "lng": 77.5946},
		"drop":           map[string]interface{}{"address": "Airport"},
		"trip_type":      "round",
		"scheduled_at":   at.Format(time.RFC3339),
		"fare": map[string]interface{}{
			"base_fare":                150,
			"per_km_rate":              15,
			"waiting_charges_per_hour": 60,
		},
		"estimated_distance_km": 52,
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	code, resp := s.do(t, "GET", "/health", "", nil)
	if code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("Expected status 200 ok, got %d %v", code, resp)
	}
}

func TestCompleteBookingFlow(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerDriver(t, "driver-1")
	pickupAt := time.Now().Add(2 * time.Hour).UTC()

	// 1. Vendor creates a booking
	code, booking := s.do(t, "POST", "/bookings", "vendor-1", bookingBody(pickupAt))
	if code != http.StatusCreated {
		t.Fatalf("Create booking failed: %d %v", code, booking)
	}
	bookingID := booking["id"].(string)
	trackingID := booking["tracking_id"].(string)
	if booking["status"] != "pending" {
		t.Errorf("Expected pending, got %v", booking["status"])
	}
	// (150 + 52*15) * 1.8
	if booking["estimated_fare"] != 1674.0 {
		t.Errorf("Expected estimated fare 1674, got %v", booking["estimated_fare"])
	}

	// 2. Driver sees it in the pending list near the pickup
	code, pending := s.do(t, "GET", "/bookings/pending?lat=12.97&lng=77.59", "driver-1", nil)
	if code != http.StatusOK {
		t.Fatalf("List pending failed: %d %v", code, pending)
	}
	if list := pending["bookings"].([]interface{}); len(list) != 1 {
		t.Fatalf("Expected 1 pending booking, got %d", len(list))
	}

	// 3. Driver accepts and uploads the verification video
	code, resp := s.do(t, "POST", "/bookings/"+bookingID+"/accept", "driver-1", nil)
	if code != http.StatusOK || resp["status"] != "driver_accepted" {
		t.Fatalf("Accept failed: %d %v", code, resp)
	}
	code, resp = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/video", "driver-1", map[string]string{"video_url": "https://cdn.test/v.mp4"})
	if code != http.StatusOK {
		t.Fatalf("Video upload failed: %d %v", code, resp)
	}

	// 4. Vendor approves; the response carries the OTP
	code, approved := s.do(t, "POST", "/bookings/"+bookingID+"/approve", "vendor-1", nil)
	if code != http.StatusOK {
		t.Fatalf("Approve failed: %d %v", code, approved)
	}
	otp, _ := approved["otp"].(string)
	if len(otp) != 6 {
		t.Fatalf("Expected 6 digit OTP, got %q", otp)
	}

	// The driver's and the public view never show it
	_, asDriver := s.do(t, "GET", "/jobs/bookings/"+bookingID, "driver-1", nil)
	if _, ok := asDriver["otp"]; ok {
		t.Error("Driver view must not include the OTP")
	}
	code, tracked := s.do(t, "GET", "/track/"+trackingID, "", nil)
	if code != http.StatusOK || tracked["otp"] != nil {
		t.Errorf("Expected public tracking without OTP, got %d %v", code, tracked)
	}

	// 5. Wrong OTP is rejected, the right one starts the trip
	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	code, _ = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/start", "driver-1", map[string]interface{}{"odometer": 1000, "otp": wrong})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for wrong OTP, got %d", code)
	}
	code, resp = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/start", "driver-1", map[string]interface{}{"odometer": 1000, "otp": otp})
	if code != http.StatusOK || resp["status"] != "in_progress" {
		t.Fatalf("Start failed: %d %v", code, resp)
	}

	// 6. Waiting time and completion
	code, resp = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/waiting", "driver-1", map[string]int{"minutes": 10})
	if code != http.StatusOK || resp["waiting_time_mins"] != 10.0 {
		t.Fatalf("Add waiting failed: %d %v", code, resp)
	}
	code, resp = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/complete", "driver-1", map[string]interface{}{
		"end_odometer":   1052,
		"payment_method": "upi",
		"extra_charges":  "200",
	})
	if code != http.StatusOK {
		t.Fatalf("Complete failed: %d %v", code, resp)
	}
	// 1674 + 10 waiting minutes at 60/h + 200 extras
	if resp["total_fare"] != 1884.0 {
		t.Errorf("Expected total fare 1884, got %v", resp["total_fare"])
	}
	if resp["commission_status"] != "pending" {
		t.Errorf("Expected commission pending, got %v", resp["commission_status"])
	}

	// 7. The driver is blocked until the commission is paid
	_, driver := s.do(t, "GET", "/drivers/driver-1", "admin-1", nil)
	if driver["status"] != "blocked_for_payment" {
		t.Errorf("Expected blocked driver, got %v", driver["status"])
	}
	code, _ = s.do(t, "POST", "/solo-rides", "driver-1", soloBody(pickupAt.Add(24*time.Hour)))
	if code != http.StatusForbidden {
		t.Errorf("Expected 403 for blocked driver, got %d", code)
	}

	code, resp = s.do(t, "POST", "/jobs/bookings/"+bookingID+"/commission/paid", "admin-1", nil)
	if code != http.StatusOK || resp["commission_status"] != "paid" {
		t.Fatalf("Commission paid failed: %d %v", code, resp)
	}
	code, _ = s.do(t, "POST", "/solo-rides", "driver-1", soloBody(pickupAt.Add(24*time.Hour)))
	if code != http.StatusCreated {
		t.Errorf("Expected driver to work again after settlement, got %d", code)
	}
}

func soloBody(at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"customer_name":  "Kiran",
		"customer_phone": "+919800000002",
		"pickup":         map[string]interface{}{"address": "Indiranagar"},
		"trip_type":      "outstation",
		"scheduled_at":   at.Format(time.RFC3339),
		"fare":           map[string]interface{}{"base_fare": 200, "per_km_rate": 10, "driver_allowance": 300},
	}
}

func TestSoloRideFlow(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerDriver(t, "driver-2")

	code, ride := s.do(t, "POST", "/solo-rides", "driver-2", soloBody(time.Now().Add(time.Hour)))
	if code != http.StatusCreated {
		t.Fatalf("Create solo ride failed: %d %v", code, ride)
	}
	if ride["status"] != "driver_accepted" || ride["otp"] != nil {
		t.Errorf("Expected accepted solo ride without OTP, got %v", ride)
	}
	rideID := ride["id"].(string)

	// A second ride inside the first one's window is refused
	code, _ = s.do(t, "POST", "/solo-rides", "driver-2", soloBody(time.Now().Add(90*time.Minute)))
	if code != http.StatusConflict {
		t.Errorf("Expected 409 for overlapping ride, got %d", code)
	}

	_, jobs := s.do(t, "GET", "/drivers/me/jobs", "driver-2", nil)
	if list := jobs["jobs"].([]interface{}); len(list) != 1 {
		t.Errorf("Expected 1 job for driver, got %d", len(list))
	}

	code, resp := s.do(t, "POST", "/jobs/solo-rides/"+rideID+"/cancel", "driver-2", map[string]string{"reason": "customer no-show"})
	if code != http.StatusOK || resp["status"] != "cancelled" {
		t.Errorf("Cancel failed: %d %v", code, resp)
	}
	code, _ = s.do(t, "POST", "/jobs/solo-rides/"+rideID+"/cancel", "driver-2", nil)
	if code != http.StatusConflict {
		t.Errorf("Expected 409 for second cancel, got %d", code)
	}
}

func TestErrorMapping(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerDriver(t, "driver-1")
	_, booking := s.do(t, "POST", "/bookings", "vendor-1", bookingBody(time.Now().Add(time.Hour)))
	bookingID := booking["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   interface{}
		want   int
	}{
		{"unknown job", "GET", "/jobs/bookings/nope", "admin-1", nil, http.StatusNotFound},
		{"unknown kind", "GET", "/jobs/trucks/" + bookingID, "admin-1", nil, http.StatusBadRequest},
		{"unknown tracking id", "GET", "/track/UT-00000000", "", nil, http.StatusNotFound},
		{"other vendor approves", "POST", "/bookings/" + bookingID + "/approve", "vendor-2", nil, http.StatusForbidden},
		{"approve before accept", "POST", "/bookings/" + bookingID + "/approve", "vendor-1", nil, http.StatusConflict},
		{"unregistered driver accepts", "POST", "/bookings/" + bookingID + "/accept", "driver-9", nil, http.StatusNotFound},
		{"start without odometer", "POST", "/jobs/bookings/" + bookingID + "/start", "driver-1", map[string]string{"otp": "123456"}, http.StatusBadRequest},
		{"bad status filter", "GET", "/bookings?status=flying", "vendor-1", nil, http.StatusBadRequest},
		{"bad coordinates", "GET", "/bookings/pending?lat=abc&lng=1", "driver-1", nil, http.StatusBadRequest},
		{"missing customer", "POST", "/bookings", "vendor-1", map[string]string{"trip_type": "oneWay"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, tt.method, tt.path, tt.caller, tt.body)
			if code != tt.want {
				t.Errorf("Expected %d, got %d: %v", tt.want, code, resp)
			}
			if resp["error"] == nil {
				t.Error("Expected an error message in the body")
			}
		})
	}
}

func TestUnauthorizedAccess(t *testing.T) {
	s := setupTestServer(t, nil)

	code, _ := s.do(t, "POST", "/bookings", "", bookingBody(time.Now()))
	if code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", code)
	}
	code, _ = s.do(t, "POST", "/bookings", "rider-1", bookingBody(time.Now()))
	if code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unknown prefix, got %d", code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	s := setupTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
	}{
		{"driver creating booking", "POST", "/bookings", "driver-1"},
		{"vendor accepting", "POST", "/bookings/x/accept", "vendor-1"},
		{"vendor settling commission", "POST", "/jobs/bookings/x/commission/paid", "vendor-1"},
		{"driver registering drivers", "POST", "/drivers", "driver-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, tt.method, tt.path, tt.caller, map[string]string{})
			if code != http.StatusForbidden {
				t.Errorf("Expected status 403, got %d", code)
			}
		})
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	s := setupTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Bypass = false
		cfg.Auth.JWTSecret = secret
	})

	token, err := middleware.IssueToken(secret, "d-42", services.RoleDriver, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	code, _ := s.do(t, "GET", "/drivers/me/jobs", token, nil)
	if code != http.StatusOK {
		t.Errorf("Expected 200 with a valid token, got %d", code)
	}

	forged, _ := middleware.IssueToken("other-secret", "d-42", services.RoleDriver, time.Hour)
	code, _ = s.do(t, "GET", "/drivers/me/jobs", forged, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a forged token, got %d", code)
	}

	expired, _ := middleware.IssueToken(secret, "d-42", services.RoleDriver, -time.Minute)
	code, _ = s.do(t, "GET", "/drivers/me/jobs", expired, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for an expired token, got %d", code)
	}

	vendorToken, _ := middleware.IssueToken(secret, "acme", services.RoleVendor, time.Hour)
	code, _ = s.do(t, "GET", "/drivers/me/jobs", vendorToken, nil)
	if code != http.StatusForbidden {
		t.Errorf("Expected 403 for the wrong role, got %d", code)
	}

	// Prefix ids are not accepted once bypass is off.
	code, _ = s.do(t, "GET", "/drivers/me/jobs", "driver-1", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a bypass id, got %d", code)
	}
}

func TestProofUpload(t *testing.T) {
	s := setupTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "odometer.jpg")
	part.Write([]byte("jpeg bytes"))
	mw.Close()

	req, _ := http.NewRequest("POST", "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer driver-1")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp["url"], "http://files.test/drivers/driver-1/proof/") {
		t.Errorf("Unexpected upload url %q", resp["url"])
	}
}

func TestUploadTooLarge(t *testing.T) {
	s := setupTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxUploadBytes = 1024
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "big.jpg")
	part.Write(bytes.Repeat([]byte("x"), 4096))
	mw.Close()

	req, _ := http.NewRequest("POST", "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer driver-1")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTrackingWebsocket(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerDriver(t, "driver-1")
	_, booking := s.do(t, "POST", "/bookings", "vendor-1", bookingBody(time.Now().Add(time.Hour)))
	bookingID := booking["id"].(string)
	trackingID := booking["tracking_id"].(string)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/track/" + trackingID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot ws.Update
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("Read snapshot failed: %v", err)
	}
	if snapshot.Type != "snapshot" || snapshot.Job.Status != "pending" {
		t.Fatalf("Unexpected snapshot %+v", snapshot)
	}
	if n := s.hub.Subscribers(trackingID); n != 1 {
		t.Errorf("Expected 1 subscriber, got %d", n)
	}

	if code, resp := s.do(t, "POST", "/bookings/"+bookingID+"/accept", "driver-1", nil); code != http.StatusOK {
		t.Fatalf("Accept failed: %d %v", code, resp)
	}

	var update ws.Update
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("Read update failed: %v", err)
	}
	if update.Type != "update" || update.Job.Status != "driver_accepted" {
		t.Errorf("Unexpected update %+v", update)
	}
	if update.Job.Driver == nil || update.Job.Driver.Name != "Ravi" {
		t.Error("Expected the update to carry the driver snapshot")
	}

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/track/UT-00000000", nil)
	if err == nil {
		t.Error("Expected dialing an unknown tracking id to fail")
	}
}

func TestListVendorBookings(t *testing.T) {
	s := setupTestServer(t, nil)

	for i := 0; i < 3; i++ {
		body := bookingBody(time.Now().Add(time.Duration(i+1) * time.Hour))
		if i == 0 {
			body["draft"] = true
		}
		if code, resp := s.do(t, "POST", "/bookings", "vendor-1", body); code != http.StatusCreated {
			t.Fatalf("Create booking %d failed: %d %v", i, code, resp)
		}
	}
	s.do(t, "POST", "/bookings", "vendor-2", bookingBody(time.Now().Add(time.Hour)))

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?status=pending", 2},
		{"?status=draft", 1},
		{"?status=draft,pending", 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			code, resp := s.do(t, "GET", "/bookings"+tt.query, "vendor-1", nil)
			if code != http.StatusOK {
				t.Fatalf("List failed: %d %v", code, resp)
			}
			list, _ := resp["bookings"].([]interface{})
			if len(list) != tt.want {
				t.Errorf("Expected %d bookings, got %d", tt.want, len(list))
			}
		})
	}
}
