package router

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
	"github.com/mamadbah2/meditrack/internal/server/handlers"
	"github.com/mamadbah2/meditrack/internal/service/amu"
	"github.com/mamadbah2/meditrack/internal/service/animals"
	"github.com/mamadbah2/meditrack/internal/service/auth"
	"github.com/mamadbah2/meditrack/internal/service/billing"
	"github.com/mamadbah2/meditrack/internal/service/ledger"
	"github.com/mamadbah2/meditrack/internal/service/prescriptions"
	"github.com/mamadbah2/meditrack/internal/service/reporting"
	"github.com/mamadbah2/meditrack/internal/service/requests"
	"github.com/mamadbah2/meditrack/internal/service/whatsapp"
	"github.com/mamadbah2/meditrack/internal/storage/uploads"
)

type testServer struct {
	engine *gin.Engine
	store  repository.Store
	auth   *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()

	authSvc := auth.NewService(store.Users, "test-secret", time.Hour, nil)
	photos, err := uploads.NewStore(afero.NewMemMapFs(), "uploads", 1<<20, nil)
	require.NoError(t, err)

	requestSvc := requests.NewService(store, photos, nil)
	ledgerSvc := ledger.NewService(nil, store.Prescriptions, time.Second, nil)
	notifier := whatsapp.NewService(nil, time.UTC, nil)
	prescriptionSvc := prescriptions.NewService(store, requestSvc, ledgerSvc, notifier, time.UTC, nil)

	engine := New(Handlers{
		Auth:          handlers.NewAuthHandler(authSvc, nil),
		Animals:       handlers.NewAnimalHandler(animals.NewService(store, nil), nil),
		Requests:      handlers.NewRequestHandler(requestSvc, nil),
		Prescriptions: handlers.NewPrescriptionHandler(prescriptionSvc, nil),
		Billing:       handlers.NewBillingHandler(billing.NewService(store, nil), nil),
		Reporting:     handlers.NewReportingHandler(reporting.NewService(store, nil), nil),
		AMU:           handlers.NewAMUHandler(amu.NewService(store.Records, ledgerSvc, nil), nil),
		Health:        handlers.NewHealthHandler(nil, nil),
	}, Options{
		Tokens:         authSvc,
		CORSOrigins:    []string{"*"},
		Uploads:        photos.HTTPFileSystem(),
		MaxUploadBytes: 1 << 20,
	}, nil)

	return &testServer{engine: engine, store: store, auth: authSvc}
}

func (s *testServer) user(t *testing.T, name, phone string, role models.Role, city string) (*models.User, string) {
	t.Helper()
	u := &models.User{Name: name, Phone: phone, Role: role, City: city, PasswordHash: "x"}
	require.NoError(t, s.store.Users.Create(context.Background(), u))
	token, err := s.auth.IssueToken(u.ID, u.Role)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	reg := map[string]string{"name": "Awa", "phone": "770000001", "password": "pw123456", "role": "Farmer", "city": "Dakar"}
	w := s.do(t, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Message string `json:"message"`
		UserID  string `json:"userId"`
	}
	decode(t, w, &created)
	assert.NotEmpty(t, created.UserID)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "770000001", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "779999999", "password": "pw123456"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "770000001", "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string         `json:"token"`
		User  auth.LoginUser `json:"user"`
	}
	decode(t, w, &login)
	assert.Equal(t, created.UserID, login.User.UserID)

	w = s.do(t, http.MethodPost, "/api/animals/add", login.Token, map[string]string{"animalTagId": "GOAT-1", "type": "Goat"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	farmer, farmerToken := s.user(t, "Awa", "1", models.RoleFarmer, "Dakar")
	_, otherToken := s.user(t, "Binta", "2", models.RoleFarmer, "Dakar")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/stats", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/stats", farmerToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/requests/pending", farmerToken, nil).Code)

	w := s.do(t, http.MethodPost, "/api/animals/add", farmerToken, map[string]string{"animalTagId": "COW-1", "type": "Cow"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/animals/my-animals/"+farmer.ID.Hex(), otherToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/animals/my-animals/not-an-id", farmerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/animals/my-animals/"+farmer.ID.Hex(), farmerToken, nil)
	var herd []models.Animal
	decode(t, w, &herd)
	require.Len(t, herd, 1)
	assert.Equal(t, "COW-1", herd[0].AnimalTagID)
}

func TestTreatmentToBillFlow(t *testing.T) {
	s := newTestServer(t)
	farmer, farmerToken := s.user(t, "Awa", "1", models.RoleFarmer, "Dakar")
	_, vetToken := s.user(t, "Dr Sow", "2", models.RoleVet, "Saint Louis")
	_, pharmacistToken := s.user(t, "Fatou", "3", models.RolePharmacist, "Dakar")
	_, managerToken := s.user(t, "Modou", "4", models.RoleManager, "Dakar")
	_, adminToken := s.user(t, "Root", "5", models.RoleAdmin, "Dakar")

	w := s.do(t, http.MethodPost, "/api/animals/add", farmerToken, map[string]string{"animalTagId": "COW-7", "type": "Cow"})
	require.Equal(t, http.StatusCreated, w.Code)
	var added struct {
		Animal models.Animal `json:"animal"`
	}
	decode(t, w, &added)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("animalId", added.Animal.ID.Hex()))
	require.NoError(t, mw.WriteField("problemDescription", "Fever and cough"))
	part, err := mw.CreateFormFile("photo", "cow.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/requests/create", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+farmerToken)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var treatment models.TreatmentRequest
	decode(t, w, &treatment)
	assert.Equal(t, models.RequestPending, treatment.Status)
	require.NotNil(t, treatment.MediaURL)
	assert.True(t, strings.HasPrefix(*treatment.MediaURL, "/uploads/"))

	w = s.do(t, http.MethodGet, *treatment.MediaURL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/requests/pending", vetToken, nil)
	var pending []models.RequestView
	decode(t, w, &pending)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Farmer)
	assert.Equal(t, "Awa", pending[0].Farmer.Name)

	w = s.do(t, http.MethodPost, "/api/requests/accept", vetToken, map[string]string{"requestId": treatment.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/prescription/create", vetToken, map[string]interface{}{
		"requestId":            treatment.ID.Hex(),
		"medicines":            []map[string]string{{"name": "Penicillin", "dosage": "10ml BID"}},
		"withdrawalPeriodDays": 3000000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/prescription/create", vetToken, map[string]interface{}{
		"requestId":            treatment.ID.Hex(),
		"medicines":            []map[string]string{{"name": "Penicillin", "dosage": "10ml BID"}},
		"withdrawalPeriodDays": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var prescribed struct {
		Success      bool                `json:"success"`
		Prescription models.Prescription `json:"prescription"`
		TxHash       *string             `json:"txHash"`
		LedgerStatus models.LedgerStatus `json:"ledgerStatus"`
	}
	decode(t, w, &prescribed)
	assert.True(t, prescribed.Success)
	assert.Nil(t, prescribed.TxHash)
	assert.Equal(t, models.LedgerDisabled, prescribed.LedgerStatus)
	assert.Equal(t, "Saint Louis", prescribed.Prescription.Location)

	w = s.do(t, http.MethodGet, "/api/manager/check-animal/COW-7", managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check animals.CheckResult
	decode(t, w, &check)
	assert.False(t, check.SafeToBuy)

	w = s.do(t, http.MethodGet, "/api/pharmacist/new-prescriptions", pharmacistToken, nil)
	var queue []models.PrescriptionView
	decode(t, w, &queue)
	require.Len(t, queue, 1)

	bill := map[string]interface{}{
		"prescriptionId": prescribed.Prescription.ID.Hex(),
		"items":          []map[string]interface{}{{"name": "Penicillin", "dosage": "10ml BID", "price": 150}},
	}
	w = s.do(t, http.MethodPost, "/api/pharmacist/create-bill", pharmacistToken, bill)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var billed struct {
		Bill models.Bill `json:"bill"`
	}
	decode(t, w, &billed)
	assert.Equal(t, 150.0, billed.Bill.TotalAmount)
	assert.Equal(t, "Awa", billed.Bill.FarmerName)

	w = s.do(t, http.MethodPost, "/api/pharmacist/create-bill", pharmacistToken, bill)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"prescription already billed"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/pharmacist/new-prescriptions", pharmacistToken, nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/requests/my-requests/"+farmer.ID.Hex(), farmerToken, nil)
	var mine []models.RequestView
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.RequestCompleted, mine[0].Status)
	require.NotNil(t, mine[0].Prescription)
	require.NotNil(t, mine[0].Bill)

	w = s.do(t, http.MethodGet, "/api/admin/public-amu-report", "", nil)
	assert.JSONEq(t, `[{"city":"Saint Louis","count":1}]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	var overview reporting.Overview
	decode(t, w, &overview)
	assert.EqualValues(t, 1, overview.TotalPrescriptions)
	assert.EqualValues(t, 1, overview.TotalMRLActive)

	w = s.do(t, http.MethodPost, "/api/ml/area_amu_report", "", map[string]string{"area": "Saint Louis"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report models.AreaReport
	decode(t, w, &report)
	assert.Equal(t, "saintlouis", report.Area)
	assert.EqualValues(t, 1, report.TotalPrescriptions)

	w = s.do(t, http.MethodPost, "/api/ml/area_amu_report", "", map[string]string{"area": "Kaolack"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/amu-export?format=csv", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "saintlouis,")
}

func TestManualRecordNotarization(t *testing.T) {
	s := newTestServer(t)
	_, vetToken := s.user(t, "Dr Sow", "2", models.RoleVet, "Dakar")
	_, farmerToken := s.user(t, "Awa", "1", models.RoleFarmer, "Dakar")
	body := map[string]string{"actionType": "Treatment", "animalId": "COW-7", "recordHash": "0xabc"}

	w := s.do(t, http.MethodPost, "/api/amu/add", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/amu/add", farmerToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/amu/add", vetToken, map[string]string{"actionType": "Treatment"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"actionType, animalId and recordHash are required"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/amu/add", vetToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Success      bool                `json:"success"`
		Record       models.AMURecord    `json:"record"`
		LedgerStatus models.LedgerStatus `json:"ledgerStatus"`
	}
	decode(t, w, &out)
	assert.True(t, out.Success)
	assert.Equal(t, "COW-7", out.Record.AnimalID)
	assert.Equal(t, models.LedgerDisabled, out.LedgerStatus)
}

func TestConcurrentAccept(t *testing.T) {
	s := newTestServer(t)
	_, farmerToken := s.user(t, "Awa", "1", models.RoleFarmer, "Dakar")
	_, vetA := s.user(t, "Dr A", "2", models.RoleVet, "Dakar")
	_, vetB := s.user(t, "Dr B", "3", models.RoleVet, "Dakar")

	w := s.do(t, http.MethodPost, "/api/animals/add", farmerToken, map[string]string{"animalTagId": "COW-9", "type": "Cow"})
	var added struct {
		Animal models.Animal `json:"animal"`
	}
	decode(t, w, &added)

	w = s.do(t, http.MethodPost, "/api/requests/create", farmerToken, map[string]string{
		"animalId":           added.Animal.ID.Hex(),
		"problemDescription": "Limping",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var treatment models.TreatmentRequest
	decode(t, w, &treatment)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, token := range []string{vetA, vetB} {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			codes[i] = s.do(t, http.MethodPost, "/api/requests/accept", token, map[string]string{"requestId": treatment.ID.Hex()}).Code
		}(i, token)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	w = s.do(t, http.MethodPost, "/api/requests/decline", vetA, map[string]string{"requestId": treatment.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
