package FiberConfig

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Maintenance/Config"
	"Maintenance/Models"
	"Maintenance/Notify"
	"Maintenance/Records"
	"Maintenance/Report"
	"Maintenance/Sheets"
	"Maintenance/Storage"
)

var names = Config.SheetNames{
	Customers:   "CustomerList",
	Drafts:      "Drafts",
	Completed:   "FilterTester",
	Technicians: "TechnicianDetails",
}

type testEnv struct {
	app    *fiber.App
	store  *Sheets.MemoryStore
	ledger *Storage.Ledger
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store := Sheets.NewMemoryStore()
	tmpl := Models.DefaultTemplate()
	svc := Records.NewService(store, names, Records.PolicyDrop, tmpl)
	require.NoError(t, svc.Bootstrap(store.EnsureSheet))
	store.Seed(names.Technicians, Records.TechnicianHeader, []string{"T-9", "Nour", "", "nour", "pass"})

	db, err := Models.Connect(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	ledger, err := Storage.NewLedger(db, filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	photos, err := Storage.NewLocalStore(filepath.Join(dir, "photos"))
	require.NoError(t, err)

	gen := Report.NewGenerator(tmpl)
	gen.Compress = false

	env := &testEnv{store: store, ledger: ledger}
	env.app = NewApp(Deps{
		Config: Config.Config{
			Env:                "test",
			JWTSecret:          "s3cret",
			Sheets:             names,
			PhotoReferenceMode: Storage.ModeProxy,
			UnknownFieldPolicy: "drop",
			RequestLogPath:     filepath.Join(dir, "logs", "requests.log"),
		},
		Service:      svc,
		Template:     tmpl,
		Photos:       photos,
		Fetcher:      Storage.NewFetcher(photos, ledger),
		Ledger:       ledger,
		Generator:    gen,
		Notifier:     Notify.Multi{},
		TemplatesDir: "../Templates",
	})

	resp, body := env.call(t, "POST", "/api/login", map[string]string{"username": "nour", "password": "pass"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	env.token = body["token"].(string)
	return env
}

func (e *testEnv) raw(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) call(t *testing.T, method, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := e.raw(t, req)

	var body map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &body), string(data))
	}
	return resp, body
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	resp, body := env.call(t, "POST", "/api/login", map[string]string{"username": "nour", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])

	resp, body = env.call(t, "POST", "/api/login", map[string]string{"username": "Nour", "password": "pass"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = env.call(t, "POST", "/api/login", map[string]string{"username": "nour"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])
	assert.NotContains(t, body, "fields")

	resp, body = env.call(t, "POST", "/api/login", map[string]string{"username": "nour", "password": "pass"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "T-9", body["technicianId"])
	assert.Equal(t, "Nour", body["name"])
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "jwt=")
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	resp, _ := env.call(t, "GET", "/api/listChecklists", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.call(t, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCustomerDraftSubmitFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.call(t, "POST", "/api/createCustomer", map[string]string{
		"CustomerName": "Acme", "Country": "Egypt", "MachineType": "FT-200", "SerialNo": "001",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	customerID := body["customerID"].(string)

	resp, body = env.call(t, "POST", "/api/createCustomer", map[string]string{
		"CustomerName": "acme", "Country": "EGYPT", "MachineType": "ft 200", "SerialNo": "0-0-1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "exists", body["status"])
	assert.Equal(t, customerID, body["customerID"])

	resp, body = env.call(t, "POST", "/api/createCustomer", map[string]string{"CustomerName": "Acme"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	draft := map[string]interface{}{
		"CustomerID":   customerID,
		"TechnicianID": "T-9",
		"Motor_Check":  map[string]string{"status": "N", "result": "ok"},
	}
	resp, body = env.call(t, "POST", "/api/saveDraft", draft)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "created", body["status"])
	draftID := body["draftID"].(string)

	draft["DraftID"] = draftID
	draft["Review"] = "all good"
	resp, body = env.call(t, "POST", "/api/saveDraft", draft)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "updated", body["status"])
	assert.Equal(t, draftID, body["draftID"])

	resp, body = env.call(t, "GET", "/api/getDraft?draftId="+draftID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "all good", body["Review"])

	resp, body = env.call(t, "POST", "/api/saveDraft", map[string]string{"CustomerID": customerID})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []interface{}{"TechnicianID"}, body["fields"])

	resp, body = env.call(t, "POST", "/api/submitChecklist", draft)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Regexp(t, regexp.MustCompile(`^CHK-\d+$`), body["checklistID"])
	assert.Equal(t, true, body["draftDeleted"])

	resp, body = env.call(t, "GET", "/api/getDraft?draftId="+draftID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = env.call(t, "GET", "/api/getHomepageData", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["customersVisited"])
	assert.EqualValues(t, 1, stats["machinesChecked"])
	assert.EqualValues(t, 0, stats["draftsMade"])

	resp, body = env.call(t, "GET", "/api/listChecklists", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
	first := body["checklists"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Acme", first["customer"])
	assert.Equal(t, "Nour", first["technician"])
}

func TestExportChecklist(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.call(t, "POST", "/api/submitChecklist", map[string]interface{}{
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Motor_Check":  map[string]string{"status": "N", "result": "ok"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	id := body["checklistID"].(string)

	req := httptest.NewRequest("GET", "/api/exportChecklist?checklistId="+id, nil)
	resp = env.raw(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Checklist_"+id+".pdf")
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	resp, body = env.call(t, "GET", "/api/exportChecklist?checklistId=CHK-missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["knownIds"], id)

	resp, body = env.call(t, "POST", "/api/exportChecklist", map[string]string{"foo": "bar"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "foo")

	resp, _ = env.call(t, "POST", "/api/exportChecklist", map[string]interface{}{
		"checklist": map[string]string{"CustomerName": "Walk-in", "Pump_Seal": "R"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Checklist_PDF-")

	// An id that is not stored falls back to the inline checklist.
	resp, _ = env.call(t, "POST", "/api/exportChecklist", map[string]interface{}{
		"checklistId": "CHK-draft",
		"checklist":   map[string]string{"CustomerName": "Walk-in"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Checklist_CHK-draft.pdf")

	assert.Eventually(t, func() bool {
		n, err := env.ledger.Pending()
		return err == nil && n == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/uploadImage", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadAndProxyImage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.raw(t, multipartUpload(t, "image", "pump.png", "image/png", pngBytes(t)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["fileId"])
	assert.Equal(t, Storage.ProxyPath+"?fileId="+body["fileId"], body["url"])

	resp = env.raw(t, httptest.NewRequest("GET", body["url"], nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	// The stored photo is embedded when a checklist references it.
	_, submitted := env.call(t, "POST", "/api/submitChecklist", map[string]interface{}{
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Motor_Check":  map[string]interface{}{"status": "R", "photos": []string{body["url"]}},
	})
	req := httptest.NewRequest("GET", "/api/exportChecklist?checklistId="+submitted["checklistID"].(string), nil)
	resp = env.raw(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.raw(t, multipartUpload(t, "file", "notes.txt", "text/plain", []byte("hello")))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.call(t, "GET", "/api/getImage?fileId=missing.jpg", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSpreadsheetExportAndDiagnostics(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.call(t, "POST", "/api/submitChecklist", map[string]string{"CustomerID": "CUST-1", "TechnicianID": "T-9"})

	resp := env.raw(t, httptest.NewRequest("GET", "/api/exportChecklistsXLSX", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	resp, body := env.call(t, "GET", "/api/diagnostics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["sheets"], 4)
	envFlags := body["env"].(map[string]interface{})
	assert.Equal(t, false, envFlags["hasSpreadsheetId"])

	resp, body = env.call(t, "GET", "/api/checklistTemplate", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Filter Tester Maintenance", body["title"])

	resp = env.raw(t, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "maintenance_checklists_submitted_total")
}

func TestShellRendersClient(t *testing.T) {
	env := newTestEnv(t)

	resp := env.raw(t, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), `id="login-form"`)
	assert.Contains(t, string(page), `data-api="/api"`)
	assert.Contains(t, string(page), "/static/app.js")
}
