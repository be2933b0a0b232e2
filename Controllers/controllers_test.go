package Controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Maintenance/Models"
	"Maintenance/Records"
	"Maintenance/Storage"
	"Maintenance/middleware"
)

func errorStatus(t *testing.T, err error, production bool) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return writeError(c, err, production) })
	resp, terr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, terr)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestWriteErrorMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&Records.ValidationError{Fields: []string{"CustomerID"}}, fiber.StatusBadRequest},
		{fmt.Errorf("save: %w", &Records.UnknownFieldsError{Sheet: "Drafts", Fields: []string{"X"}}), fiber.StatusBadRequest},
		{&Records.NotFoundError{Kind: "checklist", ID: "CHK-1", Known: []string{"CHK-2"}}, fiber.StatusNotFound},
		{Records.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{fmt.Errorf("open: %w", Storage.ErrPhotoNotFound), fiber.StatusNotFound},
		{errors.New("sheets api: quota exceeded"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, body := errorStatus(t, tc.err, false)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, "error", body["status"])
	}

	_, body := errorStatus(t, &Records.NotFoundError{Kind: "checklist", ID: "CHK-1", Known: []string{"CHK-2"}}, false)
	assert.Equal(t, []interface{}{"CHK-2"}, body["knownIds"])
}

func TestWriteErrorRedactsUpstreamDetailInProduction(t *testing.T) {
	_, body := errorStatus(t, errors.New("googleapi: private key rejected"), true)
	assert.Equal(t, "internal server error", body["message"])

	_, body = errorStatus(t, errors.New("googleapi: private key rejected"), false)
	assert.Equal(t, "googleapi: private key rejected", body["message"])
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := validateStruct(Models.Customer{CustomerName: "Acme"})
	var verr *Records.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Country", "MachineType", "SerialNo"}, verr.Fields)
	assert.Contains(t, verr.Message, "Country is a required field")

	assert.NoError(t, validateStruct(loginRequest{Username: "nour", Password: "x"}))
}

func TestPhotoDescriptionsUseTemplateLabels(t *testing.T) {
	cl := Models.Checklist{
		"Motor_Check": `{"status":"N","photos":["a","b"]}`,
		"Custom_Item": `{"status":"R","photos":["a","c"]}`,
	}
	got := photoDescriptions(cl, Models.DefaultTemplate())
	assert.Equal(t, "Custom Item", got["a"])
	assert.Equal(t, "Check the gear pump motor.", got["b"])
	assert.Equal(t, "Custom Item", got["c"])
}

func TestExportRequestID(t *testing.T) {
	assert.Equal(t, "CHK-1", exportRequest{ChecklistID: " CHK-1 ", Checklist: Models.Checklist{"ChecklistID": "CHK-2"}}.id())
	assert.Equal(t, "CHK-2", exportRequest{Checklist: Models.Checklist{"ChecklistID": "CHK-2"}}.id())
	assert.Equal(t, "", exportRequest{}.id())
}

func writeLog(t *testing.T, entries ...middleware.LogData) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests.log")
	var b strings.Builder
	for _, e := range entries {
		line, err := json.Marshal(e)
		require.NoError(t, err)
		b.Write(line)
		b.WriteString("\n")
	}
	b.WriteString("not json\n")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestGroupLogsByPath(t *testing.T) {
	groups := groupLogsByPath([]middleware.LogData{
		{Method: "POST", Path: "/api/saveDraft", Status: 200, Latency: 10 * time.Millisecond},
		{Method: "POST", Path: "/api/saveDraft", Status: 400, Latency: 30 * time.Millisecond},
		{Method: "GET", Path: "/api/listChecklists", Status: 200, Latency: 5 * time.Millisecond},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "/api/saveDraft", groups[0].Path)
	assert.Equal(t, 2, groups[0].Count)
	assert.InDelta(t, 20.0, groups[0].AvgLatency, 0.001)
	assert.InDelta(t, 10.0, groups[0].MinLatency, 0.001)
	assert.InDelta(t, 30.0, groups[0].MaxLatency, 0.001)
	assert.InDelta(t, 0.5, groups[0].SuccessRate, 0.001)
}

func TestLogsEndpoints(t *testing.T) {
	now := time.Now()
	path := writeLog(t,
		middleware.LogData{Timestamp: now, Method: "POST", Path: "/api/saveDraft", Status: 200, TechnicianID: "T-9"},
		middleware.LogData{Timestamp: now, Method: "POST", Path: "/api/saveDraft", Status: 400, TechnicianID: "T-1"},
		middleware.LogData{Timestamp: now.AddDate(0, 0, -3), Method: "GET", Path: "/api/listChecklists", Status: 200},
	)
	lc := NewLogsController(path)
	app := fiber.New()
	app.Get("/logs", lc.GetLogs)
	app.Get("/logs/stats", lc.GetLogStats)
	app.Get("/logs/path/:path", lc.GetLogsByPath)

	get := func(url string) (int, map[string]interface{}) {
		resp, err := app.Test(httptest.NewRequest("GET", url, nil))
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	code, body := get("/logs")
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 2, body["total_logs"])
	assert.EqualValues(t, 1, body["total_groups"])

	_, body = get("/logs?technicianId=T-9")
	assert.EqualValues(t, 1, body["total_logs"])

	from := now.AddDate(0, 0, -7).Format("2006-01-02")
	_, body = get("/logs/stats?date_from=" + from)
	assert.EqualValues(t, 3, body["total_requests"])
	assert.EqualValues(t, 1, body["error_requests"])

	_, body = get("/logs/path/listChecklists?date_from=" + from)
	assert.EqualValues(t, 1, body["total_logs"])

	code, body = get("/logs?date_from=yesterday")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, body["error"], "date_from")
}

func TestLogsMissingFileIsEmpty(t *testing.T) {
	lc := NewLogsController(filepath.Join(t.TempDir(), "none.log"))
	logs, err := lc.read(time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, logs)
}
