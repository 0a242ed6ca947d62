package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/channels/gochannel"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/eventbus"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/events"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence/file"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, bus eventbus.EventPublisher) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	persistence := file.NewPersistence(t.TempDir())

	api := NewAPI(logger, persistence, bus, otelhelper.NoopTracer(), workflow.New(logger))

	return api.App()
}

func get(t *testing.T, app *fiber.App, path string, header map[string]string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := get(t, app, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "WorkflowHub API", string(body))
}

func TestAPI_Probes(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := get(t, app, "/livez", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, _ = get(t, app, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetProcesses_Empty(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := get(t, app, "/processes", map[string]string{"Accept": "application/json"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var processes []models.Process
	require.NoError(t, json.Unmarshal(body, &processes))
	assert.Empty(t, processes)
}

func TestAPI_CORS_Headers(t *testing.T) {
	app := setupTestApp(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_PublishesTaskEvents(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(logger, pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.TaskCreated, 1)
	require.NoError(t, bus.Handle(events.TaskCreatedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.TaskCreated)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	app := setupTestApp(t, bus)

	send := func(method, path string, body any) int {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		req := httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		return resp.StatusCode
	}

	require.Equal(t, http.StatusCreated, send(http.MethodPost, "/processes", &models.Process{
		ID: "leave", Name: "Leave", Stages: []*models.Stage{
			{Name: "Manager", StageKey: "manager", ApproverSelectors: []models.ApproverSelector{models.ByUsers("boss")}},
		},
	}))
	require.Equal(t, http.StatusCreated, send(http.MethodPost, "/forms", &models.Form{
		ID: "leave-form", Name: "Leave", ProcessID: "leave", FieldsByID: map[string]*models.Field{},
	}))
	require.Equal(t, http.StatusCreated, send(http.MethodPost, "/tasks", map[string]any{
		"formId": "leave-form", "requesterUserId": "emp",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "leave", event.ProcessID)
		assert.Equal(t, "emp", event.RequesterUserID)
		assert.Equal(t, "manager", event.StageKey)
	case <-time.After(5 * time.Second):
		t.Fatal("task.created event was not delivered")
	}
}
