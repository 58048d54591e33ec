package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cubesat-sim/internal/config"
	"cubesat-sim/internal/sim"
	"cubesat-sim/internal/telemetry"
)

type discardWriter struct{}

func (discardWriter) Write(telemetry.Snapshot) error { return nil }

func testServer(t *testing.T) (*Server, *sim.Simulator) {
	t.Helper()
	cfg := &config.SimulationConfig{
		SatelliteID: "SAT-API",
		Orbit:       config.Orbit{PeriodMinutes: 90, SunFraction: 0.6},
		Radiation:   config.Radiation{SpikeProbability: 0.001, SpikeDurationS: 30},
		Power: config.Power{
			BaseSolarPowerW:     8.0,
			BaseBatteryVoltageV: 7.5,
			BaseBatterySOCPct:   75.0,
		},
	}
	simulator := sim.NewSimulator(cfg, discardWriter{}, nil, nil)
	t.Cleanup(simulator.Close)
	return NewServer(simulator), simulator
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "CubeSat Telemetry API" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestLatestBeforeFirstTick(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/telemetry/latest", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestLatestAfterTick(t *testing.T) {
	s, simulator := testServer(t)
	simulator.Tick()

	rec := doRequest(t, s, http.MethodGet, "/telemetry/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap telemetry.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SatelliteID != "SAT-API" {
		t.Errorf("unexpected satellite id: %s", snap.SatelliteID)
	}
}

func TestModeEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/mode", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ModeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mode != telemetry.ModeNormal {
		t.Errorf("mode = %s, want NORMAL", resp.Mode)
	}
}

func TestFaultInjectionValidation(t *testing.T) {
	s, _ := testServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{not json", http.StatusBadRequest},
		{"unknown kind", `{"type":"MELTDOWN","duration":60}`, http.StatusUnprocessableEntity},
		{"zero duration", `{"type":"LOW_VOLTAGE","duration":0}`, http.StatusUnprocessableEntity},
		{"negative duration", `{"type":"LOW_VOLTAGE","duration":-5}`, http.StatusUnprocessableEntity},
		{"too long", `{"type":"LOW_VOLTAGE","duration":3601}`, http.StatusUnprocessableEntity},
		{"valid", `{"type":"LOW_VOLTAGE","duration":60}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/simulate/fault", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestFaultInjectionDrivesSafeMode(t *testing.T) {
	s, simulator := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/simulate/fault", `{"type":"LOW_VOLTAGE","duration":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	simulator.Tick()

	rec = doRequest(t, s, http.MethodGet, "/recovery/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status struct {
		Mode           telemetry.SatelliteMode `json:"mode"`
		RecoveryActive bool                    `json:"recovery_active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Mode != telemetry.ModeSafe || !status.RecoveryActive {
		t.Fatalf("unexpected recovery status: %+v", status)
	}

	// SAFE mode downlink carries only the critical subset.
	rec = doRequest(t, s, http.MethodGet, "/downlink", "")
	var downlink map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &downlink); err != nil {
		t.Fatalf("decode downlink: %v", err)
	}
	if _, ok := downlink["rad_cps"]; ok {
		t.Error("SAFE downlink should not include rad_cps")
	}
	if _, ok := downlink["battery_voltage_v"]; !ok {
		t.Error("SAFE downlink should include battery_voltage_v")
	}
}

func TestLogsEndpoint(t *testing.T) {
	s, simulator := testServer(t)
	_ = simulator.InjectFault(telemetry.FaultHighTemp, 60e9)
	simulator.Tick()

	rec := doRequest(t, s, http.MethodGet, "/telemetry/logs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []telemetry.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected at least the FAULT_INJECTED event")
	}

	rec = doRequest(t, s, http.MethodGet, "/telemetry/logs?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, simulator := testServer(t)
	simulator.Tick()

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["simulator_running"] != true {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodOptions, "/mode", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
