package telemetry

import "testing"

func TestDownlinkNormalMode(t *testing.T) {
	snap := healthySnapshot()

	got, ok := snap.Downlink().(Snapshot)
	if !ok {
		t.Fatalf("expected full Snapshot, got %T", snap.Downlink())
	}
	if got != snap {
		t.Errorf("full downlink must be unchanged")
	}
}

func TestDownlinkSafeMode(t *testing.T) {
	snap := healthySnapshot()
	snap.Mode = ModeSafe
	snap.FaultInjected = true

	crit, ok := snap.Downlink().(CriticalSnapshot)
	if !ok {
		t.Fatalf("expected CriticalSnapshot, got %T", snap.Downlink())
	}
	if crit.SatelliteID != snap.SatelliteID || crit.Mode != ModeSafe || !crit.FaultInjected {
		t.Errorf("critical snapshot lost identity fields: %+v", crit)
	}
	if crit.BatteryVoltageV != snap.BatteryVoltageV || crit.BatteryTempC != snap.BatteryTempC {
		t.Errorf("critical snapshot lost power/thermal fields: %+v", crit)
	}
}

func TestValidFaultKind(t *testing.T) {
	for _, k := range FaultKinds() {
		if !ValidFaultKind(k) {
			t.Errorf("%s must be valid", k)
		}
	}
	if ValidFaultKind("THRUSTER_STUCK") {
		t.Error("unknown kind must be invalid")
	}
}
