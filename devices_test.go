package welcome

import (
	"context"
	"strings"
	"testing"

	"github.com/tj-smith47/welcome-go/welcometest"
)

func newTestDeviceList(t *testing.T, stations, modules []map[string]any) (*DeviceList, *welcometest.Server) {
	t.Helper()
	srv := welcometest.New(t)
	srv.SetDevices(stations, modules)
	sess := newTestSession(t, srv)

	dl, err := NewDeviceList(context.Background(), sess)
	if err != nil {
		t.Fatalf("NewDeviceList: %v", err)
	}
	return dl, srv
}

func TestNewDeviceList(t *testing.T) {
	dl, srv := newTestDeviceList(t,
		[]map[string]any{{"_id": "S1", "station_name": "Home", "module_name": "Base", "type": "NACamera", "firmware": 91}},
		[]map[string]any{{"_id": "M1", "module_name": "Cam1", "main_device": "S1", "type": "NACamera"}},
	)

	if got := srv.LastForm(welcometest.PathDeviceList).Get("app_type"); got != "app_station" {
		t.Errorf("app_type = %q, want app_station", got)
	}

	def, ok := dl.DefaultStation()
	if !ok || def.StationName != "Home" {
		t.Fatalf("DefaultStation = %+v", def)
	}
	if !strings.Contains(string(def.Raw), `"firmware":91`) {
		t.Errorf("Raw = %s, want unmodelled fields kept", def.Raw)
	}

	m, ok := dl.ModuleByName("Cam1", "")
	if !ok || m.ID != "M1" {
		t.Errorf("ModuleByName(Cam1) = %+v", m)
	}
	if _, ok := dl.ModuleByName("Cam1", "Other"); ok {
		t.Error("ModuleByName with unknown station should report false")
	}
	if m, ok := dl.ModuleByName("Cam1", "Home"); !ok || m.ID != "M1" {
		t.Errorf("ModuleByName(Cam1, Home) = %+v", m)
	}
}

func TestDeviceList_Lookups(t *testing.T) {
	stations := []map[string]any{
		{"_id": "S1", "station_name": "Home", "module_name": "Hall"},
		{"_id": "S2", "station_name": "Cabin", "module_name": "Porch"},
		{"_id": "S3", "station_name": "Home", "module_name": "Garage"},
	}
	modules := []map[string]any{
		{"_id": "M1", "module_name": "Door", "main_device": "S1"},
		{"_id": "M2", "module_name": "Door", "main_device": "S2"},
		{"_id": "M3", "module_name": "Window", "main_device": "S2"},
	}
	dl, _ := newTestDeviceList(t, stations, modules)

	t.Run("default is the first fetched station", func(t *testing.T) {
		for range 10 {
			def, ok := dl.DefaultStation()
			if !ok || def.ID != "S1" {
				t.Fatalf("DefaultStation = %+v, want S1", def)
			}
		}
	})

	t.Run("stations and modules keep fetch order", func(t *testing.T) {
		var ids []string
		for _, st := range dl.Stations() {
			ids = append(ids, st.ID)
		}
		if strings.Join(ids, ",") != "S1,S2,S3" {
			t.Errorf("Stations order = %v", ids)
		}
		ids = ids[:0]
		for _, m := range dl.Modules() {
			ids = append(ids, m.ID)
		}
		if strings.Join(ids, ",") != "M1,M2,M3" {
			t.Errorf("Modules order = %v", ids)
		}
	})

	t.Run("by name and by id agree", func(t *testing.T) {
		for _, st := range dl.Stations() {
			byID, ok := dl.StationByID(st.ID)
			if !ok {
				t.Fatalf("StationByID(%s) missing", st.ID)
			}
			byName, ok := dl.StationByName(byID.StationName)
			if !ok {
				t.Fatalf("StationByName(%s) missing", byID.StationName)
			}
			if byName.StationName != byID.StationName {
				t.Errorf("name mismatch for %s", st.ID)
			}
		}
	})

	t.Run("duplicate names resolve to the first", func(t *testing.T) {
		st, ok := dl.StationByName("Home")
		if !ok || st.ID != "S1" {
			t.Errorf("StationByName(Home) = %+v, want S1", st)
		}
		m, ok := dl.ModuleByName("Door", "")
		if !ok || m.ID != "M1" {
			t.Errorf("ModuleByName(Door) = %+v, want M1", m)
		}
	})

	t.Run("empty station name means default", func(t *testing.T) {
		st, ok := dl.StationByName("")
		if !ok || st.ID != "S1" {
			t.Errorf("StationByName(\"\") = %+v, want S1", st)
		}
	})

	t.Run("module by name scoped to station", func(t *testing.T) {
		m, ok := dl.ModuleByName("Door", "Cabin")
		if !ok || m.ID != "M2" {
			t.Errorf("ModuleByName(Door, Cabin) = %+v, want M2", m)
		}
		if _, ok := dl.ModuleByName("Window", "Home"); ok {
			t.Error("Window does not belong to Home")
		}
	})

	t.Run("module by id", func(t *testing.T) {
		if m, ok := dl.ModuleByID("M3", ""); !ok || m.ModuleName != "Window" {
			t.Errorf("ModuleByID(M3) = %+v", m)
		}
		if _, ok := dl.ModuleByID("M3", "S2"); !ok {
			t.Error("M3 belongs to S2")
		}
		if _, ok := dl.ModuleByID("M3", "S1"); ok {
			t.Error("M3 does not belong to S1")
		}
		if _, ok := dl.ModuleByID("M9", ""); ok {
			t.Error("M9 does not exist")
		}
	})

	t.Run("unknown station", func(t *testing.T) {
		if _, ok := dl.StationByName("Nowhere"); ok {
			t.Error("StationByName(Nowhere) should report false")
		}
		if _, ok := dl.StationByID("S9"); ok {
			t.Error("StationByID(S9) should report false")
		}
	})

	t.Run("modules names list", func(t *testing.T) {
		got := dl.ModulesNamesList("")
		want := "Door,Door,Window,Hall"
		if strings.Join(got, ",") != want {
			t.Errorf("ModulesNamesList(\"\") = %v, want %s", got, want)
		}

		got = dl.ModulesNamesList("Cabin")
		want = "Door,Door,Window,Porch"
		if strings.Join(got, ",") != want {
			t.Errorf("ModulesNamesList(Cabin) = %v, want %s", got, want)
		}

		got = dl.ModulesNamesList("Nowhere")
		want = "Door,Door,Window"
		if strings.Join(got, ",") != want {
			t.Errorf("ModulesNamesList(Nowhere) = %v, want %s", got, want)
		}
	})
}

func TestDeviceList_Empty(t *testing.T) {
	dl, _ := newTestDeviceList(t, nil, nil)

	if _, ok := dl.DefaultStation(); ok {
		t.Error("DefaultStation on empty list should report false")
	}
	if _, ok := dl.StationByName(""); ok {
		t.Error("StationByName(\"\") on empty list should report false")
	}
	if names := dl.ModulesNamesList(""); len(names) != 0 {
		t.Errorf("ModulesNamesList = %v, want empty", names)
	}
}

func TestNewDeviceList_Errors(t *testing.T) {
	t.Run("malformed station", func(t *testing.T) {
		srv := welcometest.New(t)
		srv.SetRaw(welcometest.PathDeviceList, []byte(`{"status":"ok","body":{"devices":["not an object"],"modules":[]}}`))
		sess := newTestSession(t, srv)

		_, err := NewDeviceList(context.Background(), sess)
		if err == nil || !strings.Contains(err.Error(), "station[0]") {
			t.Errorf("error = %v, want a parse error naming station[0]", err)
		}
	})

	t.Run("oversized response", func(t *testing.T) {
		srv := welcometest.New(t)
		big := `{"status":"ok","body":{"devices":[],"modules":[],"pad":"` + strings.Repeat("x", 2048) + `"}}`
		srv.SetRaw(welcometest.PathDeviceList, []byte(big))
		sess := newTestSession(t, srv, WithMaxResponseSize(1024))

		_, err := NewDeviceList(context.Background(), sess)
		if err == nil || !strings.Contains(err.Error(), "exceeds size limit") {
			t.Errorf("error = %v, want ErrResponseTooLarge", err)
		}
	})
}

func TestDeviceList_LookupsReturnCopies(t *testing.T) {
	dl, _ := newTestDeviceList(t,
		[]map[string]any{{"_id": "S1", "station_name": "Home", "module_name": "Base", "modules": []string{"M1"}}},
		[]map[string]any{{"_id": "M1", "module_name": "Cam1", "main_device": "S1"}},
	)

	st, _ := dl.StationByID("S1")
	st.StationName = "Changed"
	st.ModuleIDs[0] = "changed"
	st.Raw[0] = 'x'

	byName, _ := dl.StationByName("Home")
	byName.ModuleName = "Changed"

	def, ok := dl.DefaultStation()
	if !ok || def.StationName != "Home" || def.ModuleName != "Base" {
		t.Errorf("DefaultStation = %+v, want the fetched station", def)
	}
	if def.ModuleIDs[0] != "M1" || def.Raw[0] != '{' {
		t.Errorf("DefaultStation slices were shared: %v %s", def.ModuleIDs, def.Raw)
	}
	if _, ok := dl.StationByName("Home"); !ok {
		t.Error("StationByName(Home) should still match")
	}

	m, _ := dl.ModuleByID("M1", "")
	m.MainDevice = "elsewhere"
	if m, ok := dl.ModuleByID("M1", "S1"); !ok || m.MainDevice != "S1" {
		t.Errorf("ModuleByID(M1, S1) = %+v", m)
	}

	stations := dl.Stations()
	stations[0].ModuleIDs[0] = "changed"
	if again, _ := dl.StationByID("S1"); again.ModuleIDs[0] != "M1" {
		t.Error("Stations should return deep copies")
	}
}
