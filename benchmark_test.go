package welcome

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/tj-smith47/welcome-go/welcometest"
)

// BenchmarkDecodeDeviceList benchmarks decoding a devicelist body into the ordered index.
func BenchmarkDecodeDeviceList(b *testing.B) {
	var devices, modules []json.RawMessage
	for i := range 20 {
		devices = append(devices, json.RawMessage(fmt.Sprintf(`{"_id":"S%d","station_name":"Station %d","module_name":"Base","type":"NACamera"}`, i, i)))
		modules = append(modules, json.RawMessage(fmt.Sprintf(`{"_id":"M%d","module_name":"Module %d","main_device":"S%d"}`, i, i, i%5)))
	}
	body := &deviceListBody{Devices: devices, Modules: modules}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := newDeviceList(body); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkModuleByName benchmarks a station-scoped module lookup.
func BenchmarkModuleByName(b *testing.B) {
	var stations []Station
	var modules []Module
	for i := range 50 {
		stations = append(stations, Station{ID: fmt.Sprintf("S%d", i), StationName: fmt.Sprintf("Station %d", i)})
		modules = append(modules, Module{ID: fmt.Sprintf("M%d", i), ModuleName: fmt.Sprintf("Module %d", i), MainDevice: fmt.Sprintf("S%d", i)})
	}
	dl := &DeviceList{
		stations: newOrdered(stations, func(st *Station) string { return st.ID }, (*Station).clone),
		modules:  newOrdered(modules, func(m *Module) string { return m.ID }, (*Module).clone),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := dl.ModuleByName("Module 49", "Station 49"); !ok {
			b.Fatal("module not found")
		}
	}
}

// BenchmarkCurrentToken benchmarks the cached token path.
func BenchmarkCurrentToken(b *testing.B) {
	srv := welcometest.New(b)
	sess, err := NewSession(context.Background(), testConfig(srv))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := sess.CurrentToken(ctx); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkNewNextEvents benchmarks a full event page round trip against the fake API.
func BenchmarkNewNextEvents(b *testing.B) {
	srv := welcometest.New(b)
	events := make([]map[string]any, 30)
	for i := range events {
		events[i] = map[string]any{"id": fmt.Sprintf("E%d", i), "type": "movement", "time": 1700000000 + i}
	}
	srv.SetEvents(events)
	sess, err := NewSession(context.Background(), testConfig(srv))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewNextEvents(ctx, sess, "H1", "", 0); err != nil {
			b.Fatal(err)
		}
	}
}
