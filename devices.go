package welcome

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
)

const appTypeStation = "app_station"

// Station is a main device. Fields the library does not model remain
// available in Raw.
type Station struct {
	ID          string          `json:"_id"`
	StationName string          `json:"station_name"`
	ModuleName  string          `json:"module_name"`
	Type        string          `json:"type"`
	ModuleIDs   []string        `json:"modules,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Module is a device attached to a station.
type Module struct {
	ID         string          `json:"_id"`
	ModuleName string          `json:"module_name"`
	Type       string          `json:"type"`
	MainDevice string          `json:"main_device"`
	Raw        json.RawMessage `json:"-"`
}

func (st *Station) clone() Station {
	c := *st
	c.ModuleIDs = slices.Clone(st.ModuleIDs)
	c.Raw = slices.Clone(st.Raw)
	return c
}

func (m *Module) clone() Module {
	c := *m
	c.Raw = slices.Clone(m.Raw)
	return c
}

// deviceListBody is the body of a devicelist response.
type deviceListBody struct {
	Devices []json.RawMessage `json:"devices"`
	Modules []json.RawMessage `json:"modules"`
}

// DeviceList is a read-only snapshot of the user's stations and modules,
// taken when it was created. Build a new one to pick up changes. Lookups
// return copies, so a DeviceList can be shared between goroutines.
type DeviceList struct {
	stations *ordered[Station]
	modules  *ordered[Module]
}

// NewDeviceList fetches the stations and modules of the session's user.
func NewDeviceList(ctx context.Context, s *Session) (*DeviceList, error) {
	params := url.Values{}
	params.Set("app_type", appTypeStation)

	env, err := s.call(ctx, pathDeviceList, params, "device list")
	if err != nil {
		return nil, err
	}

	body, err := unmarshalResponse[deviceListBody](env.Body, "device list")
	if err != nil {
		return nil, err
	}

	return newDeviceList(body)
}

func newDeviceList(body *deviceListBody) (*DeviceList, error) {
	stations, err := decodeRawList(body.Devices, "station", func(st *Station, raw json.RawMessage) {
		st.Raw = raw
	})
	if err != nil {
		return nil, err
	}
	modules, err := decodeRawList(body.Modules, "module", func(m *Module, raw json.RawMessage) {
		m.Raw = raw
	})
	if err != nil {
		return nil, err
	}

	return &DeviceList{
		stations: newOrdered(stations, func(st *Station) string { return st.ID }, (*Station).clone),
		modules:  newOrdered(modules, func(m *Module) string { return m.ID }, (*Module).clone),
	}, nil
}

// DefaultStation returns the first station of the fetch.
func (d *DeviceList) DefaultStation() (*Station, bool) {
	return d.stations.first()
}

// Stations returns all stations in fetch order.
func (d *DeviceList) Stations() []Station {
	return d.stations.list()
}

// Modules returns all modules in fetch order.
func (d *DeviceList) Modules() []Module {
	return d.modules.list()
}

// StationByName returns the first station named name. An empty name means
// the default station's name. Names are not unique, so this is a scan.
func (d *DeviceList) StationByName(name string) (*Station, bool) {
	if name == "" {
		def, ok := d.DefaultStation()
		if !ok {
			return nil, false
		}
		name = def.StationName
	}
	return d.stations.find(func(st *Station) bool {
		return st.StationName == name
	})
}

// StationByID returns the station with the given id.
func (d *DeviceList) StationByID(id string) (*Station, bool) {
	return d.stations.get(id)
}

// ModuleByName returns the first module named name. When stationName is not
// empty, that station must exist and own the module.
func (d *DeviceList) ModuleByName(name, stationName string) (*Module, bool) {
	var owner *Station
	if stationName != "" {
		st, ok := d.StationByName(stationName)
		if !ok {
			return nil, false
		}
		owner = st
	}
	return d.modules.find(func(m *Module) bool {
		return m.ModuleName == name && (owner == nil || m.MainDevice == owner.ID)
	})
}

// ModuleByID returns the module with the given id. When stationID is not
// empty, the module must belong to that station.
func (d *DeviceList) ModuleByID(id, stationID string) (*Module, bool) {
	m, ok := d.modules.get(id)
	if !ok {
		return nil, false
	}
	if stationID != "" && m.MainDevice != stationID {
		return nil, false
	}
	return m, true
}

// ModulesNamesList returns the name of every module, in fetch order, followed
// by the module_name of the station resolved from stationName (empty means
// the default station). A station record carries the name of its own base
// module there, so the list covers every named module of the household.
func (d *DeviceList) ModulesNamesList(stationName string) []string {
	names := make([]string, 0, d.modules.len()+1)
	for _, m := range d.modules.items {
		names = append(names, m.ModuleName)
	}
	if st, ok := d.StationByName(stationName); ok {
		names = append(names, st.ModuleName)
	}
	return names
}
