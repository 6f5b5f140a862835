package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	// For testing error paths
	createErr       error
	updateErr       error
	deleteErr       error
	updateHealthErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) ListByType(_ context.Context, deviceType DeviceType) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var devices []Device
	for _, d := range m.devices {
		if d.Type == deviceType {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, device *Device) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; exists {
		return ErrDeviceExists
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) Update(_ context.Context, device *Device) error {
	if m.updateErr != nil {
		return m.updateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; !exists {
		return ErrDeviceNotFound
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdateHealth(_ context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	if m.updateHealthErr != nil {
		return m.updateHealthErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.devices[id]
	if !exists {
		return ErrDeviceNotFound
	}
	d.HealthStatus = status
	d.HealthLastSeen = &lastSeen
	return nil
}

func testCamera(name string) *Device {
	return &Device{
		Name: name,
		Type: DeviceTypeCamera,
		Connection: &Connection{
			Host:     "192.168.1.64",
			Port:     80,
			Username: "admin",
			Password: "secret",
		},
		Enabled: true,
	}
}

func testSensor(name string, t DeviceType) *Device {
	return &Device{Name: name, Type: t, Enabled: true}
}

// ─── CRUD ────────────────────────────────────────────────────────────

func TestCreateDevice(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if cam.ID == "" {
		t.Error("ID should be generated")
	}
	if cam.Slug != "front-door" {
		t.Errorf("Slug = %q, want front-door", cam.Slug)
	}
	if cam.HealthStatus != HealthStatusUnknown {
		t.Errorf("HealthStatus = %q, want unknown", cam.HealthStatus)
	}

	got, err := registry.GetDevice(ctx, cam.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Front Door" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestCreateDeviceValidation(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	tests := []struct {
		name    string
		device  *Device
		wantErr error
	}{
		{"empty name", &Device{Type: DeviceTypeCamera}, ErrInvalidName},
		{"unknown type", &Device{Name: "x", Type: "toaster"}, ErrInvalidDeviceType},
		{"camera without connection", &Device{Name: "x", Type: DeviceTypeCamera}, ErrInvalidConnection},
		{
			"sensor with connection",
			&Device{Name: "x", Type: DeviceTypeTemperatureSensor, Connection: &Connection{Host: "h", Username: "u"}},
			ErrInvalidConnection,
		},
		{
			"camera without username",
			&Device{Name: "x", Type: DeviceTypeCamera, Connection: &Connection{Host: "h"}},
			ErrInvalidConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.CreateDevice(ctx, tt.device)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateDeviceRegeneratesSlug(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	cam.Name = "Back Door"
	if err := registry.UpdateDevice(ctx, cam); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if cam.Slug != "back-door" {
		t.Errorf("Slug = %q, want back-door", cam.Slug)
	}
}

func TestDeleteDevice(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := registry.DeleteDevice(ctx, cam.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	if _, err := registry.GetDevice(ctx, cam.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrDeviceNotFound", err)
	}
}

// ─── Cache behaviour ─────────────────────────────────────────────────

func TestGetDeviceReturnsCopy(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	first, _ := registry.GetDevice(ctx, cam.ID)
	first.Name = "mutated"
	first.Connection.Host = "10.0.0.1"

	second, _ := registry.GetDevice(ctx, cam.ID)
	if second.Name != "Front Door" || second.Connection.Host != "192.168.1.64" {
		t.Error("cache was mutated through a returned copy")
	}
}

func TestGetDeviceBySlug(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := registry.GetDeviceBySlug(ctx, "front-door")
	if err != nil {
		t.Fatalf("GetDeviceBySlug() error = %v", err)
	}
	if got.ID != cam.ID {
		t.Errorf("ID = %q, want %q", got.ID, cam.ID)
	}

	if _, err := registry.GetDeviceBySlug(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDeviceBySlug(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestGetDevicesByType(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	for _, d := range []*Device{
		testCamera("Cam A"),
		testCamera("Cam B"),
		testSensor("Temp", DeviceTypeTemperatureSensor),
	} {
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	cameras, err := registry.GetDevicesByType(ctx, DeviceTypeCamera)
	if err != nil {
		t.Fatalf("GetDevicesByType() error = %v", err)
	}
	if len(cameras) != 2 {
		t.Errorf("cameras = %d, want 2", len(cameras))
	}
}

func TestSetDeviceHealth(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	cam := testCamera("Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := registry.SetDeviceHealth(ctx, cam.ID, HealthStatusOnline); err != nil {
		t.Fatalf("SetDeviceHealth() error = %v", err)
	}

	got, _ := registry.GetDevice(ctx, cam.ID)
	if got.HealthStatus != HealthStatusOnline {
		t.Errorf("HealthStatus = %q, want online", got.HealthStatus)
	}
	if got.HealthLastSeen == nil {
		t.Error("HealthLastSeen should be set")
	}
}

func TestGetStats(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	for _, d := range []*Device{
		testCamera("Cam A"),
		testSensor("Temp", DeviceTypeTemperatureSensor),
		testSensor("Hum", DeviceTypeHumiditySensor),
	} {
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	stats := registry.GetStats()
	if stats.TotalDevices != 3 {
		t.Errorf("TotalDevices = %d, want 3", stats.TotalDevices)
	}
	if stats.ByType[DeviceTypeCamera] != 1 || stats.ByType[DeviceTypeTemperatureSensor] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
}

func TestRefreshCache(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	// Seed the repository behind the registry's back.
	seed := testCamera("Seeded")
	seed.ID = GenerateID()
	seed.Slug = "seeded"
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("repo.Create() error = %v", err)
	}

	if registry.GetDeviceCount() != 0 {
		t.Fatal("cache should start empty")
	}
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if registry.GetDeviceCount() != 1 {
		t.Errorf("GetDeviceCount() = %d, want 1", registry.GetDeviceCount())
	}
}
