package access

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/device-relay/internal/device"
)

type fakeChecker struct {
	owners map[string]string // device id → user id
	err    error
	calls  int
}

func (f *fakeChecker) IsOwner(_ context.Context, userID, deviceID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.owners[deviceID] == userID, nil
}

func newTestGate(t *testing.T, checker *fakeChecker) *Gate {
	t.Helper()
	registry, err := device.NewRegistry(device.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return New(registry, checker)
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		deviceID string
		storeErr error
		wantErr  error
	}{
		{name: "owner", identity: "42", deviceID: "climate01"},
		{name: "missing identity", identity: "", deviceID: "climate01", wantErr: ErrUnauthenticated},
		{name: "missing device", identity: "42", deviceID: "", wantErr: ErrUnknownDevice},
		{name: "unregistered device", identity: "42", deviceID: "ghost", wantErr: ErrUnknownDevice},
		{name: "non-owner", identity: "99", deviceID: "climate01", wantErr: ErrForbidden},
		{name: "store down", identity: "42", deviceID: "climate01", storeErr: errors.New("disk I/O"), wantErr: ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newTestGate(t, &fakeChecker{
				owners: map[string]string{"climate01": "42"},
				err:    tt.storeErr,
			})

			grant, err := gate.Authorize(context.Background(), tt.identity, tt.deviceID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authorize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if grant.UserID != "42" || grant.DeviceID != "climate01" || grant.Type.ID != "climate" {
				t.Errorf("grant = %+v", grant)
			}
		})
	}
}

func TestAuthorize_ShortCircuits(t *testing.T) {
	checker := &fakeChecker{}
	gate := newTestGate(t, checker)

	//nolint:errcheck // only the store call count matters
	gate.Authorize(context.Background(), "", "climate01")
	//nolint:errcheck // only the store call count matters
	gate.Authorize(context.Background(), "42", "ghost")

	if checker.calls != 0 {
		t.Errorf("store consulted %d times before identity/device checks passed", checker.calls)
	}
}

func TestAuthorize_ChecksStoreEveryCall(t *testing.T) {
	checker := &fakeChecker{owners: map[string]string{"climate01": "42"}}
	gate := newTestGate(t, checker)
	ctx := context.Background()

	if _, err := gate.Authorize(ctx, "42", "climate01"); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	delete(checker.owners, "climate01")
	if _, err := gate.Authorize(ctx, "42", "climate01"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Authorize() after release error = %v, want ErrForbidden", err)
	}
	if checker.calls != 2 {
		t.Errorf("store calls = %d, want 2", checker.calls)
	}
}

func TestIdentify(t *testing.T) {
	gate := newTestGate(t, &fakeChecker{})

	if _, err := gate.Identify(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Identify(\"\") error = %v, want ErrUnauthenticated", err)
	}
	if got, err := gate.Identify(context.Background(), "42"); err != nil || got != "42" {
		t.Errorf("Identify(42) = %q, %v", got, err)
	}
}

func TestGrantContext(t *testing.T) {
	if _, ok := GrantFromContext(context.Background()); ok {
		t.Error("GrantFromContext() on empty context reported ok")
	}

	want := Grant{UserID: "42", DeviceID: "climate01", Type: device.Type{ID: "climate"}}
	got, ok := GrantFromContext(WithGrant(context.Background(), want))
	if !ok || got.UserID != want.UserID || got.DeviceID != want.DeviceID || got.Type.ID != want.Type.ID {
		t.Errorf("GrantFromContext() = %+v, %v", got, ok)
	}
}
