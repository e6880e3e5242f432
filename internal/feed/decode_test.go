package feed

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/fusion"
)

func TestDecodeSatellite(t *testing.T) {
	got, err := DecodeSatellite(`{"id":"sat-1","x":12.5,"y":-40,"sentAt":1000,"receivedAt":1000.2}`)
	if err != nil {
		t.Fatalf("DecodeSatellite: %v", err)
	}
	want := fusion.Measurement{SourceID: "sat-1", X: 12.5, Y: -40, SentAt: 1000, ReceivedAt: 1000.2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeSatellite mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSatelliteMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `sat-1 12 40`},
		{"missing x", `{"id":"a","y":0,"sentAt":0,"receivedAt":1}`},
		{"missing receivedAt", `{"id":"a","x":0,"y":0,"sentAt":0}`},
		{"null sentAt", `{"id":"a","x":0,"y":0,"sentAt":null,"receivedAt":1}`},
		{"string coordinate", `{"id":"a","x":"0","y":0,"sentAt":0,"receivedAt":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSatellite(tt.line)
			if !errors.Is(err, fusion.ErrMalformedMeasurement) {
				t.Errorf("DecodeSatellite(%q) error = %v, want ErrMalformedMeasurement", tt.line, err)
			}
		})
	}
}

func TestDecodeScan(t *testing.T) {
	got, err := DecodeScan(`{"scanAngle":45,"echoResponses":[{"time":0.0001,"power":0.8},{"time":0.0002,"power":0.3}]}`)
	if err != nil {
		t.Fatalf("DecodeScan: %v", err)
	}
	want := echo.Scan{
		ScanAngle: 45,
		Responses: []echo.Response{{Time: 0.0001, Power: 0.8}, {Time: 0.0002, Power: 0.3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeScan mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeScanFlatForm(t *testing.T) {
	got, err := DecodeScan(`{"scanAngle":0,"time":0.001,"power":1}`)
	if err != nil {
		t.Fatalf("DecodeScan: %v", err)
	}
	if got.ScanAngle != 0 || got.Time == nil || *got.Time != 0.001 {
		t.Errorf("unexpected scan %+v", got)
	}
}

func TestDecodeScanMalformed(t *testing.T) {
	for _, line := range []string{
		`{"echoResponses":[]}`,
		`[1,2,3]`,
		`{"scanAngle":"north"}`,
	} {
		if _, err := DecodeScan(line); !errors.Is(err, echo.ErrMalformedEcho) {
			t.Errorf("DecodeScan(%q) error = %v, want ErrMalformedEcho", line, err)
		}
	}
}
