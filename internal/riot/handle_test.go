package riot

import (
	"errors"
	"testing"
)

func TestParseHandle(t *testing.T) {
	tests := []struct {
		name    string
		riotID  string
		region  string
		want    Handle
		wantErr bool
	}{
		{
			name:   "valid handle",
			riotID: "riq#8008",
			region: "na",
			want:   Handle{GameName: "riq", Tag: "8008", Region: "na"},
		},
		{
			name:   "whitespace trimmed from both sides",
			riotID: "  Hide on bush # KR1 ",
			region: "kr",
			want:   Handle{GameName: "Hide on bush", Tag: "KR1", Region: "kr"},
		},
		{
			name:   "region lowercased",
			riotID: "riq#8008",
			region: "NA",
			want:   Handle{GameName: "riq", Tag: "8008", Region: "na"},
		},
		{
			name:   "unrecognized region kept as entered",
			riotID: "riq#8008",
			region: "atlantis",
			want:   Handle{GameName: "riq", Tag: "8008", Region: "atlantis"},
		},
		{
			name:    "missing separator",
			riotID:  "riq8008",
			region:  "na",
			wantErr: true,
		},
		{
			name:    "multiple separators",
			riotID:  "riq#80#08",
			region:  "na",
			wantErr: true,
		},
		{
			name:    "empty game name",
			riotID:  "#8008",
			region:  "na",
			wantErr: true,
		},
		{
			name:    "empty tag",
			riotID:  "riq#",
			region:  "na",
			wantErr: true,
		},
		{
			name:    "whitespace-only tag",
			riotID:  "riq#   ",
			region:  "na",
			wantErr: true,
		},
		{
			name:    "empty input",
			riotID:  "",
			region:  "na",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandle(tt.riotID, tt.region)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseHandle(%q, %q) succeeded, want error", tt.riotID, tt.region)
				}

				if !errors.Is(err, ErrMalformedHandle) {
					t.Errorf("ParseHandle(%q, %q) error = %v, want ErrMalformedHandle", tt.riotID, tt.region, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseHandle(%q, %q) returned unexpected error: %v", tt.riotID, tt.region, err)
			}

			if got != tt.want {
				t.Errorf("ParseHandle(%q, %q) = %+v, want %+v", tt.riotID, tt.region, got, tt.want)
			}
		})
	}
}

func TestHandleString(t *testing.T) {
	h := Handle{GameName: "riq", Tag: "8008", Region: "na"}

	if got, want := h.String(), "riq#8008"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
